package config

import (
	"github.com/caarlos0/env/v11"

	"kol-market/internal/config/configs"
)

// Config aggregates all configuration sections for the service. Nested
// structs are parsed with their envPrefix; see the configs package for
// defaults.
type Config struct {
	// Env names the deployment environment (e.g. prod, dev). It is attached
	// to every log record.
	Env string `env:"ENV" envDefault:"prod"`

	HTTP configs.HTTP     `envPrefix:"HTTP_"`
	Log  configs.Logger   `envPrefix:"LOG_"`
	Psql configs.Postgres `envPrefix:"PSQL_"`
	AMQP configs.AMQP     `envPrefix:"AMQP_"`

	// Program holds the marketplace settings, populated from PROGRAM_*.
	Program configs.Program `envPrefix:"PROGRAM_"`
}

// Load reads configuration from environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
