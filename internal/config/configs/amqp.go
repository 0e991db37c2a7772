package configs

// AMQP configures the event producer. An empty URL disables publishing and
// events are only logged.
type AMQP struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"marketplace_events"`
}

// Enabled reports whether a broker URL was configured.
func (c AMQP) Enabled() bool {
	return c.URL != ""
}
