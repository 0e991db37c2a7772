package configs

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Ledger backends accepted by Program.Ledger.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Program holds marketplace settings. Keys are base58 encoded.
type Program struct {
	// ID is the program address every registry and campaign address is
	// derived under.
	ID string `env:"ID" envDefault:"3HdMBj43iTBkBhCbM4DuZeTqjnfvieeKvDLjhXPngaoQ"`
	// Ledger selects where state is kept: "memory" or "postgres".
	Ledger string `env:"LEDGER" envDefault:"postgres"`
	// KolShareBps is the KOL's cut of a fulfilled campaign in basis points.
	KolShareBps uint64 `env:"KOL_SHARE_BPS" envDefault:"9000"`

	// Owner, Mints and Decimals bootstrap the registry on startup when
	// Owner is set. An existing registry is left untouched.
	Owner    string   `env:"OWNER"`
	Mints    []string `env:"MINTS" envSeparator:","`
	Decimals []uint8  `env:"DECIMALS" envSeparator:","`

	// DemoHolders are credited DemoAmount of every bootstrap mint by the
	// seeder.
	DemoHolders []string `env:"DEMO_HOLDERS" envSeparator:","`
	DemoAmount  uint64   `env:"DEMO_AMOUNT" envDefault:"1000000000"`
}

// ProgramID parses ID.
func (c Program) ProgramID() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program id: %w", err)
	}
	return key, nil
}

// LedgerBackend normalises Ledger. Unknown values fall back to postgres.
func (c Program) LedgerBackend() string {
	if strings.EqualFold(c.Ledger, LedgerMemory) {
		return LedgerMemory
	}
	return LedgerPostgres
}

// Bootstrap reports whether a registry owner was configured.
func (c Program) Bootstrap() bool {
	return c.Owner != ""
}

// OwnerKey parses Owner.
func (c Program) OwnerKey() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.Owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("registry owner: %w", err)
	}
	return key, nil
}

// MintKeys parses Mints.
func (c Program) MintKeys() ([]solana.PublicKey, error) {
	return parseKeys("mint", c.Mints)
}

// DemoHolderKeys parses DemoHolders.
func (c Program) DemoHolderKeys() ([]solana.PublicKey, error) {
	return parseKeys("demo holder", c.DemoHolders)
}

func parseKeys(what string, raw []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", what, s, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
