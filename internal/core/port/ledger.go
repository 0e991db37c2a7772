package port

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"kol-market/internal/core/domain"
)

// LedgerReader exposes persisted records. Missing campaigns yield
// domain.ErrNotFound and a missing registry yields domain.ErrNotInitialized.
type LedgerReader interface {
	Marketplace(ctx context.Context, address solana.PublicKey) (*domain.MarketplaceState, error)
	Campaign(ctx context.Context, address solana.PublicKey) (*domain.Campaign, error)
	OpenCampaign(ctx context.Context, address solana.PublicKey) (*domain.OpenCampaign, error)
	Balance(ctx context.Context, account domain.TokenAccount) (uint64, error)
}

// LedgerTx is the view an instruction has of the ledger while it runs.
// Writes become visible to other instructions only when the instruction
// returns without error.
type LedgerTx interface {
	LedgerReader

	// CreateMarketplace stores the registry, failing with
	// domain.ErrAlreadyInitialized if one exists at the same address.
	CreateMarketplace(ctx context.Context, m *domain.MarketplaceState) error
	SaveMarketplace(ctx context.Context, m *domain.MarketplaceState) error

	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	SaveCampaign(ctx context.Context, c *domain.Campaign) error

	CreateOpenCampaign(ctx context.Context, c *domain.OpenCampaign) error
	SaveOpenCampaign(ctx context.Context, c *domain.OpenCampaign) error

	// Credit adds amount to the account, creating it when absent.
	Credit(ctx context.Context, account domain.TokenAccount, amount uint64) error
	// Debit removes amount from the account or fails with
	// domain.ErrInsufficientFunds.
	Debit(ctx context.Context, account domain.TokenAccount, amount uint64) error
}

// Ledger is the outbound port onto persistent keyed storage. Execute runs
// fn as one indivisible instruction: instructions touching the same
// records are serialized and a non-nil error from fn discards every write
// fn made. Implementations must be safe for concurrent use.
type Ledger interface {
	Execute(ctx context.Context, fn func(tx LedgerTx) error) error
	View(ctx context.Context, fn func(r LedgerReader) error) error
}
