// Package memory implements port.Ledger in process memory. It is the
// backend for tests and single-node development runs.
package memory

import (
	"context"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

type state struct {
	markets   map[solana.PublicKey]domain.MarketplaceState
	campaigns map[solana.PublicKey]domain.Campaign
	open      map[solana.PublicKey]domain.OpenCampaign
	balances  map[domain.TokenAccount]uint64
}

func newState() *state {
	return &state{
		markets:   make(map[solana.PublicKey]domain.MarketplaceState),
		campaigns: make(map[solana.PublicKey]domain.Campaign),
		open:      make(map[solana.PublicKey]domain.OpenCampaign),
		balances:  make(map[domain.TokenAccount]uint64),
	}
}

// Ledger serializes instructions behind a single mutex. Writes of an
// instruction are staged and merged only when it succeeds.
type Ledger struct {
	mu    sync.RWMutex
	state *state
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{state: newState()}
}

var _ port.Ledger = (*Ledger)(nil)

// Execute implements port.Ledger.
func (l *Ledger) Execute(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &tx{base: l.state, staged: newState()}
	if err := fn(t); err != nil {
		return err
	}
	maps.Copy(l.state.markets, t.staged.markets)
	maps.Copy(l.state.campaigns, t.staged.campaigns)
	maps.Copy(l.state.open, t.staged.open)
	maps.Copy(l.state.balances, t.staged.balances)
	return nil
}

// View implements port.Ledger.
func (l *Ledger) View(ctx context.Context, fn func(r port.LedgerReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&tx{base: l.state, staged: newState()})
}

type tx struct {
	base   *state
	staged *state
}

func lookup[K comparable, V any](staged, base map[K]V, k K) (V, bool) {
	if v, ok := staged[k]; ok {
		return v, true
	}
	v, ok := base[k]
	return v, ok
}

func cloneMarket(m domain.MarketplaceState) *domain.MarketplaceState {
	m.AllowedTokens = slices.Clone(m.AllowedTokens)
	return &m
}

func (t *tx) Marketplace(_ context.Context, address solana.PublicKey) (*domain.MarketplaceState, error) {
	m, ok := lookup(t.staged.markets, t.base.markets, address)
	if !ok {
		return nil, domain.ErrNotInitialized
	}
	return cloneMarket(m), nil
}

func (t *tx) CreateMarketplace(_ context.Context, m *domain.MarketplaceState) error {
	if _, ok := lookup(t.staged.markets, t.base.markets, m.Address); ok {
		return domain.ErrAlreadyInitialized
	}
	t.staged.markets[m.Address] = *cloneMarket(*m)
	return nil
}

func (t *tx) SaveMarketplace(_ context.Context, m *domain.MarketplaceState) error {
	if _, ok := lookup(t.staged.markets, t.base.markets, m.Address); !ok {
		return domain.ErrNotInitialized
	}
	t.staged.markets[m.Address] = *cloneMarket(*m)
	return nil
}

func (t *tx) Campaign(_ context.Context, address solana.PublicKey) (*domain.Campaign, error) {
	c, ok := lookup(t.staged.campaigns, t.base.campaigns, address)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (t *tx) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	if _, ok := lookup(t.staged.campaigns, t.base.campaigns, c.Address); ok {
		return domain.ErrAlreadyInitialized
	}
	t.staged.campaigns[c.Address] = *c
	return nil
}

func (t *tx) SaveCampaign(_ context.Context, c *domain.Campaign) error {
	if _, ok := lookup(t.staged.campaigns, t.base.campaigns, c.Address); !ok {
		return domain.ErrNotFound
	}
	t.staged.campaigns[c.Address] = *c
	return nil
}

func (t *tx) OpenCampaign(_ context.Context, address solana.PublicKey) (*domain.OpenCampaign, error) {
	c, ok := lookup(t.staged.open, t.base.open, address)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (t *tx) CreateOpenCampaign(_ context.Context, c *domain.OpenCampaign) error {
	if _, ok := lookup(t.staged.open, t.base.open, c.Address); ok {
		return domain.ErrAlreadyInitialized
	}
	t.staged.open[c.Address] = *c
	return nil
}

func (t *tx) SaveOpenCampaign(_ context.Context, c *domain.OpenCampaign) error {
	if _, ok := lookup(t.staged.open, t.base.open, c.Address); !ok {
		return domain.ErrNotFound
	}
	t.staged.open[c.Address] = *c
	return nil
}

func (t *tx) Balance(_ context.Context, account domain.TokenAccount) (uint64, error) {
	b, _ := lookup(t.staged.balances, t.base.balances, account)
	return b, nil
}

func (t *tx) Credit(ctx context.Context, account domain.TokenAccount, amount uint64) error {
	b, _ := t.Balance(ctx, account)
	if amount > math.MaxUint64-b {
		return domain.ErrBalanceOverflow
	}
	t.staged.balances[account] = b + amount
	return nil
}

func (t *tx) Debit(ctx context.Context, account domain.TokenAccount, amount uint64) error {
	b, _ := t.Balance(ctx, account)
	if amount > b {
		return domain.ErrInsufficientFunds
	}
	t.staged.balances[account] = b - amount
	return nil
}
