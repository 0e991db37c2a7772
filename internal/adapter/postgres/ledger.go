package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

// Ledger implements port.Ledger on PostgreSQL. Each instruction runs in a
// Serializable transaction and locks the rows it reads, so concurrent
// instructions on the same registry or campaign queue behind each other.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a ledger backed by pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

var _ port.Ledger = (*Ledger)(nil)

// Execute implements port.Ledger. The transaction is rolled back unless fn
// returns nil and the commit succeeds, including when fn panics.
func (l *Ledger) Execute(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	return runInTx(ctx, l.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(&ledgerTx{tx: tx, lock: true})
	})
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func runInTx(ctx context.Context, db txBeginner, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin instruction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit instruction: %w", err)
	}
	committed = true
	return nil
}

// View implements port.Ledger.
func (l *Ledger) View(ctx context.Context, fn func(r port.LedgerReader) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	return fn(&ledgerTx{tx: tx})
}

type ledgerTx struct {
	tx   pgx.Tx
	lock bool
}

func (t *ledgerTx) forUpdate(query string) string {
	if t.lock {
		return query + " FOR UPDATE"
	}
	return query
}

func (t *ledgerTx) Marketplace(ctx context.Context, address solana.PublicKey) (*domain.MarketplaceState, error) {
	var (
		owner   string
		counter decimal.Decimal
	)
	err := t.tx.QueryRow(ctx, t.forUpdate(`SELECT owner, campaign_counter FROM marketplace WHERE address = $1`), address.String()).
		Scan(&owner, &counter)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load marketplace: %w", err)
	}

	m := &domain.MarketplaceState{Address: address}
	if m.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if m.CampaignCounter, err = fromNumeric(counter); err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(ctx, `SELECT mint, decimals FROM allowed_tokens WHERE registry = $1 ORDER BY position`, address.String())
	if err != nil {
		return nil, fmt.Errorf("load allowed tokens: %w", err)
	}
	m.AllowedTokens, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AllowedToken, error) {
		var (
			mint     string
			decimals int16
		)
		if err := row.Scan(&mint, &decimals); err != nil {
			return domain.AllowedToken{}, err
		}
		key, err := parseKey(mint)
		return domain.AllowedToken{Mint: key, Decimals: uint8(decimals)}, err
	})
	if err != nil {
		return nil, fmt.Errorf("load allowed tokens: %w", err)
	}
	return m, nil
}

func (t *ledgerTx) CreateMarketplace(ctx context.Context, m *domain.MarketplaceState) error {
	tag, err := t.tx.Exec(ctx, `INSERT INTO marketplace (address, owner, campaign_counter) VALUES ($1, $2, $3) ON CONFLICT (address) DO NOTHING`,
		m.Address.String(), m.Owner.String(), toNumeric(m.CampaignCounter))
	if err != nil {
		return fmt.Errorf("insert marketplace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	batch := &pgx.Batch{}
	for i, tok := range m.AllowedTokens {
		batch.Queue(`INSERT INTO allowed_tokens (registry, position, mint, decimals) VALUES ($1, $2, $3, $4)`,
			m.Address.String(), i, tok.Mint.String(), int16(tok.Decimals))
	}
	if err = t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert allowed tokens: %w", err)
	}
	return nil
}

func (t *ledgerTx) SaveMarketplace(ctx context.Context, m *domain.MarketplaceState) error {
	tag, err := t.tx.Exec(ctx, `UPDATE marketplace SET owner = $2, campaign_counter = $3 WHERE address = $1`,
		m.Address.String(), m.Owner.String(), toNumeric(m.CampaignCounter))
	if err != nil {
		return fmt.Errorf("update marketplace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

const campaignColumns = `address, counter, creator, selected_kol, token_mint, amount_offered, promotion_ends_in, offer_ends_in, created_at, status`

func (t *ledgerTx) Campaign(ctx context.Context, address solana.PublicKey) (*domain.Campaign, error) {
	var (
		addr, creator, kol, mint string
		counter, amount          decimal.Decimal
		status                   int16
		c                        domain.Campaign
	)
	err := t.tx.QueryRow(ctx, t.forUpdate(`SELECT `+campaignColumns+` FROM campaigns WHERE address = $1`), address.String()).
		Scan(&addr, &counter, &creator, &kol, &mint, &amount, &c.PromotionEndsIn, &c.OfferEndsIn, &c.CreatedAt, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	keys, err := parseKeys(addr, creator, kol, mint)
	if err != nil {
		return nil, err
	}
	c.Address, c.CreatorAddress, c.SelectedKol, c.TokenMint = keys[0], keys[1], keys[2], keys[3]
	if c.Counter, err = fromNumeric(counter); err != nil {
		return nil, err
	}
	if c.AmountOffered, err = fromNumeric(amount); err != nil {
		return nil, err
	}
	c.ID = c.Counter
	c.CampaignStatus = domain.CampaignStatus(status)
	if status < 0 || !c.CampaignStatus.Valid() {
		return nil, fmt.Errorf("campaign %s: stored status %d out of range", address, status)
	}
	c.PromotionEndsIn = c.PromotionEndsIn.UTC()
	c.OfferEndsIn = c.OfferEndsIn.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (t *ledgerTx) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	tag, err := t.tx.Exec(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (address) DO NOTHING`,
		c.Address.String(), toNumeric(c.Counter), c.CreatorAddress.String(), c.SelectedKol.String(), c.TokenMint.String(),
		toNumeric(c.AmountOffered), c.PromotionEndsIn, c.OfferEndsIn, c.CreatedAt, int16(c.CampaignStatus))
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (t *ledgerTx) SaveCampaign(ctx context.Context, c *domain.Campaign) error {
	tag, err := t.tx.Exec(ctx, `UPDATE campaigns
SET selected_kol = $2, amount_offered = $3, promotion_ends_in = $4, offer_ends_in = $5, status = $6, updated_at = $7
WHERE address = $1`,
		c.Address.String(), c.SelectedKol.String(), toNumeric(c.AmountOffered), c.PromotionEndsIn, c.OfferEndsIn,
		int16(c.CampaignStatus), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const openCampaignColumns = `address, counter, creator, token_mint, pool_amount, promotion_ends_in, created_at, status`

func (t *ledgerTx) OpenCampaign(ctx context.Context, address solana.PublicKey) (*domain.OpenCampaign, error) {
	var (
		addr, creator, mint string
		counter, pool       decimal.Decimal
		status              int16
		c                   domain.OpenCampaign
	)
	err := t.tx.QueryRow(ctx, t.forUpdate(`SELECT `+openCampaignColumns+` FROM open_campaigns WHERE address = $1`), address.String()).
		Scan(&addr, &counter, &creator, &mint, &pool, &c.PromotionEndsIn, &c.CreatedAt, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load open campaign: %w", err)
	}

	keys, err := parseKeys(addr, creator, mint)
	if err != nil {
		return nil, err
	}
	c.Address, c.CreatorAddress, c.TokenMint = keys[0], keys[1], keys[2]
	if c.Counter, err = fromNumeric(counter); err != nil {
		return nil, err
	}
	if c.PoolAmount, err = fromNumeric(pool); err != nil {
		return nil, err
	}
	c.ID = c.Counter
	c.CampaignStatus = domain.OpenCampaignStatus(status)
	if status < 0 || !c.CampaignStatus.Valid() {
		return nil, fmt.Errorf("open campaign %s: stored status %d out of range", address, status)
	}
	c.PromotionEndsIn = c.PromotionEndsIn.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (t *ledgerTx) CreateOpenCampaign(ctx context.Context, c *domain.OpenCampaign) error {
	tag, err := t.tx.Exec(ctx, `INSERT INTO open_campaigns (`+openCampaignColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (address) DO NOTHING`,
		c.Address.String(), toNumeric(c.Counter), c.CreatorAddress.String(), c.TokenMint.String(),
		toNumeric(c.PoolAmount), c.PromotionEndsIn, c.CreatedAt, int16(c.CampaignStatus))
	if err != nil {
		return fmt.Errorf("insert open campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (t *ledgerTx) SaveOpenCampaign(ctx context.Context, c *domain.OpenCampaign) error {
	tag, err := t.tx.Exec(ctx, `UPDATE open_campaigns SET status = $2, updated_at = $3 WHERE address = $1`,
		c.Address.String(), int16(c.CampaignStatus), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update open campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) Balance(ctx context.Context, account domain.TokenAccount) (uint64, error) {
	var amount decimal.Decimal
	err := t.tx.QueryRow(ctx, t.forUpdate(`SELECT amount FROM token_balances WHERE holder = $1 AND mint = $2`),
		account.Holder.String(), account.Mint.String()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return fromNumeric(amount)
}

func (t *ledgerTx) Credit(ctx context.Context, account domain.TokenAccount, amount uint64) error {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `INSERT INTO token_balances (holder, mint, amount) VALUES ($1, $2, $3)
ON CONFLICT (holder, mint) DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
RETURNING amount`,
		account.Holder.String(), account.Mint.String(), toNumeric(amount)).Scan(&total)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if total.GreaterThan(maxAmount) {
		return domain.ErrBalanceOverflow
	}
	return nil
}

func (t *ledgerTx) Debit(ctx context.Context, account domain.TokenAccount, amount uint64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE token_balances SET amount = amount - $3 WHERE holder = $1 AND mint = $2 AND amount >= $3`,
		account.Holder.String(), account.Mint.String(), toNumeric(amount))
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

var maxAmount = decimal.NewFromUint64(math.MaxUint64)

// toNumeric and fromNumeric carry uint64 amounts through NUMERIC(20,0)
// columns, which hold the full unsigned range unlike BIGINT.
func toNumeric(v uint64) decimal.Decimal {
	return decimal.NewFromUint64(v)
}

func fromNumeric(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || d.GreaterThan(maxAmount) || !d.IsInteger() {
		return 0, fmt.Errorf("numeric %s is not a token amount", d)
	}
	return d.BigInt().Uint64(), nil
}

func parseKey(s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("stored key %q: %w", s, err)
	}
	return key, nil
}

func parseKeys(ss ...string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, len(ss))
	for i, s := range ss {
		key, err := parseKey(s)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}
