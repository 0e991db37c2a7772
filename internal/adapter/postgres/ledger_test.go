package postgres

import (
	"context"
	"errors"
	"math"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kol-market/internal/config/configs"
	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
	"kol-market/internal/db"
)

func TestFromNumeric(t *testing.T) {
	tests := []struct {
		name    string
		in      decimal.Decimal
		want    uint64
		wantErr bool
	}{
		{name: "zero", in: decimal.Zero, want: 0},
		{name: "small", in: decimal.NewFromInt(1_000_000), want: 1_000_000},
		{name: "max", in: decimal.NewFromUint64(math.MaxUint64), want: math.MaxUint64},
		{name: "above max", in: decimal.NewFromUint64(math.MaxUint64).Add(decimal.NewFromInt(1)), wantErr: true},
		{name: "negative", in: decimal.NewFromInt(-1), wantErr: true},
		{name: "fraction", in: decimal.RequireFromString("1.5"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromNumeric(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, toNumeric(got).Equal(tt.in))
		})
	}
}

func TestParseKeys(t *testing.T) {
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	keys, err := parseKeys(a.String(), b.String())
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{a, b}, keys)

	_, err = parseKeys(a.String(), "not-a-key")
	assert.ErrorContains(t, err, "not-a-key")
}

func TestForUpdate(t *testing.T) {
	q := `SELECT amount FROM token_balances WHERE holder = $1`
	assert.Equal(t, q+" FOR UPDATE", (&ledgerTx{lock: true}).forUpdate(q))
	assert.Equal(t, q, (&ledgerTx{}).forUpdate(q))
}

// recordingTx counts commits and rollbacks. Other pgx.Tx methods are not
// used by runInTx and panic through the nil embedded interface.
type recordingTx struct {
	pgx.Tx
	commitErr error
	commits   int
	rollbacks int
}

func (tx *recordingTx) Commit(context.Context) error {
	tx.commits++
	return tx.commitErr
}

func (tx *recordingTx) Rollback(context.Context) error {
	tx.rollbacks++
	return nil
}

type recordingBeginner struct {
	tx  *recordingTx
	err error
}

func (b recordingBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}

	t.Run("commit", func(t *testing.T) {
		tx := &recordingTx{}
		err := runInTx(ctx, recordingBeginner{tx: tx}, opts, func(pgx.Tx) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, 1, tx.commits)
		assert.Zero(t, tx.rollbacks)
	})

	t.Run("error rolls back", func(t *testing.T) {
		tx := &recordingTx{}
		err := runInTx(ctx, recordingBeginner{tx: tx}, opts, func(pgx.Tx) error { return domain.ErrInsufficientFunds })
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Zero(t, tx.commits)
		assert.Equal(t, 1, tx.rollbacks)
	})

	t.Run("panic rolls back", func(t *testing.T) {
		tx := &recordingTx{}
		assert.Panics(t, func() {
			_ = runInTx(ctx, recordingBeginner{tx: tx}, opts, func(pgx.Tx) error { panic("boom") })
		})
		assert.Zero(t, tx.commits)
		assert.Equal(t, 1, tx.rollbacks)
	})

	t.Run("failed commit rolls back", func(t *testing.T) {
		tx := &recordingTx{commitErr: errors.New("serialization failure")}
		err := runInTx(ctx, recordingBeginner{tx: tx}, opts, func(pgx.Tx) error { return nil })
		require.ErrorContains(t, err, "commit instruction")
		assert.Equal(t, 1, tx.rollbacks)
	})

	t.Run("begin failure", func(t *testing.T) {
		called := false
		err := runInTx(ctx, recordingBeginner{err: errors.New("pool closed")}, opts, func(pgx.Tx) error {
			called = true
			return nil
		})
		require.ErrorContains(t, err, "begin instruction")
		assert.False(t, called)
	})
}

// newTestLedger connects to the database named by PSQL_TEST_ADDRESS and
// applies migrations. Tests using it are skipped when the variable is unset.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	raw := os.Getenv("PSQL_TEST_ADDRESS")
	if raw == "" {
		t.Skip("PSQL_TEST_ADDRESS not set")
	}
	addr, err := url.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(addr.String()))

	pool, err := db.NewPostgresPool(context.Background(), configs.Postgres{Addr: *addr})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewLedger(pool)
}

func TestLedgerRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	registry := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	m, err := domain.NewMarketplaceState(registry, owner, []solana.PublicKey{mint}, []uint8{6})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &domain.Campaign{
		Address:         solana.NewWallet().PublicKey(),
		CreatorAddress:  solana.NewWallet().PublicKey(),
		SelectedKol:     solana.NewWallet().PublicKey(),
		TokenMint:       mint,
		AmountOffered:   math.MaxUint64,
		PromotionEndsIn: now.Add(48 * time.Hour),
		OfferEndsIn:     now.Add(24 * time.Hour),
		CreatedAt:       now,
	}
	escrow := domain.TokenAccount{Holder: c.Address, Mint: mint}

	err = l.Execute(ctx, func(tx port.LedgerTx) error {
		if err := tx.CreateMarketplace(ctx, m); err != nil {
			return err
		}
		c.Counter = m.NextSequence()
		c.ID = c.Counter
		if err := tx.SaveMarketplace(ctx, m); err != nil {
			return err
		}
		if err := tx.CreateCampaign(ctx, c); err != nil {
			return err
		}
		return tx.Credit(ctx, escrow, c.AmountOffered)
	})
	require.NoError(t, err)

	err = l.View(ctx, func(r port.LedgerReader) error {
		got, err := r.Marketplace(ctx, registry)
		require.NoError(t, err)
		assert.Equal(t, m, got)

		gotCampaign, err := r.Campaign(ctx, c.Address)
		require.NoError(t, err)
		assert.Equal(t, c, gotCampaign)

		bal, err := r.Balance(ctx, escrow)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), bal)
		return nil
	})
	require.NoError(t, err)

	err = l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.Credit(ctx, escrow, 1)
	})
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)

	err = l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.CreateMarketplace(ctx, m)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestLedgerRollback(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	account := domain.TokenAccount{Holder: solana.NewWallet().PublicKey(), Mint: solana.NewWallet().PublicKey()}

	err := l.Execute(ctx, func(tx port.LedgerTx) error {
		if err := tx.Credit(ctx, account, 10); err != nil {
			return err
		}
		return tx.Debit(ctx, account, 11)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	err = l.View(ctx, func(r port.LedgerReader) error {
		bal, err := r.Balance(ctx, account)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	})
	require.NoError(t, err)
}
