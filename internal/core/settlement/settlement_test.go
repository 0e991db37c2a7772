package settlement

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kol-market/internal/adapter/memory"
	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

func TestFeeSplit(t *testing.T) {
	split, err := NewFeeSplit(DefaultKolShareBps)
	require.NoError(t, err)

	tests := []struct {
		balance uint64
		kol     uint64
		owner   uint64
	}{
		{balance: 0, kol: 0, owner: 0},
		{balance: 1, kol: 0, owner: 1},
		{balance: 9, kol: 8, owner: 1},
		{balance: 10, kol: 9, owner: 1},
		{balance: 11, kol: 9, owner: 2},
		{balance: 1_000_000, kol: 900_000, owner: 100_000},
		{balance: 1_000_005, kol: 900_004, owner: 100_001},
		{balance: math.MaxUint64, kol: 16602069666338596453, owner: 1844674407370955162},
	}
	for _, tt := range tests {
		kol, owner := split.Split(tt.balance)
		assert.Equal(t, tt.kol, kol, "kol share of %d", tt.balance)
		assert.Equal(t, tt.owner, owner, "owner share of %d", tt.balance)
		assert.Equal(t, tt.balance, kol+owner)
	}
}

func TestNewFeeSplitBounds(t *testing.T) {
	_, err := NewFeeSplit(Divider + 1)
	require.ErrorIs(t, err, ErrInvalidShare)

	all, err := NewFeeSplit(Divider)
	require.NoError(t, err)
	kol, owner := all.Split(777)
	assert.Equal(t, uint64(777), kol)
	assert.Equal(t, uint64(0), owner)
}

func seedEscrow(t *testing.T, l *memory.Ledger, escrow domain.TokenAccount, amount uint64) {
	t.Helper()
	require.NoError(t, l.Execute(context.Background(), func(tx port.LedgerTx) error {
		return tx.Credit(context.Background(), escrow, amount)
	}))
}

func balanceOf(t *testing.T, l *memory.Ledger, acct domain.TokenAccount) uint64 {
	t.Helper()
	var b uint64
	require.NoError(t, l.View(context.Background(), func(r port.LedgerReader) (err error) {
		b, err = r.Balance(context.Background(), acct)
		return err
	}))
	return b
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()
	escrow := domain.TokenAccount{Holder: solana.NewWallet().PublicKey(), Mint: mint}
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	t.Run("drains escrow exactly", func(t *testing.T) {
		l := memory.NewLedger()
		seedEscrow(t, l, escrow, 100)

		require.NoError(t, l.Execute(ctx, func(tx port.LedgerTx) error {
			return Settle(ctx, tx, escrow, []domain.Transfer{{To: a, Amount: 70}, {To: b, Amount: 30}, {To: b, Amount: 0}})
		}))
		assert.Equal(t, uint64(0), balanceOf(t, l, escrow))
		assert.Equal(t, uint64(70), balanceOf(t, l, domain.TokenAccount{Holder: a, Mint: mint}))
		assert.Equal(t, uint64(30), balanceOf(t, l, domain.TokenAccount{Holder: b, Mint: mint}))
	})

	t.Run("overdraw is all or nothing", func(t *testing.T) {
		l := memory.NewLedger()
		seedEscrow(t, l, escrow, 100)

		err := l.Execute(ctx, func(tx port.LedgerTx) error {
			return Settle(ctx, tx, escrow, []domain.Transfer{{To: a, Amount: 60}, {To: b, Amount: 60}})
		})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, uint64(100), balanceOf(t, l, escrow))
		assert.Equal(t, uint64(0), balanceOf(t, l, domain.TokenAccount{Holder: a, Mint: mint}))
	})

	t.Run("leftover is rejected", func(t *testing.T) {
		l := memory.NewLedger()
		seedEscrow(t, l, escrow, 100)

		err := l.Execute(ctx, func(tx port.LedgerTx) error {
			return Settle(ctx, tx, escrow, []domain.Transfer{{To: a, Amount: 99}})
		})
		require.ErrorIs(t, err, domain.ErrUnbalancedSettlement)
		assert.Equal(t, uint64(100), balanceOf(t, l, escrow))
	})

	t.Run("sum beyond uint64 does not wrap", func(t *testing.T) {
		l := memory.NewLedger()
		seedEscrow(t, l, escrow, 1)

		err := l.Execute(ctx, func(tx port.LedgerTx) error {
			return Settle(ctx, tx, escrow, []domain.Transfer{{To: a, Amount: math.MaxUint64}, {To: b, Amount: 2}})
		})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})
}

func TestDrainEmptyEscrow(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLedger()
	escrow := domain.TokenAccount{Holder: solana.NewWallet().PublicKey(), Mint: solana.NewWallet().PublicKey()}
	to := solana.NewWallet().PublicKey()

	var leg domain.Transfer
	require.NoError(t, l.Execute(ctx, func(tx port.LedgerTx) (err error) {
		leg, err = Drain(ctx, tx, escrow, to)
		return err
	}))
	assert.Equal(t, domain.Transfer{To: to, Amount: 0}, leg)
}
