package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

func TestExecuteDiscardsWritesOnError(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	acct := domain.TokenAccount{Holder: solana.NewWallet().PublicKey(), Mint: solana.NewWallet().PublicKey()}
	boom := errors.New("boom")

	err := l.Execute(ctx, func(tx port.LedgerTx) error {
		require.NoError(t, tx.Credit(ctx, acct, 100))
		b, err := tx.Balance(ctx, acct)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), b, "writes are visible inside the instruction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, l.View(ctx, func(r port.LedgerReader) error {
		b, err := r.Balance(ctx, acct)
		assert.Equal(t, uint64(0), b)
		return err
	}))
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	registry := solana.NewWallet().PublicKey()
	m := &domain.MarketplaceState{Address: registry, Owner: solana.NewWallet().PublicKey()}

	require.NoError(t, l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.CreateMarketplace(ctx, m)
	}))

	err := l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.CreateMarketplace(ctx, m)
	})
	require.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	require.NoError(t, l.Execute(ctx, func(tx port.LedgerTx) error {
		got, err := tx.Marketplace(ctx, registry)
		if err != nil {
			return err
		}
		got.NextSequence()
		return tx.SaveMarketplace(ctx, got)
	}))

	require.NoError(t, l.View(ctx, func(r port.LedgerReader) error {
		got, err := r.Marketplace(ctx, registry)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.CampaignCounter)
		return nil
	}))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	c := &domain.Campaign{Address: solana.NewWallet().PublicKey(), AmountOffered: 5}

	require.NoError(t, l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.CreateCampaign(ctx, c)
	}))
	c.AmountOffered = 99

	require.NoError(t, l.View(ctx, func(r port.LedgerReader) error {
		got, err := r.Campaign(ctx, c.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), got.AmountOffered)
		got.CampaignStatus = domain.CampaignDiscarded
		return nil
	}))

	require.NoError(t, l.View(ctx, func(r port.LedgerReader) error {
		got, err := r.Campaign(ctx, c.Address)
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignOpen, got.CampaignStatus)
		return nil
	}))
}

func TestDebitAndMissingRecords(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	acct := domain.TokenAccount{Holder: solana.NewWallet().PublicKey(), Mint: solana.NewWallet().PublicKey()}

	err := l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.Debit(ctx, acct, 1)
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	err = l.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.SaveOpenCampaign(ctx, &domain.OpenCampaign{Address: acct.Holder})
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = l.View(ctx, func(r port.LedgerReader) error {
		_, err := r.Marketplace(ctx, acct.Holder)
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestCancelledContext(t *testing.T) {
	l := NewLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Execute(ctx, func(port.LedgerTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
