// Package settlement moves funds out of campaign escrow accounts on
// terminal transitions.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

const (
	// Divider is the basis-point denominator for fee shares.
	Divider uint64 = 10_000
	// DefaultKolShareBps pays the KOL 90% of a fulfilled campaign.
	DefaultKolShareBps uint64 = 9_000
)

var ErrInvalidShare = errors.New("KOL share must be within [0, 10000] basis points")

// FeeSplit divides an escrow balance between the KOL and the settlement
// authority. The KOL part is floored; the authority takes the remainder so
// both parts always sum to the balance.
type FeeSplit struct {
	kolBps uint64
}

func NewFeeSplit(kolBps uint64) (FeeSplit, error) {
	if kolBps > Divider {
		return FeeSplit{}, ErrInvalidShare
	}
	return FeeSplit{kolBps: kolBps}, nil
}

// KolShareBps returns the configured KOL share in basis points.
func (f FeeSplit) KolShareBps() uint64 {
	return f.kolBps
}

// Split returns the KOL and owner amounts for balance. The product is
// computed at arbitrary precision, so balances near the uint64 limit do not
// overflow.
func (f FeeSplit) Split(balance uint64) (kol, owner uint64) {
	q, _ := decimal.NewFromUint64(balance).
		Mul(decimal.NewFromUint64(f.kolBps)).
		QuoRem(decimal.NewFromUint64(Divider), 0)
	kol = q.BigInt().Uint64()
	return kol, balance - kol
}

// Settle drains escrow into the listed transfers within the caller's
// instruction. The transfers must add up to the escrow balance exactly.
// Zero-amount legs are skipped. Any error leaves the instruction to be
// rolled back by the ledger.
func Settle(ctx context.Context, tx port.LedgerTx, escrow domain.TokenAccount, transfers []domain.Transfer) error {
	balance, err := tx.Balance(ctx, escrow)
	if err != nil {
		return fmt.Errorf("read escrow balance: %w", err)
	}

	total := decimal.Zero
	for _, t := range transfers {
		total = total.Add(decimal.NewFromUint64(t.Amount))
	}
	switch total.Cmp(decimal.NewFromUint64(balance)) {
	case 1:
		return fmt.Errorf("%w: moving %s, escrow holds %d", domain.ErrInsufficientFunds, total, balance)
	case -1:
		return fmt.Errorf("%w: moving %s, escrow holds %d", domain.ErrUnbalancedSettlement, total, balance)
	}

	for _, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		if err = tx.Debit(ctx, escrow, t.Amount); err != nil {
			return fmt.Errorf("debit escrow %s: %w", escrow.Holder, err)
		}
		if err = tx.Credit(ctx, domain.TokenAccount{Holder: t.To, Mint: escrow.Mint}, t.Amount); err != nil {
			return fmt.Errorf("credit %s: %w", t.To, err)
		}
	}
	return nil
}

// Drain moves the whole escrow balance to one recipient and returns the
// single transfer it made.
func Drain(ctx context.Context, tx port.LedgerTx, escrow domain.TokenAccount, to solana.PublicKey) (domain.Transfer, error) {
	balance, err := tx.Balance(ctx, escrow)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("read escrow balance: %w", err)
	}
	leg := domain.Transfer{To: to, Amount: balance}
	if err = Settle(ctx, tx, escrow, []domain.Transfer{leg}); err != nil {
		return domain.Transfer{}, err
	}
	return leg, nil
}
