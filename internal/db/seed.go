package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kol-market/internal/config/configs"
	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

// Seed bootstraps the registry from cfg and credits the demo holders. It is
// safe to run on every start: an existing registry is kept as is, and
// holders are topped up only while below DemoAmount.
func Seed(ctx context.Context, uc port.MarketplaceUseCase, cfg configs.Program, logger *slog.Logger) error {
	if !cfg.Bootstrap() {
		return nil
	}
	owner, err := cfg.OwnerKey()
	if err != nil {
		return err
	}
	mints, err := cfg.MintKeys()
	if err != nil {
		return err
	}

	m, err := uc.Initialize(ctx, owner, mints, cfg.Decimals)
	switch {
	case errors.Is(err, domain.ErrAlreadyInitialized):
		if m, err = uc.Marketplace(ctx); err != nil {
			return fmt.Errorf("load registry: %w", err)
		}
		logger.Info("registry already initialized", slog.String("address", m.Address.String()))
	case err != nil:
		return fmt.Errorf("bootstrap registry: %w", err)
	default:
		logger.Info("registry bootstrapped", slog.String("address", m.Address.String()),
			slog.Int("tokens", len(m.AllowedTokens)))
	}

	holders, err := cfg.DemoHolderKeys()
	if err != nil {
		return err
	}
	for _, holder := range holders {
		for _, tok := range m.AllowedTokens {
			account := domain.TokenAccount{Holder: holder, Mint: tok.Mint}
			bal, err := uc.Balance(ctx, account)
			if err != nil {
				return fmt.Errorf("read demo balance: %w", err)
			}
			if bal.Amount >= cfg.DemoAmount {
				continue
			}
			if _, err = uc.Deposit(ctx, account, cfg.DemoAmount-bal.Amount); err != nil {
				return fmt.Errorf("fund demo holder %s: %w", holder, err)
			}
		}
	}
	if len(holders) > 0 {
		logger.Info("demo holders funded", slog.Int("holders", len(holders)), slog.Uint64("amount", cfg.DemoAmount))
	}
	return nil
}
