package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"kol-market/internal/core/address"
	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
	"kol-market/internal/core/settlement"
)

// MarketplaceUseCase implements the marketplace program. Every mutating
// method runs as a single ledger instruction and re-validates the record
// status inside it, so of two racing instructions against the same record
// only the first to execute can win.
type MarketplaceUseCase struct {
	ledger   port.Ledger
	events   port.EventPublisher
	deriver  address.Deriver
	registry solana.PublicKey
	split    settlement.FeeSplit
	clock    func() time.Time
	logger   *slog.Logger
}

// Option customises a MarketplaceUseCase.
type Option func(*MarketplaceUseCase)

// WithClock overrides the ledger clock. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(u *MarketplaceUseCase) { u.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *MarketplaceUseCase) { u.logger = logger }
}

// WithEventPublisher sets where committed instruction events go. Without
// one, events are only logged.
func WithEventPublisher(p port.EventPublisher) Option {
	return func(u *MarketplaceUseCase) { u.events = p }
}

// WithFeeSplit overrides the 90/10 KOL/owner split.
func WithFeeSplit(split settlement.FeeSplit) Option {
	return func(u *MarketplaceUseCase) { u.split = split }
}

// NewMarketplaceUseCase creates the program bound to programID.
func NewMarketplaceUseCase(ledger port.Ledger, programID solana.PublicKey, opts ...Option) (*MarketplaceUseCase, error) {
	deriver := address.Deriver{ProgramID: programID}
	registry, err := deriver.Registry()
	if err != nil {
		return nil, err
	}
	split, _ := settlement.NewFeeSplit(settlement.DefaultKolShareBps)
	u := &MarketplaceUseCase{
		ledger:   ledger,
		deriver:  deriver,
		registry: registry,
		split:    split,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

var _ port.MarketplaceUseCase = (*MarketplaceUseCase)(nil)

// Initialize creates the registry. It can only succeed once.
func (u *MarketplaceUseCase) Initialize(ctx context.Context, owner solana.PublicKey, mints []solana.PublicKey, decimals []uint8) (*domain.MarketplaceState, error) {
	const op = "initialize"
	m, err := domain.NewMarketplaceState(u.registry, owner, mints, decimals)
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	err = u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		return tx.CreateMarketplace(ctx, m)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.logger.InfoContext(ctx, "marketplace initialized",
		slog.String("registry", m.Address.String()),
		slog.String("owner", owner.String()),
		slog.Int("allowed_tokens", len(m.AllowedTokens)))
	return m, nil
}

// Marketplace returns the registry.
func (u *MarketplaceUseCase) Marketplace(ctx context.Context) (*domain.MarketplaceState, error) {
	var m *domain.MarketplaceState
	err := u.ledger.View(ctx, func(r port.LedgerReader) (err error) {
		m, err = r.Marketplace(ctx, u.registry)
		return err
	})
	return m, err
}

// CreateNewCampaign reserves the next registry sequence and opens a
// campaign at the address derived from (creator, sequence).
func (u *MarketplaceUseCase) CreateNewCampaign(ctx context.Context, creator solana.PublicKey, req port.CreateCampaignReq) (*domain.Campaign, error) {
	const op = "create_new_campaign"
	now := u.now()
	terms := domain.CampaignTerms{
		SelectedKol:     req.SelectedKol,
		AmountOffered:   req.AmountOffered,
		PromotionEndsIn: req.PromotionEndsIn,
		OfferEndsIn:     req.OfferEndsIn,
	}
	if err := terms.Validate(now); err != nil {
		return nil, u.fail(ctx, op, err)
	}

	var c *domain.Campaign
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		m, err := tx.Marketplace(ctx, u.registry)
		if err != nil {
			return err
		}
		if !m.IsTokenAllowed(req.TokenMint) {
			return domain.ErrTokenNotAllowed
		}
		seq := m.NextSequence()
		addr, err := u.deriver.Campaign(creator, seq)
		if err != nil {
			return err
		}
		c = &domain.Campaign{
			Address:        addr,
			ID:             seq,
			Counter:        seq,
			CreatorAddress: creator,
			TokenMint:      req.TokenMint,
			CreatedAt:      now,
			CampaignStatus: domain.CampaignOpen,
		}
		c.Apply(terms)
		if err = tx.CreateCampaign(ctx, c); err != nil {
			return err
		}
		return tx.SaveMarketplace(ctx, m)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventCampaignCreated,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      creator,
		Status:     c.CampaignStatus.String(),
	})
	return c, nil
}

// UpdateCampaign overwrites the terms of an Open campaign.
func (u *MarketplaceUseCase) UpdateCampaign(ctx context.Context, creator, campaign solana.PublicKey, terms domain.CampaignTerms) (*domain.Campaign, error) {
	const op = "update_campaign"

	var c *domain.Campaign
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) (err error) {
		c, err = tx.Campaign(ctx, campaign)
		if err != nil {
			return err
		}
		if !c.CreatorAddress.Equals(creator) {
			return domain.ErrUnauthorized
		}
		if c.CampaignStatus != domain.CampaignOpen {
			return domain.ErrInvalidState
		}
		if err = terms.ValidateUpdate(); err != nil {
			return err
		}
		c.Apply(terms)
		return tx.SaveCampaign(ctx, c)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventCampaignUpdated,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      creator,
		Status:     c.CampaignStatus.String(),
	})
	return c, nil
}

// AcceptProjectCampaign lets the selected KOL take an Open offer before
// it expires.
func (u *MarketplaceUseCase) AcceptProjectCampaign(ctx context.Context, kol, campaign solana.PublicKey) (*domain.Campaign, error) {
	const op = "accept_project_campaign"
	now := u.now()

	var c *domain.Campaign
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) (err error) {
		c, err = tx.Campaign(ctx, campaign)
		if err != nil {
			return err
		}
		if !c.SelectedKol.Equals(kol) {
			return domain.ErrUnauthorized
		}
		if c.CampaignStatus != domain.CampaignOpen {
			return domain.ErrInvalidState
		}
		if now.After(c.OfferEndsIn) {
			return domain.ErrCampaignExpired
		}
		if err = c.TransitionTo(domain.CampaignAccepted); err != nil {
			return err
		}
		return tx.SaveCampaign(ctx, c)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventCampaignAccepted,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      kol,
		Status:     c.CampaignStatus.String(),
	})
	return c, nil
}

// FulfilProjectCampaign pays out an Accepted campaign: the KOL receives
// the floored KOL share of the escrow balance and the owner the rest.
func (u *MarketplaceUseCase) FulfilProjectCampaign(ctx context.Context, owner, campaign solana.PublicKey) (*port.SettlementResp, error) {
	const op = "fulfil_project_campaign"

	var (
		c    *domain.Campaign
		resp *port.SettlementResp
	)
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		m, err := tx.Marketplace(ctx, u.registry)
		if err != nil {
			return err
		}
		if !m.Owner.Equals(owner) {
			return domain.ErrUnauthorized
		}
		if c, err = tx.Campaign(ctx, campaign); err != nil {
			return err
		}
		if c.CampaignStatus != domain.CampaignAccepted {
			return domain.ErrInvalidState
		}

		escrow := domain.TokenAccount{Holder: c.Address, Mint: c.TokenMint}
		balance, err := tx.Balance(ctx, escrow)
		if err != nil {
			return err
		}
		if balance < c.AmountOffered {
			return fmt.Errorf("%w: escrow holds %d of %d offered", domain.ErrInsufficientFunds, balance, c.AmountOffered)
		}
		kolAmount, ownerAmount := u.split.Split(balance)
		transfers := []domain.Transfer{
			{To: c.SelectedKol, Amount: kolAmount},
			{To: m.Owner, Amount: ownerAmount},
		}
		if err = settlement.Settle(ctx, tx, escrow, transfers); err != nil {
			return err
		}
		if err = c.TransitionTo(domain.CampaignFulfilled); err != nil {
			return err
		}
		resp = &port.SettlementResp{Address: c.Address, Status: c.CampaignStatus.String(), Escrow: balance, Transfers: transfers}
		return tx.SaveCampaign(ctx, c)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventCampaignFulfilled,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      owner,
		Status:     resp.Status,
		Transfers:  resp.Transfers,
	})
	return resp, nil
}

// DiscardProjectCampaign cancels an Open or Accepted campaign and refunds
// the whole escrow balance to the creator.
func (u *MarketplaceUseCase) DiscardProjectCampaign(ctx context.Context, creator, campaign solana.PublicKey) (*port.SettlementResp, error) {
	const op = "discard_project_campaign"

	var (
		c    *domain.Campaign
		resp *port.SettlementResp
	)
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) (err error) {
		if c, err = tx.Campaign(ctx, campaign); err != nil {
			return err
		}
		if !c.CreatorAddress.Equals(creator) {
			return domain.ErrUnauthorized
		}
		if !c.CampaignStatus.CanTransition(domain.CampaignDiscarded) {
			return domain.ErrInvalidState
		}
		escrow := domain.TokenAccount{Holder: c.Address, Mint: c.TokenMint}
		refund, err := settlement.Drain(ctx, tx, escrow, c.CreatorAddress)
		if err != nil {
			return err
		}
		if err = c.TransitionTo(domain.CampaignDiscarded); err != nil {
			return err
		}
		resp = &port.SettlementResp{
			Address:   c.Address,
			Status:    c.CampaignStatus.String(),
			Escrow:    refund.Amount,
			Transfers: []domain.Transfer{refund},
		}
		return tx.SaveCampaign(ctx, c)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventCampaignDiscarded,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      creator,
		Status:     resp.Status,
		Transfers:  resp.Transfers,
	})
	return resp, nil
}

// Campaign returns the campaign stored at address.
func (u *MarketplaceUseCase) Campaign(ctx context.Context, campaign solana.PublicKey) (*domain.Campaign, error) {
	var c *domain.Campaign
	err := u.ledger.View(ctx, func(r port.LedgerReader) (err error) {
		c, err = r.Campaign(ctx, campaign)
		return err
	})
	return c, err
}

// CreateOpenCampaign reserves the next registry sequence and publishes a
// pool with no bound counterparty.
func (u *MarketplaceUseCase) CreateOpenCampaign(ctx context.Context, creator solana.PublicKey, req port.CreateOpenCampaignReq) (*domain.OpenCampaign, error) {
	const op = "create_open_campaign"
	now := u.now()
	if req.PoolAmount == 0 {
		return nil, u.fail(ctx, op, domain.ErrInvalidAmount)
	}
	if !req.PromotionEndsIn.After(now) {
		return nil, u.fail(ctx, op, domain.ErrInvalidTimeParameters)
	}

	var c *domain.OpenCampaign
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		m, err := tx.Marketplace(ctx, u.registry)
		if err != nil {
			return err
		}
		if !m.IsTokenAllowed(req.TokenMint) {
			return domain.ErrTokenNotAllowed
		}
		seq := m.NextSequence()
		addr, err := u.deriver.OpenCampaign(creator, seq)
		if err != nil {
			return err
		}
		c = &domain.OpenCampaign{
			Address:         addr,
			ID:              seq,
			Counter:         seq,
			CreatorAddress:  creator,
			TokenMint:       req.TokenMint,
			PoolAmount:      req.PoolAmount,
			PromotionEndsIn: req.PromotionEndsIn,
			CreatedAt:       now,
			CampaignStatus:  domain.OpenCampaignPublished,
		}
		if err = tx.CreateOpenCampaign(ctx, c); err != nil {
			return err
		}
		return tx.SaveMarketplace(ctx, m)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventOpenCampaignCreated,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      creator,
		Status:     c.CampaignStatus.String(),
	})
	return c, nil
}

// CompleteOpenCampaign resolves a Published pool. A fulfilled pool is paid
// to the owner in full; a discarded one is refunded to its creator.
func (u *MarketplaceUseCase) CompleteOpenCampaign(ctx context.Context, owner, campaign solana.PublicKey, outcome bool) (*port.SettlementResp, error) {
	const op = "complete_open_campaign"

	var (
		c    *domain.OpenCampaign
		resp *port.SettlementResp
	)
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		m, err := tx.Marketplace(ctx, u.registry)
		if err != nil {
			return err
		}
		if !m.Owner.Equals(owner) {
			return domain.ErrUnauthorized
		}
		if c, err = tx.OpenCampaign(ctx, campaign); err != nil {
			return err
		}
		target := domain.Outcome(outcome)
		if !c.CampaignStatus.CanTransition(target) {
			return domain.ErrInvalidState
		}
		recipient := c.CreatorAddress
		if outcome {
			recipient = m.Owner
		}
		escrow := domain.TokenAccount{Holder: c.Address, Mint: c.TokenMint}
		payout, err := settlement.Drain(ctx, tx, escrow, recipient)
		if err != nil {
			return err
		}
		if err = c.TransitionTo(target); err != nil {
			return err
		}
		resp = &port.SettlementResp{
			Address:   c.Address,
			Status:    c.CampaignStatus.String(),
			Escrow:    payout.Amount,
			Transfers: []domain.Transfer{payout},
		}
		return tx.SaveOpenCampaign(ctx, c)
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.emit(ctx, domain.Event{
		Type:       domain.EventOpenCampaignCompleted,
		Address:    c.Address,
		CampaignID: c.ID,
		Actor:      owner,
		Status:     resp.Status,
		Transfers:  resp.Transfers,
	})
	return resp, nil
}

// OpenCampaign returns the open campaign stored at address.
func (u *MarketplaceUseCase) OpenCampaign(ctx context.Context, campaign solana.PublicKey) (*domain.OpenCampaign, error) {
	var c *domain.OpenCampaign
	err := u.ledger.View(ctx, func(r port.LedgerReader) (err error) {
		c, err = r.OpenCampaign(ctx, campaign)
		return err
	})
	return c, err
}

// Deposit credits account with amount of an allowed token.
func (u *MarketplaceUseCase) Deposit(ctx context.Context, account domain.TokenAccount, amount uint64) (*port.BalanceResp, error) {
	const op = "deposit"
	if amount == 0 {
		return nil, u.fail(ctx, op, domain.ErrInvalidAmount)
	}
	var resp *port.BalanceResp
	err := u.ledger.Execute(ctx, func(tx port.LedgerTx) error {
		m, err := tx.Marketplace(ctx, u.registry)
		if err != nil {
			return err
		}
		token, ok := m.Token(account.Mint)
		if !ok {
			return domain.ErrTokenNotAllowed
		}
		if err = tx.Credit(ctx, account, amount); err != nil {
			return err
		}
		balance, err := tx.Balance(ctx, account)
		if err != nil {
			return err
		}
		resp = balanceResp(account, balance, token.Decimals)
		return nil
	})
	if err != nil {
		return nil, u.fail(ctx, op, err)
	}
	u.logger.DebugContext(ctx, "account funded",
		slog.String("holder", account.Holder.String()),
		slog.String("mint", account.Mint.String()),
		slog.String("ui_amount", resp.UIAmount))
	return resp, nil
}

// Balance returns the balance of account. Unknown mints are rendered with
// zero decimals.
func (u *MarketplaceUseCase) Balance(ctx context.Context, account domain.TokenAccount) (*port.BalanceResp, error) {
	var resp *port.BalanceResp
	err := u.ledger.View(ctx, func(r port.LedgerReader) error {
		var decimals uint8
		m, err := r.Marketplace(ctx, u.registry)
		switch {
		case err == nil:
			if token, ok := m.Token(account.Mint); ok {
				decimals = token.Decimals
			}
		case !errors.Is(err, domain.ErrNotInitialized):
			return err
		}
		balance, err := r.Balance(ctx, account)
		if err != nil {
			return err
		}
		resp = balanceResp(account, balance, decimals)
		return nil
	})
	return resp, err
}

// DeriveAddress implements port.MarketplaceUseCase.
func (u *MarketplaceUseCase) DeriveAddress(ns address.Namespace, owner solana.PublicKey, counter uint64) (solana.PublicKey, error) {
	addr, _, err := address.Derive(u.deriver.ProgramID, ns, owner, counter)
	return addr, err
}

func balanceResp(account domain.TokenAccount, amount uint64, decimals uint8) *port.BalanceResp {
	return &port.BalanceResp{
		Account:  account,
		Amount:   amount,
		UIAmount: domain.UIAmount(amount, decimals).StringFixed(int32(decimals)),
	}
}

func (u *MarketplaceUseCase) now() time.Time {
	return u.clock().UTC()
}

// fail logs a rejected instruction and tags err with its name.
func (u *MarketplaceUseCase) fail(ctx context.Context, op string, err error) error {
	level := slog.LevelError
	if domain.IsClientError(err) {
		level = slog.LevelWarn
	}
	u.logger.Log(ctx, level, "instruction rejected", slog.String("instruction", op), slog.Any("error", err))
	return domain.NewInstructionError(op, err)
}

// emit publishes ev. The instruction has already committed, so a delivery
// failure is logged and otherwise ignored.
func (u *MarketplaceUseCase) emit(ctx context.Context, ev domain.Event) {
	ev.RequestID = uuid.NewString()
	ev.OccurredAt = u.now()
	u.logger.InfoContext(ctx, "instruction committed",
		slog.String("event", string(ev.Type)),
		slog.String("request_id", ev.RequestID),
		slog.String("address", ev.Address.String()),
		slog.Uint64("campaign_id", ev.CampaignID),
		slog.String("status", ev.Status))
	if u.events == nil {
		return
	}
	if err := u.events.Publish(ctx, ev); err != nil {
		u.logger.WarnContext(ctx, "event publish failed",
			slog.String("event", string(ev.Type)),
			slog.String("request_id", ev.RequestID),
			slog.Any("error", err))
	}
}
