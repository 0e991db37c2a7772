package port

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"kol-market/internal/core/address"
	"kol-market/internal/core/domain"
)

// MarketplaceUseCase is the instruction surface of the marketplace program.
// The first identity argument of every mutating call is the signer.
type MarketplaceUseCase interface {
	Initialize(ctx context.Context, owner solana.PublicKey, mints []solana.PublicKey, decimals []uint8) (*domain.MarketplaceState, error)
	Marketplace(ctx context.Context) (*domain.MarketplaceState, error)

	CreateNewCampaign(ctx context.Context, creator solana.PublicKey, req CreateCampaignReq) (*domain.Campaign, error)
	UpdateCampaign(ctx context.Context, creator, campaign solana.PublicKey, terms domain.CampaignTerms) (*domain.Campaign, error)
	AcceptProjectCampaign(ctx context.Context, kol, campaign solana.PublicKey) (*domain.Campaign, error)
	FulfilProjectCampaign(ctx context.Context, owner, campaign solana.PublicKey) (*SettlementResp, error)
	DiscardProjectCampaign(ctx context.Context, creator, campaign solana.PublicKey) (*SettlementResp, error)
	Campaign(ctx context.Context, campaign solana.PublicKey) (*domain.Campaign, error)

	CreateOpenCampaign(ctx context.Context, creator solana.PublicKey, req CreateOpenCampaignReq) (*domain.OpenCampaign, error)
	CompleteOpenCampaign(ctx context.Context, owner, campaign solana.PublicKey, outcome bool) (*SettlementResp, error)
	OpenCampaign(ctx context.Context, campaign solana.PublicKey) (*domain.OpenCampaign, error)

	// Deposit credits a token account. It stands in for the external
	// funding step and is not an instruction of the program itself.
	Deposit(ctx context.Context, account domain.TokenAccount, amount uint64) (*BalanceResp, error)
	Balance(ctx context.Context, account domain.TokenAccount) (*BalanceResp, error)

	// DeriveAddress re-derives a campaign or open campaign address from
	// its public inputs.
	DeriveAddress(ns address.Namespace, owner solana.PublicKey, counter uint64) (solana.PublicKey, error)
}

type CreateCampaignReq struct {
	TokenMint       solana.PublicKey
	SelectedKol     solana.PublicKey
	AmountOffered   uint64
	PromotionEndsIn time.Time
	OfferEndsIn     time.Time
}

type CreateOpenCampaignReq struct {
	TokenMint       solana.PublicKey
	PoolAmount      uint64
	PromotionEndsIn time.Time
}

// SettlementResp reports the terminal status and the fund movements of a
// settling instruction.
type SettlementResp struct {
	Address   solana.PublicKey  `json:"address"`
	Status    string            `json:"status"`
	Escrow    uint64            `json:"escrow"`
	Transfers []domain.Transfer `json:"transfers"`
}

// BalanceResp is a token account balance in raw and display units.
type BalanceResp struct {
	Account  domain.TokenAccount `json:"account"`
	Amount   uint64              `json:"amount"`
	UIAmount string              `json:"ui_amount"`
}
