package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// OpenCampaign is a pooled offer with no counterparty bound at creation.
// The settlement authority resolves it once.
type OpenCampaign struct {
	Address         solana.PublicKey   `json:"address"`
	ID              uint64             `json:"id"`
	Counter         uint64             `json:"counter"`
	CreatorAddress  solana.PublicKey   `json:"creator_address"`
	TokenMint       solana.PublicKey   `json:"token_mint"`
	PoolAmount      uint64             `json:"pool_amount"`
	PromotionEndsIn time.Time          `json:"promotion_ends_in"`
	CreatedAt       time.Time          `json:"created_at"`
	CampaignStatus  OpenCampaignStatus `json:"campaign_status"`
}

// TransitionTo moves the open campaign to a terminal state.
func (c *OpenCampaign) TransitionTo(to OpenCampaignStatus) error {
	if !c.CampaignStatus.CanTransition(to) {
		return ErrInvalidState
	}
	c.CampaignStatus = to
	return nil
}

// Outcome maps the settlement authority's verdict to a terminal status.
func Outcome(fulfilled bool) OpenCampaignStatus {
	if fulfilled {
		return OpenCampaignFulfilled
	}
	return OpenCampaignDiscarded
}
