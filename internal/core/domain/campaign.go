package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Campaign is a creator's paid promotion offer bound to one KOL. Amounts
// are in the smallest unit of TokenMint. ID equals Counter, the registry
// sequence consumed at creation.
type Campaign struct {
	Address         solana.PublicKey `json:"address"`
	ID              uint64           `json:"id"`
	Counter         uint64           `json:"counter"`
	CreatorAddress  solana.PublicKey `json:"creator_address"`
	SelectedKol     solana.PublicKey `json:"selected_kol"`
	TokenMint       solana.PublicKey `json:"token_mint"`
	AmountOffered   uint64           `json:"amount_offered"`
	PromotionEndsIn time.Time        `json:"promotion_ends_in"`
	OfferEndsIn     time.Time        `json:"offer_ends_in"`
	CreatedAt       time.Time        `json:"created_at"`
	CampaignStatus  CampaignStatus   `json:"campaign_status"`
}

// CampaignTerms are the creator-controlled fields of a Campaign.
type CampaignTerms struct {
	SelectedKol     solana.PublicKey
	AmountOffered   uint64
	PromotionEndsIn time.Time
	OfferEndsIn     time.Time
}

// Validate checks the terms of a new campaign against the ledger time now.
func (t CampaignTerms) Validate(now time.Time) error {
	if err := t.ValidateUpdate(); err != nil {
		return err
	}
	if !t.OfferEndsIn.After(now) || !t.PromotionEndsIn.After(now) {
		return ErrInvalidTimeParameters
	}
	return nil
}

// ValidateUpdate checks replacement terms. Deadlines are taken as given;
// acceptance enforces OfferEndsIn.
func (t CampaignTerms) ValidateUpdate() error {
	if t.AmountOffered == 0 {
		return ErrInvalidAmount
	}
	if t.SelectedKol.IsZero() {
		return ErrInvalidKolAddress
	}
	return nil
}

// Apply overwrites the creator-controlled fields. It leaves identity and
// status untouched.
func (c *Campaign) Apply(t CampaignTerms) {
	c.SelectedKol = t.SelectedKol
	c.AmountOffered = t.AmountOffered
	c.PromotionEndsIn = t.PromotionEndsIn
	c.OfferEndsIn = t.OfferEndsIn
}

// TransitionTo moves the campaign along one edge of the state graph.
func (c *Campaign) TransitionTo(to CampaignStatus) error {
	if !c.CampaignStatus.CanTransition(to) {
		return ErrInvalidState
	}
	c.CampaignStatus = to
	return nil
}
