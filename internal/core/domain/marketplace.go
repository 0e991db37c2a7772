package domain

import (
	"slices"

	"github.com/gagliardetto/solana-go"
)

// AllowedToken is a fund denomination accepted by the marketplace together
// with its decimal precision.
type AllowedToken struct {
	Mint     solana.PublicKey `json:"mint"`
	Decimals uint8            `json:"decimals"`
}

// MarketplaceState is the singleton registry record. AllowedTokens keeps
// insertion order. CampaignCounter is shared by campaigns and open
// campaigns and only ever grows.
type MarketplaceState struct {
	Address         solana.PublicKey `json:"address"`
	Owner           solana.PublicKey `json:"owner"`
	AllowedTokens   []AllowedToken   `json:"allowed_tokens"`
	CampaignCounter uint64           `json:"campaign_counter"`
}

// NewMarketplaceState validates the token configuration and returns a
// registry with a zero counter.
func NewMarketplaceState(address, owner solana.PublicKey, mints []solana.PublicKey, decimals []uint8) (*MarketplaceState, error) {
	if len(mints) != len(decimals) {
		return nil, ErrInvalidTokenConfig
	}
	tokens := make([]AllowedToken, 0, len(mints))
	for i, mint := range mints {
		if mint.IsZero() {
			return nil, ErrInvalidTokenConfig
		}
		if slices.ContainsFunc(tokens, func(t AllowedToken) bool { return t.Mint.Equals(mint) }) {
			return nil, ErrInvalidTokenConfig
		}
		tokens = append(tokens, AllowedToken{Mint: mint, Decimals: decimals[i]})
	}
	return &MarketplaceState{Address: address, Owner: owner, AllowedTokens: tokens}, nil
}

// Token returns the allowed token entry for mint.
func (m *MarketplaceState) Token(mint solana.PublicKey) (AllowedToken, bool) {
	i := slices.IndexFunc(m.AllowedTokens, func(t AllowedToken) bool { return t.Mint.Equals(mint) })
	if i < 0 {
		return AllowedToken{}, false
	}
	return m.AllowedTokens[i], true
}

// IsTokenAllowed reports whether mint is in the allow-list.
func (m *MarketplaceState) IsTokenAllowed(mint solana.PublicKey) bool {
	_, ok := m.Token(mint)
	return ok
}

// NextSequence returns the current counter value and advances it. The
// caller must persist the registry in the same instruction.
func (m *MarketplaceState) NextSequence() uint64 {
	seq := m.CampaignCounter
	m.CampaignCounter++
	return seq
}
