package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarketplaceState(t *testing.T) {
	usdc := solana.NewWallet().PublicKey()
	bonk := solana.NewWallet().PublicKey()

	m, err := NewMarketplaceState(solana.PublicKey{}, solana.NewWallet().PublicKey(), []solana.PublicKey{usdc, bonk}, []uint8{6, 5})
	require.NoError(t, err)
	assert.True(t, m.IsTokenAllowed(bonk))
	assert.False(t, m.IsTokenAllowed(solana.NewWallet().PublicKey()))

	tok, ok := m.Token(usdc)
	require.True(t, ok)
	assert.Equal(t, uint8(6), tok.Decimals)
	assert.Equal(t, usdc, m.AllowedTokens[0].Mint, "insertion order is kept")

	assert.Equal(t, uint64(0), m.NextSequence())
	assert.Equal(t, uint64(1), m.NextSequence())
	assert.Equal(t, uint64(2), m.CampaignCounter)

	_, err = NewMarketplaceState(solana.PublicKey{}, solana.PublicKey{}, []solana.PublicKey{{}}, []uint8{6})
	require.ErrorIs(t, err, ErrInvalidTokenConfig)
}

func TestCampaignTermsValidate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ok := CampaignTerms{
		SelectedKol:     solana.NewWallet().PublicKey(),
		AmountOffered:   1,
		PromotionEndsIn: now.Add(time.Hour),
		OfferEndsIn:     now.Add(time.Minute),
	}
	require.NoError(t, ok.Validate(now))

	noAmount := ok
	noAmount.AmountOffered = 0
	require.ErrorIs(t, noAmount.Validate(now), ErrInvalidAmount)

	noKol := ok
	noKol.SelectedKol = solana.PublicKey{}
	require.ErrorIs(t, noKol.Validate(now), ErrInvalidKolAddress)

	late := ok
	late.OfferEndsIn = now
	require.ErrorIs(t, late.Validate(now), ErrInvalidTimeParameters)
	require.NoError(t, late.ValidateUpdate())
	require.ErrorIs(t, noAmount.ValidateUpdate(), ErrInvalidAmount)
	require.ErrorIs(t, noKol.ValidateUpdate(), ErrInvalidKolAddress)
}

func TestInstructionError(t *testing.T) {
	err := NewInstructionError("accept_project_campaign", ErrUnauthorized)
	assert.Equal(t, "accept_project_campaign: unauthorized access", err.Error())
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.True(t, IsClientError(err))
	assert.False(t, IsClientError(errors.New("connection reset")))
	assert.Nil(t, NewInstructionError("noop", nil))
}

func TestUIAmount(t *testing.T) {
	assert.Equal(t, "1.5", UIAmount(1_500_000, 6).String())
	assert.Equal(t, "42", UIAmount(42, 0).String())
}
