package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// TokenAccount identifies a balance held by Holder in Mint. An escrow is
// the TokenAccount whose holder is a campaign address.
type TokenAccount struct {
	Holder solana.PublicKey `json:"holder"`
	Mint   solana.PublicKey `json:"mint"`
}

// Transfer is one leg of a settlement.
type Transfer struct {
	To     solana.PublicKey `json:"to"`
	Amount uint64           `json:"amount"`
}

// UIAmount renders a raw amount using the token's decimal precision.
func UIAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}
