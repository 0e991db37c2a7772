package httpadapter

import (
	"math"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// Decimals are ints on the wire: a []uint8 would be read as base64.
type initializeReq struct {
	AllowedTokens []solana.PublicKey `json:"allowed_tokens"`
	Decimals      []int              `json:"decimals"`
}

// handleInitialize creates the registry with the signer as owner.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req initializeReq
	if !decode(w, r, &req) {
		return
	}
	decimals := make([]uint8, len(req.Decimals))
	for i, d := range req.Decimals {
		if d < 0 || d > math.MaxUint8 {
			http.Error(w, "decimals out of range", http.StatusBadRequest)
			return
		}
		decimals[i] = uint8(d)
	}

	m, err := h.svc.Initialize(r.Context(), owner, req.AllowedTokens, decimals)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleGetMarketplace(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Marketplace(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}
