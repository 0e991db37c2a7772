package httpadapter

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"kol-market/internal/core/port"
)

type createOpenCampaignReq struct {
	TokenMint       solana.PublicKey `json:"token_mint"`
	PoolAmount      uint64           `json:"pool_amount"`
	PromotionEndsIn time.Time        `json:"promotion_ends_in"`
}

type completeOpenCampaignReq struct {
	Outcome *bool `json:"outcome"`
}

func (h *Handler) handleCreateOpenCampaign(w http.ResponseWriter, r *http.Request) {
	creator, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req createOpenCampaignReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateOpenCampaign(r.Context(), creator, port.CreateOpenCampaignReq{
		TokenMint:       req.TokenMint,
		PoolAmount:      req.PoolAmount,
		PromotionEndsIn: req.PromotionEndsIn,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetOpenCampaign(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	c, err := h.svc.OpenCampaign(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// handleCompleteOpenCampaign resolves an open campaign. The body must
// carry an explicit outcome.
func (h *Handler) handleCompleteOpenCampaign(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.signer(w, r)
	if !ok {
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	var req completeOpenCampaignReq
	if !decode(w, r, &req) {
		return
	}
	if req.Outcome == nil {
		http.Error(w, "missing outcome", http.StatusBadRequest)
		return
	}
	resp, err := h.svc.CompleteOpenCampaign(r.Context(), owner, addr, *req.Outcome)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
