package httpadapter

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

type campaignTermsReq struct {
	SelectedKol     solana.PublicKey `json:"selected_kol"`
	AmountOffered   uint64           `json:"amount_offered"`
	PromotionEndsIn time.Time        `json:"promotion_ends_in"`
	OfferEndsIn     time.Time        `json:"offer_ends_in"`
}

type createCampaignReq struct {
	TokenMint solana.PublicKey `json:"token_mint"`
	campaignTermsReq
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	creator, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req createCampaignReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateNewCampaign(r.Context(), creator, port.CreateCampaignReq{
		TokenMint:       req.TokenMint,
		SelectedKol:     req.SelectedKol,
		AmountOffered:   req.AmountOffered,
		PromotionEndsIn: req.PromotionEndsIn,
		OfferEndsIn:     req.OfferEndsIn,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	c, err := h.svc.Campaign(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	creator, ok := h.signer(w, r)
	if !ok {
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	var req campaignTermsReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCampaign(r.Context(), creator, addr, domain.CampaignTerms{
		SelectedKol:     req.SelectedKol,
		AmountOffered:   req.AmountOffered,
		PromotionEndsIn: req.PromotionEndsIn,
		OfferEndsIn:     req.OfferEndsIn,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAcceptCampaign(w http.ResponseWriter, r *http.Request) {
	kol, ok := h.signer(w, r)
	if !ok {
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	c, err := h.svc.AcceptProjectCampaign(r.Context(), kol, addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// handleFulfilCampaign settles an accepted campaign. Only the registry
// owner may sign.
func (h *Handler) handleFulfilCampaign(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.signer(w, r)
	if !ok {
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	resp, err := h.svc.FulfilProjectCampaign(r.Context(), owner, addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDiscardCampaign(w http.ResponseWriter, r *http.Request) {
	creator, ok := h.signer(w, r)
	if !ok {
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	resp, err := h.svc.DiscardProjectCampaign(r.Context(), creator, addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
