package httpadapter

import (
	"net/http"

	"kol-market/internal/core/domain"
)

type depositReq struct {
	Amount uint64 `json:"amount"`
}

func accountParam(w http.ResponseWriter, r *http.Request) (domain.TokenAccount, bool) {
	holder, ok := pathKey(w, r, "holder")
	if !ok {
		return domain.TokenAccount{}, false
	}
	mint, ok := pathKey(w, r, "mint")
	if !ok {
		return domain.TokenAccount{}, false
	}
	return domain.TokenAccount{Holder: holder, Mint: mint}, true
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Balance(r.Context(), account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleDeposit funds a token account from outside the marketplace. Any
// signer may fund any account, which is how campaign escrows get filled.
func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.signer(w, r); !ok {
		return
	}
	account, ok := accountParam(w, r)
	if !ok {
		return
	}
	var req depositReq
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Deposit(r.Context(), account, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
