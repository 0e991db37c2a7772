package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kol-market/internal/core/address"
)

type deriveResp struct {
	Namespace address.Namespace `json:"namespace"`
	Owner     string            `json:"owner"`
	Counter   uint64            `json:"counter"`
	Address   string            `json:"address"`
}

func (h *Handler) handleDerive(w http.ResponseWriter, r *http.Request) {
	ns := address.Namespace(chi.URLParam(r, "namespace"))
	if !ns.Valid() {
		http.Error(w, "unknown namespace", http.StatusBadRequest)
		return
	}
	owner, ok := pathKey(w, r, "owner")
	if !ok {
		return
	}
	counter, err := strconv.ParseUint(chi.URLParam(r, "counter"), 10, 64)
	if err != nil {
		http.Error(w, "invalid counter", http.StatusBadRequest)
		return
	}
	addr, err := h.svc.DeriveAddress(ns, owner, counter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deriveResp{Namespace: ns, Owner: owner.String(), Counter: counter, Address: addr.String()})
}
