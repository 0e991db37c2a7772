package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kol-market/internal/core/domain"
	"kol-market/internal/core/port"
)

// SignerHeader carries the base58 public key of the account signing a
// mutating request.
const SignerHeader = "X-Signer"

// Handler is the inbound HTTP adapter of the marketplace.
type Handler struct {
	svc    port.MarketplaceUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured.
func NewHandler(svc port.MarketplaceUseCase, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, h.logRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/marketplace", func(r chi.Router) {
			r.Post("/", h.handleInitialize)
			r.Get("/", h.handleGetMarketplace)
		})
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.handleCreateCampaign)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", h.handleGetCampaign)
				r.Put("/", h.handleUpdateCampaign)
				r.Post("/accept", h.handleAcceptCampaign)
				r.Post("/fulfil", h.handleFulfilCampaign)
				r.Post("/discard", h.handleDiscardCampaign)
			})
		})
		r.Route("/open-campaigns", func(r chi.Router) {
			r.Post("/", h.handleCreateOpenCampaign)
			r.Get("/{address}", h.handleGetOpenCampaign)
			r.Post("/{address}/complete", h.handleCompleteOpenCampaign)
		})
		r.Route("/balances/{holder}/{mint}", func(r chi.Router) {
			r.Get("/", h.handleGetBalance)
			r.Post("/deposit", h.handleDeposit)
		})
		r.Get("/derive/{namespace}/{owner}/{counter}", h.handleDerive)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// signer returns the request signer or writes 401.
func (h *Handler) signer(w http.ResponseWriter, r *http.Request) (solana.PublicKey, bool) {
	raw := r.Header.Get(SignerHeader)
	if raw == "" {
		http.Error(w, "missing "+SignerHeader+" header", http.StatusUnauthorized)
		return solana.PublicKey{}, false
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		http.Error(w, "invalid "+SignerHeader+" header", http.StatusUnauthorized)
		return solana.PublicKey{}, false
	}
	return key, true
}

// pathKey parses a base58 path parameter or writes 400.
func pathKey(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return solana.PublicKey{}, false
	}
	return key, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps instruction failures onto status codes. Details of
// unexpected errors are logged, not returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrCampaignExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrUnbalancedSettlement),
		errors.Is(err, domain.ErrBalanceOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrTokenNotAllowed),
		errors.Is(err, domain.ErrInvalidKolAddress),
		errors.Is(err, domain.ErrInvalidTimeParameters),
		errors.Is(err, domain.ErrInvalidTokenConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
