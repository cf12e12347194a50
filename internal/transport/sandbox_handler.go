package transport

import (
	"errors"
	"net/http"

	"retail-ops/internal/middleware"
	"retail-ops/internal/payment"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthorizeRequest simulates the client side of a card payment. A non-empty
// decline reason declines the payment.
type AuthorizeRequest struct {
	DeclineReason string `json:"decline_reason"`
}

// SandboxHandler stands in for the card form a real gateway would host.
// Only mounted outside production.
type SandboxHandler struct {
	gateway *payment.Sandbox
	logger  *zap.Logger
}

func NewSandboxHandler(gateway *payment.Sandbox, logger *zap.Logger) *SandboxHandler {
	return &SandboxHandler{gateway: gateway, logger: logger}
}

func (h *SandboxHandler) RegisterRoutes(r chi.Router) {
	r.Post("/dev/payments/{reference}/authorize", h.Authorize)
}

func (h *SandboxHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	var req AuthorizeRequest
	if r.ContentLength != 0 {
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			middleware.RespondWithDecodeError(w, err)
			return
		}
	}

	var err error
	if req.DeclineReason != "" {
		err = h.gateway.Decline(reference, req.DeclineReason)
	} else {
		err = h.gateway.Authorize(reference)
	}
	switch {
	case errors.Is(err, payment.ErrIntentNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info("sandbox payment settled",
		zap.String("gateway_reference", reference),
		zap.Bool("declined", req.DeclineReason != ""),
	)
	intent, err := h.gateway.RetrieveIntent(r.Context(), reference)
	if err != nil {
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read payment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"gateway_reference": intent.Reference,
		"status":            string(intent.Status),
	})
}
