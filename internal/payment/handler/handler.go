// Package handler exposes charge creation and the gateway callback
// endpoints. Callbacks are unauthenticated by gateway contract; the service
// treats every payload as untrusted and unknown statuses never approve.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteirinha/internal/onboarding"
	"carteirinha/internal/payment"
	"carteirinha/internal/platform/metrics"
	"carteirinha/internal/platform/middleware"
	"carteirinha/internal/transport/http/shared"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

// Service defines the payment operations the transport needs.
type Service interface {
	CreateCharge(ctx context.Context, profileID id.ProfileID, method string, amountCents int64) (*onboarding.Payment, error)
	HandleCallback(ctx context.Context, gatewayName, chargeID, rawStatus string) error
}

type Handler struct {
	payments  Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(payments Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		payments:  payments,
		logger:    logger,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts the charge route behind auth and the callback routes
// without it.
func (h *Handler) Register(r chi.Router) {
	charge := chi.NewRouter()
	charge.Use(middleware.RequireAuth(h.validator, h.logger))
	charge.Post("/", h.handleCreateCharge)
	r.Mount("/payments", charge)

	r.Post("/webhooks/{gateway}", h.handleCallback)
}

type createChargeRequest struct {
	ProfileID   string `json:"profile_id"`
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

func (h *Handler) handleCreateCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	profileID, err := id.ParseProfileID(req.ProfileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.payments.CreateCharge(ctx, profileID, req.Method, req.AmountCents)
	if err != nil {
		h.logger.WarnContext(ctx, "charge creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"profile_id", profileID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{
		"payment_id": p.ID.String(),
		"gateway":    p.Gateway,
		"charge_id":  p.GatewayChargeID,
		"status":     string(p.Status),
	})
}

// callbackRequest covers the common shape of the gateway notifications; the
// path segment names the gateway whose status vocabulary applies.
type callbackRequest struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gateway := chi.URLParam(r, "gateway")

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid callback body"))
		return
	}
	if req.ChargeID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "charge_id is required"))
		return
	}
	if !payment.KnownGateway(gateway) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown gateway "+gateway))
		return
	}

	if err := h.payments.HandleCallback(ctx, gateway, req.ChargeID, req.Status); err != nil {
		// Unknown charges get a 404 so the gateway retries later; anything
		// else is acknowledged to stop retry storms.
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "callback processing failed",
			"request_id", requestcontext.RequestID(ctx),
			"gateway", gateway,
			"charge_id", req.ChargeID,
			"error", err.Error(),
		)
	}
	w.WriteHeader(http.StatusOK)
}
