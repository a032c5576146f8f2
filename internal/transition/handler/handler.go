// Package handler exposes the staff review endpoints. Every route delegates
// to the transition service, which re-checks the actor against the admin
// store before any mutation.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteirinha/internal/audit"
	"carteirinha/internal/platform/metrics"
	"carteirinha/internal/platform/middleware"
	"carteirinha/internal/transition"
	"carteirinha/internal/transport/http/shared"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

// Service defines the review transitions staff can trigger.
type Service interface {
	ApproveDocument(ctx context.Context, documentID id.DocumentID) (audit.Action, error)
	RejectDocument(ctx context.Context, documentID id.DocumentID, reason, notes string) (audit.Action, error)
	MarkPaymentPaid(ctx context.Context, paymentID id.PaymentID, justification, receiptURL string) (audit.Action, error)
	OverrideFaceValidation(ctx context.Context, profileID id.ProfileID, justification string) (audit.Action, error)
	ToggleAdminActive(ctx context.Context, targetID id.AdminID, justification string) (audit.Action, error)
	SwitchActiveGateway(ctx context.Context, gatewayName string) (audit.Action, error)
	IssueCard(ctx context.Context, profileID id.ProfileID, digitalCardURL string) (audit.Action, error)
	RegisterShipment(ctx context.Context, cardID id.CardID, trackingCode string) (audit.Action, error)
	PrintBatch(ctx context.Context, cardIDs []id.CardID) (transition.BatchResult, audit.Action, error)
}

type Handler struct {
	transitions Service
	logger      *slog.Logger
	metrics     *metrics.Metrics
	validator   middleware.TokenValidator
}

func New(transitions Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		transitions: transitions,
		logger:      logger,
		metrics:     m,
		validator:   validator,
	}
}

// Register mounts the staff routes under /admin.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Post("/documents/{documentID}/approve", h.handleApproveDocument)
	router.Post("/documents/{documentID}/reject", h.handleRejectDocument)
	router.Post("/payments/{paymentID}/mark-paid", h.handleMarkPaymentPaid)
	router.Post("/profiles/{profileID}/face-override", h.handleOverrideFace)
	router.Post("/profiles/{profileID}/issue-card", h.handleIssueCard)
	router.Post("/admins/{adminID}/toggle", h.handleToggleAdmin)
	router.Post("/gateways/switch", h.handleSwitchGateway)
	router.Post("/cards/{cardID}/shipment", h.handleRegisterShipment)
	router.Post("/cards/print-batch", h.handlePrintBatch)

	r.Mount("/admin", router)
}

type actionResponse struct {
	ActionID  string `json:"action_id"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) writeAction(w http.ResponseWriter, action audit.Action) {
	shared.WriteJSON(w, http.StatusOK, actionResponse{
		ActionID:  action.ID,
		Type:      string(action.Type),
		RequestID: action.RequestID,
	})
}

func (h *Handler) writeTransitionErr(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "transition rejected",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return req, false
	}
	return req, true
}

func (h *Handler) handleApproveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	action, err := h.transitions.ApproveDocument(ctx, documentID)
	if err != nil {
		h.writeTransitionErr(ctx, w, "approve_document", err)
		return
	}
	h.writeAction(w, action)
}

type rejectDocumentRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleRejectDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[rejectDocumentRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.RejectDocument(ctx, documentID, req.Reason, req.Notes)
	if err != nil {
		h.writeTransitionErr(ctx, w, "reject_document", err)
		return
	}
	h.writeAction(w, action)
}

type markPaidRequest struct {
	Justification string `json:"justification"`
	ReceiptURL    string `json:"receipt_url"`
}

func (h *Handler) handleMarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[markPaidRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.MarkPaymentPaid(ctx, paymentID, req.Justification, req.ReceiptURL)
	if err != nil {
		h.writeTransitionErr(ctx, w, "mark_payment_paid", err)
		return
	}
	h.writeAction(w, action)
}

type justificationRequest struct {
	Justification string `json:"justification"`
}

func (h *Handler) handleOverrideFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[justificationRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.OverrideFaceValidation(ctx, profileID, req.Justification)
	if err != nil {
		h.writeTransitionErr(ctx, w, "override_face_validation", err)
		return
	}
	h.writeAction(w, action)
}

type issueCardRequest struct {
	DigitalCardURL string `json:"digital_card_url"`
}

func (h *Handler) handleIssueCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[issueCardRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.IssueCard(ctx, profileID, req.DigitalCardURL)
	if err != nil {
		h.writeTransitionErr(ctx, w, "issue_card", err)
		return
	}
	h.writeAction(w, action)
}

func (h *Handler) handleToggleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := id.ParseAdminID(chi.URLParam(r, "adminID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[justificationRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.ToggleAdminActive(ctx, adminID, req.Justification)
	if err != nil {
		h.writeTransitionErr(ctx, w, "toggle_admin_active", err)
		return
	}
	h.writeAction(w, action)
}

type switchGatewayRequest struct {
	Gateway string `json:"gateway"`
}

func (h *Handler) handleSwitchGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[switchGatewayRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.SwitchActiveGateway(ctx, req.Gateway)
	if err != nil {
		h.writeTransitionErr(ctx, w, "switch_active_gateway", err)
		return
	}
	h.writeAction(w, action)
}

type shipmentRequest struct {
	TrackingCode string `json:"tracking_code"`
}

func (h *Handler) handleRegisterShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := decode[shipmentRequest](w, r)
	if !ok {
		return
	}
	action, err := h.transitions.RegisterShipment(ctx, cardID, req.TrackingCode)
	if err != nil {
		h.writeTransitionErr(ctx, w, "register_shipment", err)
		return
	}
	h.writeAction(w, action)
}

type printBatchRequest struct {
	CardIDs []string `json:"card_ids"`
}

type printBatchItem struct {
	CardID string `json:"card_id"`
	Error  string `json:"error"`
}

type printBatchResponse struct {
	Printed  int              `json:"printed"`
	Failed   int              `json:"failed"`
	Failures []printBatchItem `json:"failures,omitempty"`
	ActionID string           `json:"action_id"`
}

func (h *Handler) handlePrintBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[printBatchRequest](w, r)
	if !ok {
		return
	}
	if len(req.CardIDs) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "card_ids cannot be empty"))
		return
	}

	cardIDs := make([]id.CardID, 0, len(req.CardIDs))
	for _, raw := range req.CardIDs {
		cardID, err := id.ParseCardID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		cardIDs = append(cardIDs, cardID)
	}

	result, action, err := h.transitions.PrintBatch(ctx, cardIDs)
	if err != nil {
		h.writeTransitionErr(ctx, w, "print_batch", err)
		return
	}

	resp := printBatchResponse{
		Printed:  len(result.Printed),
		Failed:   len(result.Failed),
		ActionID: action.ID,
	}
	for _, f := range result.Failed {
		resp.Failures = append(resp.Failures, printBatchItem{
			CardID: f.CardID.String(),
			Error:  f.Err.Error(),
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
