// Package handler exposes read access to the audit trail for staff.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carteirinha/internal/audit"
	"carteirinha/internal/platform/middleware"
	"carteirinha/internal/transport/http/shared"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
)

const defaultListLimit = 50

// Service defines the audit reads the transport needs.
type Service interface {
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]audit.Action, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Action, error)
}

type Handler struct {
	actions   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(actions Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{actions: actions, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Get("/", h.handleListRecent)
	router.Get("/profiles/{profileID}", h.handleListByProfile)

	r.Mount("/admin/audit", router)
}

type actionResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	PerformedBy   string    `json:"performed_by"`
	ActorRole     string    `json:"actor_role"`
	TargetProfile string    `json:"target_profile,omitempty"`
	TargetEntity  string    `json:"target_entity,omitempty"`
	Details       string    `json:"details,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toResponses(actions []audit.Action) []actionResponse {
	out := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		resp := actionResponse{
			ID:           a.ID,
			Type:         string(a.Type),
			PerformedBy:  a.PerformedBy.String(),
			ActorRole:    a.ActorRole,
			TargetEntity: a.TargetEntity,
			Details:      a.Details,
			RequestID:    a.RequestID,
			CreatedAt:    a.CreatedAt,
		}
		if !a.TargetProfile.IsNil() {
			resp.TargetProfile = a.TargetProfile.String()
		}
		out = append(out, resp)
	}
	return out
}

func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	actions, err := h.actions.ListRecent(r.Context(), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"actions": toResponses(actions)})
}

func (h *Handler) handleListByProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	actions, err := h.actions.ListByProfile(r.Context(), profileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"actions": toResponses(actions)})
}
