// Package handler exposes the applicant-facing onboarding endpoints: state
// resolution, route guarding, and the fact writes an applicant may perform.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteirinha/internal/admin"
	"carteirinha/internal/applicant"
	"carteirinha/internal/onboarding"
	"carteirinha/internal/platform/metrics"
	"carteirinha/internal/platform/middleware"
	"carteirinha/internal/transport/http/shared"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

// Resolver resolves the applicant's current step from the fact snapshot.
type Resolver interface {
	Resolve(ctx context.Context, profileID id.ProfileID) (onboarding.State, int, error)
	CheckRoute(ctx context.Context, profileID id.ProfileID, requested onboarding.Route) (onboarding.GuardDecision, error)
}

// ApplicantService covers the fact writes the applicant performs directly.
type ApplicantService interface {
	CompleteProfile(ctx context.Context, profileID id.ProfileID, in applicant.ProfileInput) (*onboarding.Profile, error)
	AcceptTerms(ctx context.Context, profileID id.ProfileID) error
	RequestManualReview(ctx context.Context, profileID id.ProfileID) error
	UploadDocument(ctx context.Context, profileID id.ProfileID, docType onboarding.DocumentType, fileURL string) (*onboarding.Document, error)
	RecordFaceValidation(ctx context.Context, profileID id.ProfileID, similarity float64, passed bool) error
}

type Handler struct {
	resolver   Resolver
	applicants ApplicantService
	logger     *slog.Logger
	metrics    *metrics.Metrics
	validator  middleware.TokenValidator
}

func New(
	resolver Resolver,
	applicants ApplicantService,
	logger *slog.Logger,
	m *metrics.Metrics,
	validator middleware.TokenValidator,
) *Handler {
	return &Handler{
		resolver:   resolver,
		applicants: applicants,
		logger:     logger,
		metrics:    m,
		validator:  validator,
	}
}

// RolePipeline is the machine credential the face pipeline authenticates
// with. Applicant tokens carry no role; their actor id is the profile id.
const RolePipeline = "pipeline"

// Register mounts the applicant-facing onboarding routes and the pipeline
// ingest route. Applicants can only touch their own record; face validation
// results never enter through the applicant surface.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(h.validator, h.logger))
	router.Use(h.requireProfileOwner)
	router.Get("/state", h.handleState)
	router.Get("/guard", h.handleGuard)
	router.Post("/profile", h.handleCompleteProfile)
	router.Post("/terms", h.handleAcceptTerms)
	router.Post("/manual-review", h.handleRequestManualReview)
	router.Post("/documents", h.handleUploadDocument)

	r.Mount("/onboarding/{profileID}", router)

	pipeline := chi.NewRouter()
	pipeline.Use(middleware.RequireAuth(h.validator, h.logger))
	pipeline.Use(middleware.RequireRole(h.logger, RolePipeline,
		string(admin.RoleStaff), string(admin.RoleAdmin), string(admin.RoleSuper)))
	pipeline.Post("/face-validations", h.handleFaceValidation)

	r.Mount("/pipeline", pipeline)
}

// requireProfileOwner keeps an authenticated applicant inside the onboarding
// record named by their own token.
func (h *Handler) requireProfileOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, actorErr := id.ParseProfileID(requestcontext.ActorID(ctx))
		subject, subjectErr := id.ParseProfileID(chi.URLParam(r, "profileID"))
		if actorErr != nil || subjectErr != nil || actor != subject {
			h.logger.WarnContext(ctx, "forbidden access - profile mismatch",
				"request_id", requestcontext.RequestID(ctx),
				"actor_id", requestcontext.ActorID(ctx),
				"profile_id", chi.URLParam(r, "profileID"),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeForbidden,
				"profile does not belong to the authenticated user"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) profileID(w http.ResponseWriter, r *http.Request) (id.ProfileID, bool) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, err)
		return id.ProfileID{}, false
	}
	return profileID, true
}

type stateResponse struct {
	State    onboarding.State `json:"state"`
	Route    onboarding.Route `json:"route"`
	Progress int              `json:"progress"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}

	state, progress, err := h.resolver.Resolve(ctx, profileID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve onboarding state",
			"request_id", requestcontext.RequestID(ctx),
			"profile_id", profileID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stateResponse{
		State:    state,
		Route:    onboarding.CanonicalRoute(state),
		Progress: progress,
	})
}

type guardResponse struct {
	Action onboarding.GuardAction `json:"action"`
	Target onboarding.Route       `json:"target"`
}

func (h *Handler) handleGuard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}

	requested := onboarding.Route(r.URL.Query().Get("route"))
	if requested == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "route query parameter is required"))
		return
	}

	decision, err := h.resolver.CheckRoute(ctx, profileID, requested)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, guardResponse{Action: decision.Action, Target: decision.Target})
}

type completeProfileRequest struct {
	Name           string `json:"name"`
	CPF            string `json:"cpf"`
	Institution    string `json:"institution"`
	Course         string `json:"course"`
	EducationLevel string `json:"education_level"`
	IsLawStudent   bool   `json:"is_law_student"`
}

func (h *Handler) handleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}

	var req completeProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid complete profile request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	profile, err := h.applicants.CompleteProfile(ctx, profileID, applicant.ProfileInput{
		Name:           req.Name,
		CPF:            req.CPF,
		Institution:    req.Institution,
		Course:         req.Course,
		EducationLevel: onboarding.EducationLevel(req.EducationLevel),
		IsLawStudent:   req.IsLawStudent,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"profile_id": profile.ID.String(),
	})
}

func (h *Handler) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	if err := h.applicants.AcceptTerms(r.Context(), profileID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestManualReview(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}
	if err := h.applicants.RequestManualReview(r.Context(), profileID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadDocumentRequest struct {
	Type    string `json:"type"`
	FileURL string `json:"file_url"`
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileID(w, r)
	if !ok {
		return
	}

	var req uploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	doc, err := h.applicants.UploadDocument(ctx, profileID, onboarding.DocumentType(req.Type), req.FileURL)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{
		"document_id": doc.ID.String(),
		"status":      string(doc.Status),
	})
}

type faceValidationRequest struct {
	ProfileID  string  `json:"profile_id"`
	Similarity float64 `json:"similarity"`
	Passed     bool    `json:"passed"`
}

func (h *Handler) handleFaceValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req faceValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	profileID, err := id.ParseProfileID(req.ProfileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.applicants.RecordFaceValidation(ctx, profileID, req.Similarity, req.Passed); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
