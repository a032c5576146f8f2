// Package transition implements the staff-facing review protocol: every
// mutation of applicant facts goes through a named, guarded, audited
// operation. Nothing else writes Document, Payment, Profile, or Card status
// fields.
//
// Every operation follows the same order: authorize, validate inputs,
// check preconditions and mutate under the store's lock, append the audit
// record. A failure at any step before the mutation leaves no trace; once a
// mutation is applied and audited it is final, and "undo" is a new
// transition rather than a rollback.
package transition

import (
	"context"
	"errors"
	"log/slog"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	"carteirinha/internal/onboarding/store"
	"carteirinha/internal/payment"
	"carteirinha/internal/platform/metrics"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
	"carteirinha/pkg/requestcontext"
)

// SnapshotInvalidator drops cached snapshots after a fact changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, profileID id.ProfileID)
}

// Service is the transition authority. It is the sole writer of status
// fields and audit actions.
type Service struct {
	admins    admin.Store
	profiles  store.ProfileStore
	payments  store.PaymentStore
	documents store.DocumentStore
	cards     store.CardStore
	gateways  payment.GatewayStore
	audit     *audit.Service
	snapshots SnapshotInvalidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(
	admins admin.Store,
	profiles store.ProfileStore,
	payments store.PaymentStore,
	documents store.DocumentStore,
	cards store.CardStore,
	gateways payment.GatewayStore,
	auditSvc *audit.Service,
	snapshots SnapshotInvalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		admins:    admins,
		profiles:  profiles,
		payments:  payments,
		documents: documents,
		cards:     cards,
		gateways:  gateways,
		audit:     auditSvc,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger,
	}
}

// authorize resolves the acting staff account. The token's role claim alone
// is not authoritative: membership and active status are re-checked against
// the admin store before any mutation. A denial writes no audit record; the
// attempt is logged as a security event only.
func (s *Service) authorize(ctx context.Context, required admin.Role) (*admin.Admin, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing actor identity")
	}
	adminID, err := id.ParseAdminID(actorID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid actor identity")
	}

	actor, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logSecurityDenial(ctx, actorID, "actor not in admin table")
			return nil, dErrors.New(dErrors.CodeForbidden, "actor is not a staff member")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "admin lookup failed")
	}
	if !actor.IsActive {
		s.logSecurityDenial(ctx, actorID, "actor deactivated")
		return nil, dErrors.New(dErrors.CodeForbidden, "actor account is deactivated")
	}
	if !actor.Role.AtLeast(required) {
		s.logSecurityDenial(ctx, actorID, "insufficient role")
		return nil, dErrors.New(dErrors.CodeForbidden, "actor lacks the required role")
	}
	return actor, nil
}

func (s *Service) logSecurityDenial(ctx context.Context, actorID, reason string) {
	s.logger.WarnContext(ctx, "transition denied",
		"actor_id", actorID,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// translateStoreErr maps sentinel store errors into the domain taxonomy.
func translateStoreErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodePrecondition),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeForbidden),
		dErrors.HasCode(err, dErrors.CodeConflict):
		// Already classified by a Can* check inside the Execute callback.
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, entity+" was modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodePrecondition, entity+" is in the wrong state")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, entity+" store failed")
	}
}

// record appends the audit action and bumps metrics. Called only after a
// successful mutation.
func (s *Service) record(ctx context.Context, action audit.Action) (audit.Action, error) {
	recorded, err := s.audit.Record(ctx, action)
	if err != nil {
		// The mutation already happened; surface the mismatch loudly
		// instead of pretending the transition failed entirely.
		s.logger.ErrorContext(ctx, "audit append failed after mutation",
			"action_type", string(action.Type),
			"error", err,
		)
		return audit.Action{}, dErrors.Wrap(err, dErrors.CodeInternal, "transition applied but audit write failed")
	}
	s.metrics.IncrementTransitionApplied(string(action.Type))
	return recorded, nil
}

func (s *Service) denied(name string, err error) error {
	s.metrics.IncrementTransitionDenied(name, string(dErrors.CodeOf(err)))
	return err
}
