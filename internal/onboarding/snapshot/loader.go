// Package snapshot assembles the full fact set for one applicant. Callers
// own the fetch lifecycle; the resolver itself never touches storage.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"carteirinha/internal/onboarding"
	"carteirinha/internal/onboarding/store"
	"carteirinha/internal/platform/config"
	"carteirinha/internal/platform/redis"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
)

// ErrUnavailable signals that the snapshot could not be assembled right now.
// The navigation guard treats this as "block rendering, do not redirect";
// it is not a resolver state.
var ErrUnavailable = dErrors.New(dErrors.CodeUnavailable, "snapshot temporarily unavailable")

// Loader fetches and caches applicant snapshots. Concurrent loads for the
// same profile collapse into one fetch via singleflight; resolved snapshots
// sit in Redis briefly and are invalidated by every transition.
type Loader struct {
	profiles        store.ProfileStore
	payments        store.PaymentStore
	documents       store.DocumentStore
	faceValidations store.FaceValidationStore
	cards           store.CardStore

	cache        *redis.Client
	cacheTTL     time.Duration
	storeTimeout time.Duration
	logger       *slog.Logger
	group        singleflight.Group
}

func NewLoader(
	profiles store.ProfileStore,
	payments store.PaymentStore,
	documents store.DocumentStore,
	faceValidations store.FaceValidationStore,
	cards store.CardStore,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Loader {
	return &Loader{
		profiles:        profiles,
		payments:        payments,
		documents:       documents,
		faceValidations: faceValidations,
		cards:           cards,
		cache:           cache,
		cacheTTL:        cacheTTL,
		storeTimeout:    config.StoreTimeout,
		logger:          logger,
	}
}

func cacheKey(profileID id.ProfileID) string {
	return "snapshot:" + profileID.String()
}

// Load assembles the snapshot for one applicant. A missing profile yields an
// empty snapshot (the resolver maps it to complete_profile); any store
// failure yields ErrUnavailable instead of partial facts.
func (l *Loader) Load(ctx context.Context, profileID id.ProfileID) (onboarding.Snapshot, error) {
	if snap, ok := l.fromCache(ctx, profileID); ok {
		return snap, nil
	}

	v, err, _ := l.group.Do(profileID.String(), func() (any, error) {
		return l.fetch(ctx, profileID)
	})
	if err != nil {
		return onboarding.Snapshot{}, ErrUnavailable
	}
	snap := v.(onboarding.Snapshot)
	l.toCache(ctx, profileID, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot after a transition mutated any fact.
func (l *Loader) Invalidate(ctx context.Context, profileID id.ProfileID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Del(ctx, cacheKey(profileID)).Err(); err != nil {
		l.logger.WarnContext(ctx, "snapshot cache invalidation failed",
			"profile_id", profileID.String(), "error", err)
	}
}

// Resolve loads the snapshot and derives the current state and progress.
func (l *Loader) Resolve(ctx context.Context, profileID id.ProfileID) (onboarding.State, int, error) {
	snap, err := l.Load(ctx, profileID)
	if err != nil {
		return "", 0, err
	}
	return onboarding.Resolve(snap), onboarding.Progress(snap), nil
}

// CheckRoute runs the navigation guard against the requested route.
func (l *Loader) CheckRoute(ctx context.Context, profileID id.ProfileID, requested onboarding.Route) (onboarding.GuardDecision, error) {
	snap, err := l.Load(ctx, profileID)
	if err != nil {
		return onboarding.GuardDecision{}, err
	}
	return onboarding.Guard(requested, snap), nil
}

// fetch fans out over the fact stores under one bounded deadline so a stuck
// store surfaces as ErrUnavailable instead of blocking the caller.
func (l *Loader) fetch(ctx context.Context, profileID id.ProfileID) (onboarding.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	var snap onboarding.Snapshot

	profile, err := l.profiles.FindByID(ctx, profileID)
	switch {
	case err == nil:
		snap.Profile = profile
	case errors.Is(err, sentinel.ErrNotFound):
		// No profile yet: resolver reports complete_profile.
		return snap, nil
	default:
		return snap, err
	}

	if snap.Payments, err = l.payments.ListByProfile(ctx, profileID); err != nil {
		return snap, err
	}
	if snap.Documents, err = l.documents.ListByProfile(ctx, profileID); err != nil {
		return snap, err
	}
	if snap.FaceValidations, err = l.faceValidations.ListByProfile(ctx, profileID); err != nil {
		return snap, err
	}

	card, err := l.cards.FindByProfile(ctx, profileID)
	switch {
	case err == nil:
		snap.Card = card
	case errors.Is(err, sentinel.ErrNotFound):
		// fine, no card yet
	default:
		return snap, err
	}

	return snap, nil
}

func (l *Loader) fromCache(ctx context.Context, profileID id.ProfileID) (onboarding.Snapshot, bool) {
	if l.cache == nil {
		return onboarding.Snapshot{}, false
	}
	raw, err := l.cache.Get(ctx, cacheKey(profileID)).Bytes()
	if err != nil {
		return onboarding.Snapshot{}, false
	}
	var snap onboarding.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return onboarding.Snapshot{}, false
	}
	return snap, true
}

func (l *Loader) toCache(ctx context.Context, profileID id.ProfileID, snap onboarding.Snapshot) {
	if l.cache == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, cacheKey(profileID), raw, l.cacheTTL).Err(); err != nil {
		l.logger.WarnContext(ctx, "snapshot cache write failed",
			"profile_id", profileID.String(), "error", err)
	}
}
