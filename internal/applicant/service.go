// Package applicant exposes the student-facing fact writes: completing the
// profile, accepting terms, requesting manual review, and uploading
// documents. RecordFaceValidation lives here too but ingests automated
// pipeline results; the transport only accepts it from a pipeline or staff
// credential. Flags only move forward here; regressions require an audited
// staff transition.
package applicant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"carteirinha/internal/onboarding"
	"carteirinha/internal/onboarding/store"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
	"carteirinha/pkg/requestcontext"
)

// SnapshotInvalidator drops cached snapshots after a fact changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, profileID id.ProfileID)
}

type Service struct {
	profiles        store.ProfileStore
	documents       store.DocumentStore
	faceValidations store.FaceValidationStore
	snapshots       SnapshotInvalidator
	logger          *slog.Logger
}

func NewService(
	profiles store.ProfileStore,
	documents store.DocumentStore,
	faceValidations store.FaceValidationStore,
	snapshots SnapshotInvalidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		profiles:        profiles,
		documents:       documents,
		faceValidations: faceValidations,
		snapshots:       snapshots,
		logger:          logger,
	}
}

// ProfileInput carries the identity facts the applicant fills in once.
type ProfileInput struct {
	Name           string
	CPF            string
	Institution    string
	Course         string
	EducationLevel onboarding.EducationLevel
	IsLawStudent   bool
}

func (in ProfileInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(in.CPF) == "" {
		return dErrors.New(dErrors.CodeValidation, "CPF is required")
	}
	if strings.TrimSpace(in.Institution) == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	return nil
}

// CompleteProfile fills the identity facts and advances the
// profile_completed flag. Creating and completing are idempotent per
// applicant; completing twice is a no-op precondition failure.
func (s *Service) CompleteProfile(ctx context.Context, profileID id.ProfileID, in ProfileInput) (*onboarding.Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p, err := s.profiles.FindByID(ctx, profileID)
	switch {
	case err == nil:
		if p.ProfileCompleted {
			return nil, dErrors.New(dErrors.CodePrecondition, "profile is already completed")
		}
	case errors.Is(err, sentinel.ErrNotFound):
		p = &onboarding.Profile{ID: profileID, CreatedAt: now}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile lookup failed")
	}

	p.Name = strings.TrimSpace(in.Name)
	p.CPF = strings.TrimSpace(in.CPF)
	p.Institution = strings.TrimSpace(in.Institution)
	p.Course = strings.TrimSpace(in.Course)
	p.EducationLevel = in.EducationLevel
	p.IsLawStudent = in.IsLawStudent
	p.ProfileCompleted = true
	p.UpdatedAt = now

	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}
	s.snapshots.Invalidate(ctx, profileID)
	return p, nil
}

// AcceptTerms records the applicant's acceptance. The flag never regresses.
func (s *Service) AcceptTerms(ctx context.Context, profileID id.ProfileID) error {
	now := requestcontext.Now(ctx)
	_, err := s.profiles.Execute(ctx, profileID,
		func(*onboarding.Profile) error { return nil },
		func(p *onboarding.Profile) {
			p.ApplyTermsAcceptance(now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to accept terms")
	}
	s.snapshots.Invalidate(ctx, profileID)
	return nil
}

// RequestManualReview flags the applicant for human review, which holds the
// resolver at manual_review_pending until face validation clears.
func (s *Service) RequestManualReview(ctx context.Context, profileID id.ProfileID) error {
	now := requestcontext.Now(ctx)
	_, err := s.profiles.Execute(ctx, profileID,
		func(*onboarding.Profile) error { return nil },
		func(p *onboarding.Profile) {
			p.ManualReviewRequested = true
			p.UpdatedAt = now
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to request manual review")
	}
	s.snapshots.Invalidate(ctx, profileID)
	return nil
}

var validDocumentTypes = map[onboarding.DocumentType]bool{
	onboarding.DocumentIdentity:        true,
	onboarding.DocumentAddressProof:    true,
	onboarding.DocumentEnrollmentProof: true,
	onboarding.DocumentPhoto:           true,
	onboarding.DocumentSelfie:          true,
}

// UploadDocument appends a new pending document in the given slot. A
// resubmission after rejection is a fresh row; earlier attempts stay in
// history and eligibility counts distinct approved types.
func (s *Service) UploadDocument(ctx context.Context, profileID id.ProfileID, docType onboarding.DocumentType, fileURL string) (*onboarding.Document, error) {
	if !validDocumentTypes[docType] {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown document type "+string(docType))
	}
	if strings.TrimSpace(fileURL) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file URL is required")
	}
	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile lookup failed")
	}

	now := requestcontext.Now(ctx)
	doc := &onboarding.Document{
		ID:        id.DocumentID(uuid.New()),
		ProfileID: profileID,
		Type:      docType,
		Status:    onboarding.DocumentPending,
		FileURL:   strings.TrimSpace(fileURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
	}
	s.snapshots.Invalidate(ctx, profileID)
	return doc, nil
}

// RecordFaceValidation appends one pipeline attempt and, on a pass,
// advances the profile flag. Attempts are append-only history either way.
func (s *Service) RecordFaceValidation(ctx context.Context, profileID id.ProfileID, similarity float64, passed bool) error {
	now := requestcontext.Now(ctx)
	attempt := onboarding.FaceValidation{
		ProfileID:  profileID,
		Similarity: similarity,
		Passed:     passed,
		CreatedAt:  now,
	}
	if err := s.faceValidations.Append(ctx, attempt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record face validation")
	}

	if passed {
		_, err := s.profiles.Execute(ctx, profileID,
			func(*onboarding.Profile) error { return nil },
			func(p *onboarding.Profile) {
				p.FaceValidated = true
				p.UpdatedAt = now
			},
		)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update face flag")
		}
	}
	s.snapshots.Invalidate(ctx, profileID)
	return nil
}
