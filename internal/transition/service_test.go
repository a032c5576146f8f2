package transition

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	auditmemory "carteirinha/internal/audit/store/memory"
	"carteirinha/internal/onboarding"
	"carteirinha/internal/onboarding/store"
	"carteirinha/internal/payment"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []id.ProfileID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, profileID id.ProfileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, profileID)
}

type TransitionSuite struct {
	suite.Suite
	ctx context.Context
	now time.Time

	profiles    *store.InMemoryProfileStore
	payments    *store.InMemoryPaymentStore
	documents   *store.InMemoryDocumentStore
	cards       *store.InMemoryCardStore
	admins      *admin.InMemoryStore
	gateways    *payment.InMemoryGatewayStore
	auditStore  *auditmemory.Store
	invalidator *fakeInvalidator
	service     *Service

	staff *admin.Admin
	super *admin.Admin
}

func TestTransitionSuite(t *testing.T) {
	suite.Run(t, new(TransitionSuite))
}

func (s *TransitionSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	s.profiles = store.NewInMemoryProfileStore()
	s.payments = store.NewInMemoryPaymentStore()
	s.documents = store.NewInMemoryDocumentStore()
	s.cards = store.NewInMemoryCardStore()
	s.admins = admin.NewInMemoryStore()
	s.gateways = payment.NewInMemoryGatewayStore(
		payment.Gateway{Name: payment.GatewayPagarme, IsActive: true},
		payment.Gateway{Name: payment.GatewayMercadoPago},
	)
	s.auditStore = auditmemory.New()
	s.invalidator = &fakeInvalidator{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditSvc := audit.NewService(s.auditStore, nil, logger)
	s.service = NewService(
		s.admins, s.profiles, s.payments, s.documents, s.cards, s.gateways,
		auditSvc, s.invalidator, nil, logger,
	)

	s.staff = s.newAdmin(admin.RoleStaff)
	s.super = s.newAdmin(admin.RoleSuper)

	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	s.ctx = s.asActor(ctx, s.staff)
}

func (s *TransitionSuite) newAdmin(role admin.Role) *admin.Admin {
	a := &admin.Admin{
		ID:       id.AdminID(uuid.New()),
		Email:    uuid.NewString() + "@staff.example",
		Role:     role,
		IsActive: true,
	}
	s.Require().NoError(s.admins.Save(context.Background(), a))
	return a
}

func (s *TransitionSuite) asActor(ctx context.Context, a *admin.Admin) context.Context {
	return requestcontext.WithActor(ctx, a.ID.String(), string(a.Role))
}

func (s *TransitionSuite) newDocument(status onboarding.DocumentStatus) *onboarding.Document {
	doc := &onboarding.Document{
		ID:        id.DocumentID(uuid.New()),
		ProfileID: id.ProfileID(uuid.New()),
		Type:      onboarding.DocumentIdentity,
		Status:    status,
	}
	s.Require().NoError(s.documents.Save(context.Background(), doc))
	return doc
}

func (s *TransitionSuite) TestApproveDocument() {
	s.Run("approves a pending document and audits it", func() {
		doc := s.newDocument(onboarding.DocumentPending)

		action, err := s.service.ApproveDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(audit.ActionApproveDocument, action.Type)
		s.Equal(s.staff.ID, action.PerformedBy)
		s.NotEmpty(action.ID)

		updated, err := s.documents.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.DocumentApproved, updated.Status)
		s.Equal(s.staff.ID, updated.ValidatedBy)
		s.Require().NotNil(updated.ValidatedAt)
		s.True(updated.ValidatedAt.Equal(s.now))

		s.Contains(s.invalidator.calls, doc.ProfileID)
	})

	s.Run("re-approving an approved document fails without a new audit row", func() {
		doc := s.newDocument(onboarding.DocumentApproved)
		before := len(s.auditStore.All())

		_, err := s.service.ApproveDocument(s.ctx, doc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Len(s.auditStore.All(), before)
	})

	s.Run("approving a rejected resubmission clears the rejection fields", func() {
		doc := s.newDocument(onboarding.DocumentRejected)
		doc.RejectionReason = "blurry"
		doc.RejectionNotes = "photo unreadable"
		s.Require().NoError(s.documents.Save(s.ctx, doc))

		_, err := s.service.ApproveDocument(s.ctx, doc.ID)
		s.Require().NoError(err)

		updated, err := s.documents.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.DocumentApproved, updated.Status)
		s.Empty(updated.RejectionReason)
		s.Empty(updated.RejectionNotes)
	})

	s.Run("unknown document maps to not found", func() {
		_, err := s.service.ApproveDocument(s.ctx, id.DocumentID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *TransitionSuite) TestRejectDocument() {
	s.Run("rejects with reason and notes", func() {
		doc := s.newDocument(onboarding.DocumentPending)

		action, err := s.service.RejectDocument(s.ctx, doc.ID, "illegible", "scan cut off")
		s.Require().NoError(err)
		s.Equal(audit.ActionRejectDocument, action.Type)

		updated, err := s.documents.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.DocumentRejected, updated.Status)
		s.Equal("illegible", updated.RejectionReason)
		s.Equal("scan cut off", updated.RejectionNotes)
	})

	s.Run("blank reason is rejected before any mutation", func() {
		doc := s.newDocument(onboarding.DocumentPending)
		before := len(s.auditStore.All())

		_, err := s.service.RejectDocument(s.ctx, doc.ID, "   ", "notes")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		unchanged, err := s.documents.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.DocumentPending, unchanged.Status)
		s.Len(s.auditStore.All(), before)
	})

	s.Run("blank notes are rejected too", func() {
		doc := s.newDocument(onboarding.DocumentPending)

		_, err := s.service.RejectDocument(s.ctx, doc.ID, "reason", "\t\n")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TransitionSuite) TestMarkPaymentPaid() {
	newPayment := func(status onboarding.PaymentStatus) *onboarding.Payment {
		p := &onboarding.Payment{
			ID:        id.PaymentID(uuid.New()),
			ProfileID: id.ProfileID(uuid.New()),
			Status:    status,
		}
		s.Require().NoError(s.payments.Save(context.Background(), p))
		return p
	}

	s.Run("confirms a pending payment with justification", func() {
		p := newPayment(onboarding.PaymentPending)

		action, err := s.service.MarkPaymentPaid(s.ctx, p.ID, "bank transfer receipt verified", "https://receipts.example/1")
		s.Require().NoError(err)
		s.Equal(audit.ActionMarkPaymentPaid, action.Type)
		s.Equal("bank transfer receipt verified", action.Details)

		updated, err := s.payments.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.PaymentApproved, updated.Status)
		s.Require().NotNil(updated.ConfirmedAt)
		s.True(updated.ConfirmedAt.Equal(s.now))
	})

	s.Run("missing justification blocks the transition", func() {
		p := newPayment(onboarding.PaymentPending)

		_, err := s.service.MarkPaymentPaid(s.ctx, p.ID, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		unchanged, err := s.payments.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.PaymentPending, unchanged.Status)
	})

	s.Run("already approved payment cannot be re-confirmed", func() {
		p := newPayment(onboarding.PaymentApproved)

		_, err := s.service.MarkPaymentPaid(s.ctx, p.ID, "double click", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("refunded payment is terminal", func() {
		p := newPayment(onboarding.PaymentRefunded)

		_, err := s.service.MarkPaymentPaid(s.ctx, p.ID, "customer insisted", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})
}

func (s *TransitionSuite) TestOverrideFaceValidation() {
	newProfile := func(faceValidated bool) *onboarding.Profile {
		p := &onboarding.Profile{
			ID:            id.ProfileID(uuid.New()),
			FaceValidated: faceValidated,
		}
		s.Require().NoError(s.profiles.Save(context.Background(), p))
		return p
	}

	s.Run("sets the flag and records only an audit action", func() {
		p := newProfile(false)

		action, err := s.service.OverrideFaceValidation(s.ctx, p.ID, "pipeline rejects valid twin photos")
		s.Require().NoError(err)
		s.Equal(audit.ActionOverrideFaceValidation, action.Type)
		s.Equal(p.ID, action.TargetProfile)

		updated, err := s.profiles.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.True(updated.FaceValidated)
	})

	s.Run("already validated profile cannot be overridden again", func() {
		p := newProfile(true)

		_, err := s.service.OverrideFaceValidation(s.ctx, p.ID, "why not")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("blank justification is rejected", func() {
		p := newProfile(false)

		_, err := s.service.OverrideFaceValidation(s.ctx, p.ID, "  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TransitionSuite) TestAuthorization() {
	doc := s.newDocument(onboarding.DocumentPending)

	s.Run("unauthenticated context is rejected", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now)
		_, err := s.service.ApproveDocument(ctx, doc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("actor missing from the admin table is forbidden", func() {
		ctx := requestcontext.WithActor(s.ctx, uuid.NewString(), string(admin.RoleSuper))
		_, err := s.service.ApproveDocument(ctx, doc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("deactivated actor is forbidden even with a valid token", func() {
		ghost := s.newAdmin(admin.RoleAdmin)
		ghost.IsActive = false
		s.Require().NoError(s.admins.Save(context.Background(), ghost))

		_, err := s.service.ApproveDocument(s.asActor(s.ctx, ghost), doc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("denied attempts write no audit record", func() {
		before := len(s.auditStore.All())
		ctx := requestcontext.WithActor(s.ctx, uuid.NewString(), string(admin.RoleSuper))
		_, _ = s.service.ApproveDocument(ctx, doc.ID)
		s.Len(s.auditStore.All(), before)
	})

	s.Run("staff cannot run super-only transitions", func() {
		_, err := s.service.SwitchActiveGateway(s.ctx, payment.GatewayMercadoPago)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *TransitionSuite) TestToggleAdminActive() {
	superCtx := s.asActor(s.ctx, s.super)

	s.Run("super deactivates a staff account", func() {
		target := s.newAdmin(admin.RoleStaff)

		action, err := s.service.ToggleAdminActive(superCtx, target.ID, "left the team")
		s.Require().NoError(err)
		s.Equal(audit.ActionToggleAdminActive, action.Type)
		s.Contains(action.Details, "active=false")

		updated, err := s.admins.FindByID(s.ctx, target.ID)
		s.Require().NoError(err)
		s.False(updated.IsActive)
	})

	s.Run("toggling again reactivates", func() {
		target := s.newAdmin(admin.RoleStaff)
		_, err := s.service.ToggleAdminActive(superCtx, target.ID, "off")
		s.Require().NoError(err)
		_, err = s.service.ToggleAdminActive(superCtx, target.ID, "back on")
		s.Require().NoError(err)

		updated, err := s.admins.FindByID(s.ctx, target.ID)
		s.Require().NoError(err)
		s.True(updated.IsActive)
	})

	s.Run("super accounts are protected targets", func() {
		other := s.newAdmin(admin.RoleSuper)

		_, err := s.service.ToggleAdminActive(superCtx, other.ID, "should not work")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		unchanged, err := s.admins.FindByID(s.ctx, other.ID)
		s.Require().NoError(err)
		s.True(unchanged.IsActive)
	})
}

func (s *TransitionSuite) TestSwitchActiveGateway() {
	superCtx := s.asActor(s.ctx, s.super)

	s.Run("switches and keeps exactly one gateway active", func() {
		action, err := s.service.SwitchActiveGateway(superCtx, payment.GatewayMercadoPago)
		s.Require().NoError(err)
		s.Equal(audit.ActionSwitchActiveGateway, action.Type)

		all, err := s.gateways.ListAll(s.ctx)
		s.Require().NoError(err)
		active := 0
		for _, g := range all {
			if g.IsActive {
				active++
				s.Equal(payment.GatewayMercadoPago, g.Name)
			}
		}
		s.Equal(1, active)
	})

	s.Run("switching to the already active gateway is a precondition failure", func() {
		_, err := s.service.SwitchActiveGateway(superCtx, payment.GatewayPagarme)
		s.Require().NoError(err)

		_, err = s.service.SwitchActiveGateway(superCtx, payment.GatewayPagarme)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("unknown gateway name fails validation", func() {
		_, err := s.service.SwitchActiveGateway(superCtx, "stripe")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("configured but unseeded gateway maps to not found", func() {
		_, err := s.service.SwitchActiveGateway(superCtx, payment.GatewayAsaas)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// readyProfile seeds every fact needed for card issuance.
func (s *TransitionSuite) readyProfile() id.ProfileID {
	profileID := id.ProfileID(uuid.New())
	ctx := context.Background()

	s.Require().NoError(s.profiles.Save(ctx, &onboarding.Profile{
		ID:               profileID,
		ProfileCompleted: true,
		TermsAccepted:    true,
		FaceValidated:    true,
	}))
	s.Require().NoError(s.payments.Save(ctx, &onboarding.Payment{
		ID:        id.PaymentID(uuid.New()),
		ProfileID: profileID,
		Status:    onboarding.PaymentApproved,
	}))
	for _, t := range onboarding.RequiredDocumentTypes {
		s.Require().NoError(s.documents.Save(ctx, &onboarding.Document{
			ID:        id.DocumentID(uuid.New()),
			ProfileID: profileID,
			Type:      t,
			Status:    onboarding.DocumentApproved,
		}))
	}
	return profileID
}

func (s *TransitionSuite) TestIssueCard() {
	s.Run("issues once every precondition holds", func() {
		profileID := s.readyProfile()

		action, err := s.service.IssueCard(s.ctx, profileID, "https://cards.example/digital/abc")
		s.Require().NoError(err)
		s.Equal(audit.ActionIssueCard, action.Type)

		card, err := s.cards.FindByProfile(s.ctx, profileID)
		s.Require().NoError(err)
		s.Equal(onboarding.CardActive, card.Status)
		s.Equal("https://cards.example/digital/abc", card.DigitalCardURL)
	})

	s.Run("second issuance conflicts", func() {
		profileID := s.readyProfile()
		_, err := s.service.IssueCard(s.ctx, profileID, "https://cards.example/digital/1")
		s.Require().NoError(err)

		_, err = s.service.IssueCard(s.ctx, profileID, "https://cards.example/digital/2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition) || dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("incomplete documents block issuance", func() {
		profileID := s.readyProfile()
		docs, err := s.documents.ListByProfile(s.ctx, profileID)
		s.Require().NoError(err)
		_, err = s.documents.Execute(s.ctx, docs[0].ID,
			func(*onboarding.Document) error { return nil },
			func(d *onboarding.Document) { d.Status = onboarding.DocumentRejected },
		)
		s.Require().NoError(err)

		_, err = s.service.IssueCard(s.ctx, profileID, "https://cards.example/digital/x")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("missing digital card URL fails validation", func() {
		profileID := s.readyProfile()
		_, err := s.service.IssueCard(s.ctx, profileID, "  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TransitionSuite) issuedCard(profileID id.ProfileID) *onboarding.Card {
	card := &onboarding.Card{
		ID:             id.CardID(uuid.New()),
		ProfileID:      profileID,
		Status:         onboarding.CardActive,
		DigitalCardURL: "https://cards.example/digital/seed",
	}
	s.Require().NoError(s.cards.CreateIfAbsent(context.Background(), card))
	return card
}

func (s *TransitionSuite) TestRegisterShipment() {
	s.Run("records the tracking code", func() {
		card := s.issuedCard(id.ProfileID(uuid.New()))

		action, err := s.service.RegisterShipment(s.ctx, card.ID, "BR123456789")
		s.Require().NoError(err)
		s.Equal(audit.ActionRegisterShipment, action.Type)

		updated, err := s.cards.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.ShippingShipped, updated.ShippingStatus)
		s.Equal("BR123456789", updated.TrackingCode)
	})

	s.Run("blank tracking code is rejected", func() {
		card := s.issuedCard(id.ProfileID(uuid.New()))

		_, err := s.service.RegisterShipment(s.ctx, card.ID, " ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("already shipped card cannot be shipped again", func() {
		card := s.issuedCard(id.ProfileID(uuid.New()))
		_, err := s.service.RegisterShipment(s.ctx, card.ID, "BR1")
		s.Require().NoError(err)

		_, err = s.service.RegisterShipment(s.ctx, card.ID, "BR2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})
}

func (s *TransitionSuite) TestPrintBatch() {
	s.Run("partial failure isolates bad items", func() {
		good1 := s.issuedCard(id.ProfileID(uuid.New()))
		good2 := s.issuedCard(id.ProfileID(uuid.New()))
		missing := id.CardID(uuid.New())

		result, action, err := s.service.PrintBatch(s.ctx, []id.CardID{good1.ID, missing, good2.ID})
		s.Require().NoError(err)
		s.Equal(audit.ActionPrintBatch, action.Type)
		s.Len(result.Printed, 2)
		s.Require().Len(result.Failed, 1)
		s.Equal(missing, result.Failed[0].CardID)

		for _, cardID := range []id.CardID{good1.ID, good2.ID} {
			card, err := s.cards.FindByID(s.ctx, cardID)
			s.Require().NoError(err)
			s.Equal(onboarding.ShippingPrinted, card.ShippingStatus)
			s.Require().NotNil(card.PrintedAt)
		}
	})

	s.Run("one audit action summarizes the whole batch", func() {
		before := len(s.auditStore.All())
		card := s.issuedCard(id.ProfileID(uuid.New()))

		_, _, err := s.service.PrintBatch(s.ctx, []id.CardID{card.ID})
		s.Require().NoError(err)
		s.Len(s.auditStore.All(), before+1)
	})
}
