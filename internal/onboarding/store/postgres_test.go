package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock

	payments *PostgresPaymentStore
	cards    *PostgresCardStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.mock = mock
	s.payments = NewPostgresPaymentStore(db)
	s.cards = NewPostgresCardStore(db)
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

var paymentRowColumns = []string{
	"id", "profile_id", "method", "amount_cents", "gateway", "gateway_charge_id",
	"status", "receipt_url", "confirmed_at", "created_at", "updated_at",
}

func (s *PostgresStoreSuite) paymentRow(paymentID, profileID uuid.UUID, status onboarding.PaymentStatus) *sqlmock.Rows {
	return sqlmock.NewRows(paymentRowColumns).
		AddRow(paymentID, profileID, "pix", int64(3500), "pagarme", "ch_1",
			string(status), "", nil, s.now, s.now)
}

// TestPaymentExecute verifies the row stays locked across validate and
// mutate, and that a validate failure rolls back without issuing an UPDATE.
func (s *PostgresStoreSuite) TestPaymentExecute() {
	paymentID := uuid.New()
	profileID := uuid.New()

	s.Run("commits the mutation after validate passes", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(s.paymentRow(paymentID, profileID, onboarding.PaymentPending))
		s.mock.ExpectExec(`UPDATE payments SET status = \$2, receipt_url = \$3, confirmed_at = \$4, updated_at = \$5`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectCommit()

		updated, err := s.payments.Execute(s.ctx, id.PaymentID(paymentID),
			func(p *onboarding.Payment) error { return p.CanMarkPaid() },
			func(p *onboarding.Payment) { p.ApplyManualConfirmation("", s.now) },
		)
		s.Require().NoError(err)
		s.Equal(onboarding.PaymentApproved, updated.Status)
	})

	s.Run("validate failure rolls back with no update", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(s.paymentRow(paymentID, profileID, onboarding.PaymentApproved))
		s.mock.ExpectRollback()

		_, err := s.payments.Execute(s.ctx, id.PaymentID(paymentID),
			func(p *onboarding.Payment) error { return p.CanMarkPaid() },
			func(p *onboarding.Payment) { p.ApplyManualConfirmation("", s.now) },
		)
		s.Require().Error(err)
	})

	s.Run("missing row maps to ErrNotFound", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(sqlmock.NewRows(paymentRowColumns))
		s.mock.ExpectRollback()

		_, err := s.payments.Execute(s.ctx, id.PaymentID(paymentID),
			func(*onboarding.Payment) error { return nil },
			func(*onboarding.Payment) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCardCreateIfAbsent verifies the conditional insert backing the
// one-active-card invariant.
func (s *PostgresStoreSuite) TestCardCreateIfAbsent() {
	card := &onboarding.Card{
		ID:             id.CardID(uuid.New()),
		ProfileID:      id.ProfileID(uuid.New()),
		Status:         onboarding.CardActive,
		DigitalCardURL: "https://cards.example/digital/1",
		ShippingStatus: onboarding.ShippingNone,
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}

	s.Run("inserts when no active card exists", func() {
		s.mock.ExpectExec(`INSERT INTO cards (.+) WHERE NOT EXISTS`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Require().NoError(s.cards.CreateIfAbsent(s.ctx, card))
	})

	s.Run("zero affected rows means an active card already exists", func() {
		s.mock.ExpectExec(`INSERT INTO cards (.+) WHERE NOT EXISTS`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := s.cards.CreateIfAbsent(s.ctx, card)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}
