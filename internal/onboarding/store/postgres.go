package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

// Open connects to PostgreSQL through the pgx stdlib driver with pool
// defaults tuned for this service.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	return db, nil
}

// withRowLock runs fn inside a transaction. The caller's SELECT uses FOR
// UPDATE so validate and mutate observe a stable row.
func withRowLock(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// PostgresProfileStore persists profiles.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

const profileColumns = `id, name, cpf, birth_date, institution, course, education_level,
	profile_completed, terms_accepted, is_law_student, manual_review_requested,
	face_validated, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*onboarding.Profile, error) {
	var p onboarding.Profile
	var pid uuid.UUID
	err := row.Scan(&pid, &p.Name, &p.CPF, &p.BirthDate, &p.Institution, &p.Course,
		&p.EducationLevel, &p.ProfileCompleted, &p.TermsAccepted, &p.IsLawStudent,
		&p.ManualReviewRequested, &p.FaceValidated, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.ID = id.ProfileID(pid)
	return &p, nil
}

func (s *PostgresProfileStore) Save(ctx context.Context, profile *onboarding.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			cpf = EXCLUDED.cpf,
			birth_date = EXCLUDED.birth_date,
			institution = EXCLUDED.institution,
			course = EXCLUDED.course,
			education_level = EXCLUDED.education_level,
			profile_completed = EXCLUDED.profile_completed,
			terms_accepted = EXCLUDED.terms_accepted,
			is_law_student = EXCLUDED.is_law_student,
			manual_review_requested = EXCLUDED.manual_review_requested,
			face_validated = EXCLUDED.face_validated,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profile.ID), profile.Name, profile.CPF, profile.BirthDate,
		profile.Institution, profile.Course, string(profile.EducationLevel),
		profile.ProfileCompleted, profile.TermsAccepted, profile.IsLawStudent,
		profile.ManualReviewRequested, profile.FaceValidated,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindByID(ctx context.Context, profileID id.ProfileID) (*onboarding.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, uuid.UUID(profileID))
	return scanProfile(row)
}

func (s *PostgresProfileStore) Execute(ctx context.Context, profileID id.ProfileID,
	validate func(*onboarding.Profile) error,
	mutate func(*onboarding.Profile)) (*onboarding.Profile, error) {
	var updated *onboarding.Profile
	err := withRowLock(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`,
			uuid.UUID(profileID))
		p, err := scanProfile(row)
		if err != nil {
			return err
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)
		_, err = tx.ExecContext(ctx, `
			UPDATE profiles SET
				profile_completed = $2, terms_accepted = $3,
				manual_review_requested = $4, face_validated = $5, updated_at = $6
			WHERE id = $1`,
			uuid.UUID(p.ID), p.ProfileCompleted, p.TermsAccepted,
			p.ManualReviewRequested, p.FaceValidated, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PostgresPaymentStore persists payments with their permanent gateway
// attribution.
type PostgresPaymentStore struct {
	db *sql.DB
}

func NewPostgresPaymentStore(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

const paymentColumns = `id, profile_id, method, amount_cents, gateway, gateway_charge_id,
	status, receipt_url, confirmed_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*onboarding.Payment, error) {
	var p onboarding.Payment
	var pid, profileID uuid.UUID
	var confirmedAt sql.NullTime
	err := row.Scan(&pid, &profileID, &p.Method, &p.AmountCents, &p.Gateway,
		&p.GatewayChargeID, &p.Status, &p.ReceiptURL, &confirmedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.ID = id.PaymentID(pid)
	p.ProfileID = id.ProfileID(profileID)
	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}
	return &p, nil
}

func (s *PostgresPaymentStore) Save(ctx context.Context, payment *onboarding.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			receipt_url = EXCLUDED.receipt_url,
			confirmed_at = EXCLUDED.confirmed_at,
			updated_at = EXCLUDED.updated_at
	`
	var confirmedAt sql.NullTime
	if payment.ConfirmedAt != nil {
		confirmedAt = sql.NullTime{Time: *payment.ConfirmedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(payment.ID), uuid.UUID(payment.ProfileID), payment.Method,
		payment.AmountCents, payment.Gateway, payment.GatewayChargeID,
		string(payment.Status), payment.ReceiptURL, confirmedAt,
		payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (s *PostgresPaymentStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*onboarding.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, uuid.UUID(paymentID))
	return scanPayment(row)
}

func (s *PostgresPaymentStore) FindByGatewayCharge(ctx context.Context, gateway, chargeID string) (*onboarding.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway = $1 AND gateway_charge_id = $2`,
		gateway, chargeID)
	return scanPayment(row)
}

func (s *PostgresPaymentStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE profile_id = $1 ORDER BY created_at`,
		uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []onboarding.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresPaymentStore) Execute(ctx context.Context, paymentID id.PaymentID,
	validate func(*onboarding.Payment) error,
	mutate func(*onboarding.Payment)) (*onboarding.Payment, error) {
	var updated *onboarding.Payment
	err := withRowLock(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`,
			uuid.UUID(paymentID))
		p, err := scanPayment(row)
		if err != nil {
			return err
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)
		var confirmedAt sql.NullTime
		if p.ConfirmedAt != nil {
			confirmedAt = sql.NullTime{Time: *p.ConfirmedAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, receipt_url = $3, confirmed_at = $4, updated_at = $5
			WHERE id = $1`,
			uuid.UUID(p.ID), string(p.Status), p.ReceiptURL, confirmedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PostgresDocumentStore persists reviewed documents.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

const documentColumns = `id, profile_id, doc_type, status, file_url, rejection_reason,
	rejection_notes, validated_by, validated_at, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*onboarding.Document, error) {
	var d onboarding.Document
	var did, profileID uuid.UUID
	var validatedBy uuid.NullUUID
	var validatedAt sql.NullTime
	err := row.Scan(&did, &profileID, &d.Type, &d.Status, &d.FileURL,
		&d.RejectionReason, &d.RejectionNotes, &validatedBy, &validatedAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.ID = id.DocumentID(did)
	d.ProfileID = id.ProfileID(profileID)
	if validatedBy.Valid {
		d.ValidatedBy = id.AdminID(validatedBy.UUID)
	}
	if validatedAt.Valid {
		d.ValidatedAt = &validatedAt.Time
	}
	return &d, nil
}

func (s *PostgresDocumentStore) Save(ctx context.Context, document *onboarding.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			file_url = EXCLUDED.file_url,
			rejection_reason = EXCLUDED.rejection_reason,
			rejection_notes = EXCLUDED.rejection_notes,
			validated_by = EXCLUDED.validated_by,
			validated_at = EXCLUDED.validated_at,
			updated_at = EXCLUDED.updated_at
	`
	var validatedBy uuid.NullUUID
	if !document.ValidatedBy.IsNil() {
		validatedBy = uuid.NullUUID{UUID: uuid.UUID(document.ValidatedBy), Valid: true}
	}
	var validatedAt sql.NullTime
	if document.ValidatedAt != nil {
		validatedAt = sql.NullTime{Time: *document.ValidatedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(document.ID), uuid.UUID(document.ProfileID), string(document.Type),
		string(document.Status), document.FileURL, document.RejectionReason,
		document.RejectionNotes, validatedBy, validatedAt,
		document.CreatedAt, document.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) FindByID(ctx context.Context, documentID id.DocumentID) (*onboarding.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(documentID))
	return scanDocument(row)
}

func (s *PostgresDocumentStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE profile_id = $1 ORDER BY created_at`,
		uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []onboarding.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresDocumentStore) Execute(ctx context.Context, documentID id.DocumentID,
	validate func(*onboarding.Document) error,
	mutate func(*onboarding.Document)) (*onboarding.Document, error) {
	var updated *onboarding.Document
	err := withRowLock(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`,
			uuid.UUID(documentID))
		d, err := scanDocument(row)
		if err != nil {
			return err
		}
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)
		var validatedBy uuid.NullUUID
		if !d.ValidatedBy.IsNil() {
			validatedBy = uuid.NullUUID{UUID: uuid.UUID(d.ValidatedBy), Valid: true}
		}
		var validatedAt sql.NullTime
		if d.ValidatedAt != nil {
			validatedAt = sql.NullTime{Time: *d.ValidatedAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET
				status = $2, rejection_reason = $3, rejection_notes = $4,
				validated_by = $5, validated_at = $6, updated_at = $7
			WHERE id = $1`,
			uuid.UUID(d.ID), string(d.Status), d.RejectionReason, d.RejectionNotes,
			validatedBy, validatedAt, d.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PostgresFaceValidationStore stores append-only pipeline attempts.
type PostgresFaceValidationStore struct {
	db *sql.DB
}

func NewPostgresFaceValidationStore(db *sql.DB) *PostgresFaceValidationStore {
	return &PostgresFaceValidationStore{db: db}
}

func (s *PostgresFaceValidationStore) Append(ctx context.Context, attempt onboarding.FaceValidation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO face_validations (profile_id, similarity, passed, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(attempt.ProfileID), attempt.Similarity, attempt.Passed, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face validation: %w", err)
	}
	return nil
}

func (s *PostgresFaceValidationStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.FaceValidation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, similarity, passed, created_at
		FROM face_validations WHERE profile_id = $1 ORDER BY created_at`,
		uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("query face validations: %w", err)
	}
	defer rows.Close()

	var out []onboarding.FaceValidation
	for rows.Next() {
		var fv onboarding.FaceValidation
		var pid uuid.UUID
		if err := rows.Scan(&pid, &fv.Similarity, &fv.Passed, &fv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face validation: %w", err)
		}
		fv.ProfileID = id.ProfileID(pid)
		out = append(out, fv)
	}
	return out, rows.Err()
}

// PostgresCardStore persists issued cards. A partial unique index on
// (profile_id) WHERE status = 'active' backs the one-active-card invariant.
type PostgresCardStore struct {
	db *sql.DB
}

func NewPostgresCardStore(db *sql.DB) *PostgresCardStore {
	return &PostgresCardStore{db: db}
}

const cardColumns = `id, profile_id, status, digital_card_url, shipping_status,
	tracking_code, printed_at, shipped_at, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*onboarding.Card, error) {
	var c onboarding.Card
	var cid, profileID uuid.UUID
	var printedAt, shippedAt sql.NullTime
	err := row.Scan(&cid, &profileID, &c.Status, &c.DigitalCardURL, &c.ShippingStatus,
		&c.TrackingCode, &printedAt, &shippedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	c.ID = id.CardID(cid)
	c.ProfileID = id.ProfileID(profileID)
	if printedAt.Valid {
		c.PrintedAt = &printedAt.Time
	}
	if shippedAt.Valid {
		c.ShippedAt = &shippedAt.Time
	}
	return &c, nil
}

func (s *PostgresCardStore) CreateIfAbsent(ctx context.Context, card *onboarding.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
		WHERE NOT EXISTS (
			SELECT 1 FROM cards WHERE profile_id = $2 AND status = 'active'
		)
	`
	var printedAt, shippedAt sql.NullTime
	if card.PrintedAt != nil {
		printedAt = sql.NullTime{Time: *card.PrintedAt, Valid: true}
	}
	if card.ShippedAt != nil {
		shippedAt = sql.NullTime{Time: *card.ShippedAt, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(card.ID), uuid.UUID(card.ProfileID), string(card.Status),
		card.DigitalCardURL, string(card.ShippingStatus), card.TrackingCode,
		printedAt, shippedAt, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresCardStore) FindByID(ctx context.Context, cardID id.CardID) (*onboarding.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, uuid.UUID(cardID))
	return scanCard(row)
}

func (s *PostgresCardStore) FindByProfile(ctx context.Context, profileID id.ProfileID) (*onboarding.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE profile_id = $1 ORDER BY created_at DESC LIMIT 1`,
		uuid.UUID(profileID))
	return scanCard(row)
}

func (s *PostgresCardStore) Execute(ctx context.Context, cardID id.CardID,
	validate func(*onboarding.Card) error,
	mutate func(*onboarding.Card)) (*onboarding.Card, error) {
	var updated *onboarding.Card
	err := withRowLock(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`,
			uuid.UUID(cardID))
		c, err := scanCard(row)
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		var printedAt, shippedAt sql.NullTime
		if c.PrintedAt != nil {
			printedAt = sql.NullTime{Time: *c.PrintedAt, Valid: true}
		}
		if c.ShippedAt != nil {
			shippedAt = sql.NullTime{Time: *c.ShippedAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE cards SET
				status = $2, digital_card_url = $3, shipping_status = $4,
				tracking_code = $5, printed_at = $6, shipped_at = $7, updated_at = $8
			WHERE id = $1`,
			uuid.UUID(c.ID), string(c.Status), c.DigitalCardURL, string(c.ShippingStatus),
			c.TrackingCode, printedAt, shippedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
