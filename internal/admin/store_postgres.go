package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

// PostgresStore persists staff accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const adminColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

func scanAdmin(row interface{ Scan(...any) error }) (*Admin, error) {
	var a Admin
	var aid uuid.UUID
	err := row.Scan(&aid, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	a.ID = id.AdminID(aid)
	return &a, nil
}

func (s *PostgresStore) Save(ctx context.Context, a *Admin) error {
	query := `
		INSERT INTO admins (` + adminColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.PasswordHash, string(a.Role), a.IsActive,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, adminID id.AdminID) (*Admin, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, uuid.UUID(adminID))
	return scanAdmin(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE lower(email) = lower($1)`, email)
	return scanAdmin(row)
}

func (s *PostgresStore) Execute(ctx context.Context, adminID id.AdminID,
	validate func(*Admin) error,
	mutate func(*Admin)) (*Admin, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1 FOR UPDATE`, uuid.UUID(adminID))
	a, err := scanAdmin(row)
	if err != nil {
		return nil, err
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)

	_, err = tx.ExecContext(ctx,
		`UPDATE admins SET is_active = $2, role = $3, updated_at = $4 WHERE id = $1`,
		uuid.UUID(a.ID), a.IsActive, string(a.Role), a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}
