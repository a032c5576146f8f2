package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"carteirinha/internal/audit"
	id "carteirinha/pkg/domain"
)

// Store persists audit actions in PostgreSQL. Inserts are idempotent on the
// ULID primary key; nothing ever updates or deletes a row.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const columns = `id, performed_by, actor_role, action_type, target_profile_id,
	target_entity, details, request_id, created_at`

func (s *Store) Append(ctx context.Context, action audit.Action) error {
	query := `
		INSERT INTO audit_actions (` + columns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`
	var targetProfile uuid.NullUUID
	if !action.TargetProfile.IsNil() {
		targetProfile = uuid.NullUUID{UUID: uuid.UUID(action.TargetProfile), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		action.ID,
		uuid.UUID(action.PerformedBy),
		action.ActorRole,
		string(action.Type),
		targetProfile,
		action.TargetEntity,
		action.Details,
		action.RequestID,
		action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit action: %w", err)
	}
	return nil
}

func (s *Store) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]audit.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM audit_actions
		WHERE target_profile_id = $1
		ORDER BY id DESC`,
		uuid.UUID(profileID))
	if err != nil {
		return nil, fmt.Errorf("query audit actions: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM audit_actions
		ORDER BY id DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query audit actions: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func scanActions(rows *sql.Rows) ([]audit.Action, error) {
	var actions []audit.Action
	for rows.Next() {
		var (
			a             audit.Action
			performedBy   uuid.UUID
			targetProfile uuid.NullUUID
		)
		err := rows.Scan(
			&a.ID,
			&performedBy,
			&a.ActorRole,
			&a.Type,
			&targetProfile,
			&a.TargetEntity,
			&a.Details,
			&a.RequestID,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit action: %w", err)
		}
		a.PerformedBy = id.AdminID(performedBy)
		if targetProfile.Valid {
			a.TargetProfile = id.ProfileID(targetProfile.UUID)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit actions: %w", err)
	}
	return actions, nil
}
