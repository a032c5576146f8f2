package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carteirinha/pkg/platform/sentinel"
)

// PostgresGatewayStore persists gateway rows. The switch runs as a single
// conditional transaction, never as N independent updates, so the
// one-active-row invariant holds even under concurrent switches.
type PostgresGatewayStore struct {
	db *sql.DB
}

func NewPostgresGatewayStore(db *sql.DB) *PostgresGatewayStore {
	return &PostgresGatewayStore{db: db}
}

const gatewayColumns = `name, display_name, is_active, updated_at`

func scanGateway(row interface{ Scan(...any) error }) (*Gateway, error) {
	var g Gateway
	err := row.Scan(&g.Name, &g.DisplayName, &g.IsActive, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan gateway: %w", err)
	}
	return &g, nil
}

func (s *PostgresGatewayStore) ListAll(ctx context.Context) ([]Gateway, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query gateways: %w", err)
	}
	defer rows.Close()

	var out []Gateway
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *PostgresGatewayStore) FindByName(ctx context.Context, name string) (*Gateway, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways WHERE name = $1`, name)
	return scanGateway(row)
}

func (s *PostgresGatewayStore) Active(ctx context.Context) (*Gateway, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways WHERE is_active LIMIT 1`)
	return scanGateway(row)
}

func (s *PostgresGatewayStore) SwitchActive(ctx context.Context, name string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+gatewayColumns+` FROM gateways WHERE name = $1 FOR UPDATE`, name)
	target, err := scanGateway(row)
	if err != nil {
		return err
	}
	if target.IsActive {
		return sentinel.ErrInvalidState
	}

	// One statement flips every row: the target on, everything else off.
	_, err = tx.ExecContext(ctx,
		`UPDATE gateways SET is_active = (name = $1), updated_at = $2 WHERE is_active <> (name = $1)`,
		name, now)
	if err != nil {
		return fmt.Errorf("switch gateway: %w", err)
	}
	return tx.Commit()
}
