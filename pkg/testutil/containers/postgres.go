//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// service schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id                      UUID PRIMARY KEY,
	name                    TEXT NOT NULL,
	cpf                     TEXT NOT NULL,
	birth_date              TIMESTAMPTZ NOT NULL DEFAULT '0001-01-01T00:00:00Z',
	institution             TEXT NOT NULL DEFAULT '',
	course                  TEXT NOT NULL DEFAULT '',
	education_level         TEXT NOT NULL DEFAULT '',
	profile_completed       BOOLEAN NOT NULL DEFAULT FALSE,
	terms_accepted          BOOLEAN NOT NULL DEFAULT FALSE,
	is_law_student          BOOLEAN NOT NULL DEFAULT FALSE,
	manual_review_requested BOOLEAN NOT NULL DEFAULT FALSE,
	face_validated          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id                UUID PRIMARY KEY,
	profile_id        UUID NOT NULL,
	method            TEXT NOT NULL,
	amount_cents      BIGINT NOT NULL,
	gateway           TEXT NOT NULL,
	gateway_charge_id TEXT NOT NULL,
	status            TEXT NOT NULL,
	receipt_url       TEXT NOT NULL DEFAULT '',
	confirmed_at      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payments_profile_idx ON payments (profile_id);
CREATE UNIQUE INDEX IF NOT EXISTS payments_gateway_charge_idx
	ON payments (gateway, gateway_charge_id);

CREATE TABLE IF NOT EXISTS documents (
	id               UUID PRIMARY KEY,
	profile_id       UUID NOT NULL,
	doc_type         TEXT NOT NULL,
	status           TEXT NOT NULL,
	file_url         TEXT NOT NULL DEFAULT '',
	rejection_reason TEXT NOT NULL DEFAULT '',
	rejection_notes  TEXT NOT NULL DEFAULT '',
	validated_by     UUID,
	validated_at     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_profile_idx ON documents (profile_id);

CREATE TABLE IF NOT EXISTS face_validations (
	profile_id UUID NOT NULL,
	similarity DOUBLE PRECISION NOT NULL,
	passed     BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS face_validations_profile_idx ON face_validations (profile_id);

CREATE TABLE IF NOT EXISTS cards (
	id               UUID PRIMARY KEY,
	profile_id       UUID NOT NULL,
	status           TEXT NOT NULL,
	digital_card_url TEXT NOT NULL DEFAULT '',
	shipping_status  TEXT NOT NULL DEFAULT '',
	tracking_code    TEXT NOT NULL DEFAULT '',
	printed_at       TIMESTAMPTZ,
	shipped_at       TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS cards_one_active_idx
	ON cards (profile_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS gateways (
	name         TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS admins_email_idx ON admins (lower(email));

CREATE TABLE IF NOT EXISTS audit_actions (
	id                TEXT PRIMARY KEY,
	performed_by      UUID NOT NULL,
	actor_role        TEXT NOT NULL,
	action_type       TEXT NOT NULL,
	target_profile_id UUID,
	target_entity     TEXT NOT NULL DEFAULT '',
	details           TEXT NOT NULL DEFAULT '',
	request_id        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_actions_profile_idx ON audit_actions (target_profile_id);
`

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("carteirinha_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Container is managed by the singleton Manager and shared across test
	// suites, so no t.Cleanup here. Ryuk handles cleanup.

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
