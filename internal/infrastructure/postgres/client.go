package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id               BIGSERIAL PRIMARY KEY,
	tg_user_id       BIGINT       NOT NULL,
	tg_username      VARCHAR(128),
	tg_first_name    VARCHAR(128),
	tg_last_name     VARCHAR(128),
	discipline       VARCHAR(16)  NOT NULL,
	mode             VARCHAR(16)  NOT NULL,
	payload          JSONB        NOT NULL,
	created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
	submitted_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
	source_init_data TEXT
);
CREATE INDEX IF NOT EXISTS registrations_tg_user_id_idx ON registrations (tg_user_id);
CREATE INDEX IF NOT EXISTS registrations_submitted_at_idx ON registrations (submitted_at DESC);
`

// Open connects to Postgres and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Bootstrap creates the ledger table and indexes if they don't already exist.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
