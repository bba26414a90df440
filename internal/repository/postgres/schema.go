package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS email_history (
    id              UUID PRIMARY KEY,
    recipient       TEXT NOT NULL,
    subject         TEXT NOT NULL,
    attachment_name TEXT NOT NULL DEFAULT '',
    sent_at         TIMESTAMPTZ NOT NULL,
    message_id      TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    error           TEXT
);

CREATE INDEX IF NOT EXISTS email_history_sent_at_idx ON email_history (sent_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS email_template (
    name       TEXT PRIMARY KEY,
    subject    TEXT NOT NULL,
    body       TEXT NOT NULL,
    recipients TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the tables used by the email repositories.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
