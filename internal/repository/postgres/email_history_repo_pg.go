package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

type EmailHistoryRepository struct {
	db    *sqlx.DB
	limit int
}

var _ ports.EmailHistoryRepository = (*EmailHistoryRepository)(nil)

func NewEmailHistoryRepo(db *sqlx.DB, limit int) *EmailHistoryRepository {
	if limit <= 0 {
		limit = domain.EmailHistoryLimit
	}
	return &EmailHistoryRepository{db: db, limit: limit}
}

const historyColumns = `id, recipient, subject, attachment_name, sent_at, message_id, status, error`

// Append inserts the entry and trims the log to the newest entries in one
// transaction.
func (r *EmailHistoryRepository) Append(ctx context.Context, entry domain.EmailHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO email_history (` + historyColumns + `)
		VALUES (:id, :recipient, :subject, :attachment_name, :sent_at, :message_id, :status, :error)
	`
	if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	const trim = `
		DELETE FROM email_history
		WHERE id IN (
			SELECT id FROM email_history
			ORDER BY sent_at DESC, id DESC
			OFFSET $1
		)
	`
	if _, err := tx.ExecContext(ctx, trim, r.limit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (r *EmailHistoryRepository) List(ctx context.Context) ([]domain.EmailHistoryEntry, error) {
	const query = `
		SELECT ` + historyColumns + `
		FROM email_history
		ORDER BY sent_at DESC, id DESC
		LIMIT $1
	`
	entries := make([]domain.EmailHistoryEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, r.limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteByIndices removes the entries at the given positions of the
// newest-first view. The view is locked while it is resolved so concurrent
// appends cannot shift the indices.
func (r *EmailHistoryRepository) DeleteByIndices(ctx context.Context, indices []int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const lockQuery = `
		SELECT ` + historyColumns + `
		FROM email_history
		ORDER BY sent_at DESC, id DESC
		LIMIT $1
		FOR UPDATE
	`
	var snapshot []domain.EmailHistoryEntry
	if err := tx.SelectContext(ctx, &snapshot, lockQuery, r.limit); err != nil {
		return 0, fmt.Errorf("lock history: %w", err)
	}

	targets, err := domain.ResolveHistoryIndices(snapshot, indices)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, tx.Commit()
	}

	ids := make([]string, len(targets))
	for i, e := range targets {
		ids[i] = e.ID.String()
	}
	const deleteQuery = `DELETE FROM email_history WHERE id = ANY($1::uuid[])`
	res, err := tx.ExecContext(ctx, deleteQuery, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *EmailHistoryRepository) Clear(ctx context.Context) error {
	const query = `DELETE FROM email_history`
	_, err := r.db.ExecContext(ctx, query)
	return err
}
