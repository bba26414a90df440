package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

type EmailTemplateRepository struct {
	db *sqlx.DB
}

var _ ports.EmailTemplateRepository = (*EmailTemplateRepository)(nil)

func NewEmailTemplateRepo(db *sqlx.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

type templateRow struct {
	domain.EmailTemplate
	Recipients pq.StringArray `db:"recipients"`
}

func (row templateRow) toDomain() *domain.EmailTemplate {
	tpl := row.EmailTemplate
	tpl.Recipients = []string(row.Recipients)
	if tpl.Recipients == nil {
		tpl.Recipients = []string{}
	}
	return &tpl
}

func (r *EmailTemplateRepository) Upsert(ctx context.Context, tpl *domain.EmailTemplate) (*domain.EmailTemplate, error) {
	const query = `
		INSERT INTO email_template (name, subject, body, recipients)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name)
		DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			recipients = EXCLUDED.recipients
		RETURNING name, subject, body, recipients, created_at
	`
	var row templateRow
	err := r.db.QueryRowxContext(ctx, query, tpl.Name, tpl.Subject, tpl.Body, pq.Array(tpl.Recipients)).StructScan(&row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *EmailTemplateRepository) FindByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	const query = `
		SELECT name, subject, body, recipients, created_at
		FROM email_template
		WHERE name = $1
	`
	var row templateRow
	if err := r.db.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrTemplateNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}
