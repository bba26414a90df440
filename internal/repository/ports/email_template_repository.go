package ports

import (
	"context"
	"errors"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

var ErrTemplateNotFound = errors.New("email template not found")

type EmailTemplateRepository interface {
	Upsert(ctx context.Context, tpl *domain.EmailTemplate) (*domain.EmailTemplate, error)
	FindByName(ctx context.Context, name string) (*domain.EmailTemplate, error)
}
