package ports

import (
	"context"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

// EmailHistoryRepository keeps the most recent send attempts. List returns
// entries newest first and DeleteByIndices addresses that same ordering.
type EmailHistoryRepository interface {
	Append(ctx context.Context, entry domain.EmailHistoryEntry) error
	List(ctx context.Context) ([]domain.EmailHistoryEntry, error)
	DeleteByIndices(ctx context.Context, indices []int) (int, error)
	Clear(ctx context.Context) error
}
