package docevents

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	ListByDocument(ctx context.Context, documentID uuid.UUID, limit, offset int) ([]*Event, int, error)
}
