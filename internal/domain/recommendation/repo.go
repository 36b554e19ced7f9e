package recommendation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// List returns history, newest first. A nil doctorID lists everyone's.
	List(ctx context.Context, doctorID *uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
