package audit

import (
	"context"
)

// Repository is append-only: entries can be created and listed, nothing
// else.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, action Action, limit, offset int) ([]*Entry, int, error)
}
