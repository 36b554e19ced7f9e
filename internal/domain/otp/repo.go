package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Code) error
	// LatestActiveByPhone returns the most recent unused, unexpired code
	// for the phone number, or pgx.ErrNoRows.
	LatestActiveByPhone(ctx context.Context, phone string, now time.Time) (*Code, error)
	// Consume marks the code used with a guarded update. It reports false
	// when the row was already consumed by a concurrent verify.
	Consume(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
	// CountIssuedSince counts codes the requester issued in the sliding
	// rate-limit window.
	CountIssuedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int, error)
	// HasGrantSince reports whether the doctor verified a code for the
	// patient with used_at at or after the window start.
	HasGrantSince(ctx context.Context, patientID, doctorID uuid.UUID, since time.Time) (bool, error)
}
