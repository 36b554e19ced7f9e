package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service records and lists audit entries. Recording is best effort: a
// failed write is logged but never fails the calling operation.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends an audit entry.
func (s *Service) Record(ctx context.Context, action Action, userID, actorID *uuid.UUID, details map[string]any, ip, userAgent string) {
	entry := &Entry{
		Action:      action,
		UserID:      userID,
		PerformedBy: actorID,
		Details:     details,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("audit write failed")
	}
}

// List returns entries, newest first, optionally filtered by action.
func (s *Service) List(ctx context.Context, action Action, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, action, limit, offset)
}
