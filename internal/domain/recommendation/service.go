package recommendation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/recommend"
	"github.com/carehub/carehub/pkg/apperr"
)

// Recommender is the model-backed client surface this service drives.
type Recommender interface {
	Recommend(ctx context.Context, medicine string, info recommend.PatientInfo) (*recommend.Recommendation, error)
	ClearCache()
	CacheStats() recommend.CacheStats
}

type Service struct {
	repo   Repository
	client Recommender
	logger zerolog.Logger
}

func NewService(repo Repository, client Recommender, logger zerolog.Logger) *Service {
	return &Service{repo: repo, client: client, logger: logger}
}

// RequestInput names the medicine and optional patient context.
type RequestInput struct {
	MedicineName string                `json:"medicine_name"`
	PatientInfo  recommend.PatientInfo `json:"patient_info"`
}

// Recommend fetches alternatives and warnings and records the request in
// the caller's history. A failed history write is logged, not surfaced;
// the clinical answer still stands.
func (s *Service) Recommend(ctx context.Context, ident *auth.Identity, in RequestInput) (*recommend.Recommendation, error) {
	if strings.TrimSpace(in.MedicineName) == "" {
		return nil, apperr.Validation("invalid request",
			map[string]string{"medicine_name": "medicine name is required"})
	}

	rec, err := s.client.Recommend(ctx, in.MedicineName, in.PatientInfo)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "recommend", err)
	}

	entry := &Entry{
		DoctorID:     ident.UserID,
		MedicineName: strings.TrimSpace(in.MedicineName),
		PatientInfo:  in.PatientInfo,
		Result:       *rec,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("doctor_id", ident.UserID.String()).
			Msg("failed to record recommendation history")
	}
	return rec, nil
}

// History lists past requests. Doctors see their own, admins everyone's.
func (s *Service) History(ctx context.Context, ident *auth.Identity, limit, offset int) ([]*Entry, int, error) {
	var doctorID *uuid.UUID
	if ident.Role != auth.RoleAdmin {
		doctorID = &ident.UserID
	}
	return s.repo.List(ctx, doctorID, limit, offset)
}

// ClearCache drops all cached recommendations.
func (s *Service) ClearCache() {
	s.client.ClearCache()
}

// CacheStats reports cache effectiveness.
func (s *Service) CacheStats() recommend.CacheStats {
	return s.client.CacheStats()
}
