package prescription

import (
	"context"

	"github.com/google/uuid"
)

// ListParams filters prescription listings. DoctorProfileIDs matches
// prescriptions authored through any of the given profiles.
type ListParams struct {
	PatientID        *uuid.UUID
	DoctorProfileIDs []uuid.UUID
	Limit            int
	Offset           int
}

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, params ListParams) ([]*Prescription, int, error)
	AddAttachment(ctx context.Context, a *Attachment) error
	ListAttachments(ctx context.Context, prescriptionID uuid.UUID) ([]*Attachment, error)
}
