package prescription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ q db.Queryable }

func NewRepoPG(q db.Queryable) Repository { return &repoPG{q: q} }

const prescriptionCols = `id, patient_id, doctor_profile_id, appointment_id,
	diagnosis, medicines, notes, instructions, version, previous_version_id,
	created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var medicines []byte
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorProfileID, &p.AppointmentID,
		&p.Diagnosis, &medicines, &p.Notes, &p.Instructions, &p.Version,
		&p.PreviousVersionID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(medicines) > 0 {
		if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
			return nil, fmt.Errorf("decode medicines: %w", err)
		}
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	medicines, err := json.Marshal(p.Medicines)
	if err != nil {
		return fmt.Errorf("encode medicines: %w", err)
	}
	p.ID = uuid.New()
	_, err = r.q.Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_profile_id, appointment_id,
			diagnosis, medicines, notes, instructions, version, previous_version_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.PatientID, p.DoctorProfileID, p.AppointmentID, p.Diagnosis,
		medicines, p.Notes, p.Instructions, p.Version, p.PreviousVersionID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.q.QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, params ListParams) ([]*Prescription, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *params.PatientID)
		idx++
	}
	if params.DoctorProfileIDs != nil {
		where += fmt.Sprintf(` AND doctor_profile_id = ANY($%d)`, idx)
		args = append(args, params.DoctorProfileIDs)
		idx++
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+prescriptionCols+` FROM prescriptions`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

const attachmentCols = `id, prescription_id, blob_id, file_name, content_type,
	size, uploaded_by, created_at`

func scanAttachment(row pgx.Row) (*Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.PrescriptionID, &a.BlobID, &a.FileName,
		&a.ContentType, &a.Size, &a.UploadedBy, &a.CreatedAt)
	return &a, err
}

func (r *repoPG) AddAttachment(ctx context.Context, a *Attachment) error {
	a.ID = uuid.New()
	_, err := r.q.Exec(ctx, `
		INSERT INTO prescription_attachments (id, prescription_id, blob_id,
			file_name, content_type, size, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.PrescriptionID, a.BlobID, a.FileName, a.ContentType, a.Size, a.UploadedBy)
	return err
}

func (r *repoPG) ListAttachments(ctx context.Context, prescriptionID uuid.UUID) ([]*Attachment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+attachmentCols+` FROM prescription_attachments
		 WHERE prescription_id = $1 ORDER BY created_at`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
