package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ q db.Queryable }

func NewRepoPG(q db.Queryable) Repository { return &repoPG{q: q} }

const reportCols = `id, patient_id, uploaded_by, blob_id, title, description,
	file_name, content_type, size, created_at`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.PatientID, &r.UploadedBy, &r.BlobID, &r.Title,
		&r.Description, &r.FileName, &r.ContentType, &r.Size, &r.CreatedAt)
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *Report) error {
	r.ID = uuid.New()
	_, err := p.q.Exec(ctx, `
		INSERT INTO patient_reports (id, patient_id, uploaded_by, blob_id, title,
			description, file_name, content_type, size)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.PatientID, r.UploadedBy, r.BlobID, r.Title, r.Description,
		r.FileName, r.ContentType, r.Size)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(p.q.QueryRow(ctx,
		`SELECT `+reportCols+` FROM patient_reports WHERE id = $1`, id))
}

func (p *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := p.q.Exec(ctx, `DELETE FROM patient_reports WHERE id = $1`, id)
	return err
}

func (p *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := p.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_reports WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.q.Query(ctx, `
		SELECT `+reportCols+` FROM patient_reports
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
