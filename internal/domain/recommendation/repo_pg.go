package recommendation

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

const entryCols = `id, doctor_id, medicine_name, patient_info, result, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var info, result []byte
	err := row.Scan(&e.ID, &e.DoctorID, &e.MedicineName, &info, &result, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &e.PatientInfo); err != nil {
			return nil, fmt.Errorf("decode patient_info: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &e.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	info, err := json.Marshal(e.PatientInfo)
	if err != nil {
		return fmt.Errorf("encode patient_info: %w", err)
	}
	result, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	e.ID = uuid.New()
	_, err = r.q.Exec(ctx, `
		INSERT INTO recommendations (id, doctor_id, medicine_name, patient_info, result)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.DoctorID, e.MedicineName, info, result)
	return err
}

func (r *repoPG) List(ctx context.Context, doctorID *uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	where := ``
	args := []any{}
	idx := 1
	if doctorID != nil {
		where = ` WHERE doctor_id = $1`
		args = append(args, *doctorID)
		idx = 2
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM recommendations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+entryCols+` FROM recommendations`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
