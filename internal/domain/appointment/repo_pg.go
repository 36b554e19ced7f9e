package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ q db.Queryable }

func NewRepoPG(q db.Queryable) Repository { return &repoPG{q: q} }

const appointmentCols = `id, patient_id, hospital_id, department_id,
	assigned_doctor_id, assigned_by, assigned_at, requested_time,
	confirmed_time, reason, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.HospitalID, &a.DepartmentID,
		&a.AssignedDoctorID, &a.AssignedBy, &a.AssignedAt, &a.RequestedTime,
		&a.ConfirmedTime, &a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.q.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, hospital_id, department_id,
			requested_time, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.PatientID, a.HospitalID, a.DepartmentID,
		a.RequestedTime, a.Reason, a.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.q.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.q.Exec(ctx, `
		UPDATE appointments SET assigned_doctor_id=$2, assigned_by=$3, assigned_at=$4,
			confirmed_time=$5, status=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AssignedDoctorID, a.AssignedBy, a.AssignedAt, a.ConfirmedTime, a.Status)
	return err
}

func (r *repoPG) List(ctx context.Context, params ListParams) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *params.PatientID)
		idx++
	}
	if params.HospitalID != nil {
		where += fmt.Sprintf(` AND hospital_id = $%d`, idx)
		args = append(args, *params.HospitalID)
		idx++
	}
	if params.DoctorProfileIDs != nil {
		where += fmt.Sprintf(` AND assigned_doctor_id = ANY($%d)`, idx)
		args = append(args, params.DoctorProfileIDs)
		idx++
	}
	if params.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *params.Status)
		idx++
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+appointmentCols+` FROM appointments`+where+
		` ORDER BY requested_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
