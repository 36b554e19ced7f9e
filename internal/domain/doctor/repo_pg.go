package doctor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const profileCols = `p.id, p.hospital_id, p.user_id, p.department_id, p.cnic,
	p.address, p.license_number, p.specialization, p.phone_number,
	p.available_timings, p.is_active, p.created_by, p.created_at, p.updated_at,
	u.username, TRIM(u.first_name || ' ' || u.last_name)`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var timings []byte
	err := row.Scan(&p.ID, &p.HospitalID, &p.UserID, &p.DepartmentID, &p.CNIC,
		&p.Address, &p.LicenseNumber, &p.Specialization, &p.PhoneNumber,
		&timings, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.Username, &p.DoctorName)
	if err != nil {
		return nil, err
	}
	if len(timings) > 0 {
		if err := json.Unmarshal(timings, &p.AvailableTimings); err != nil {
			return nil, fmt.Errorf("decode available_timings: %w", err)
		}
	}
	return &p, nil
}

func (r *repoPG) CreateWithUser(ctx context.Context, u *user.User, p *Profile) error {
	timings, err := json.Marshal(p.AvailableTimings)
	if err != nil {
		return fmt.Errorf("encode available_timings: %w", err)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, first_name, last_name, phone_number,
				role, password_hash, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PhoneNumber,
			u.Role, u.PasswordHash, u.IsActive); err != nil {
			return fmt.Errorf("insert doctor user: %w", err)
		}

		p.ID = uuid.New()
		p.UserID = u.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO hospital_doctor_profiles (id, hospital_id, user_id, department_id,
				cnic, address, license_number, specialization, phone_number,
				available_timings, is_active, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			p.ID, p.HospitalID, p.UserID, p.DepartmentID, p.CNIC, p.Address,
			p.LicenseNumber, p.Specialization, p.PhoneNumber, timings,
			p.IsActive, p.CreatedBy); err != nil {
			return fmt.Errorf("insert doctor profile: %w", err)
		}
		return nil
	})
}

const profileFrom = ` FROM hospital_doctor_profiles p JOIN users u ON u.id = p.user_id`

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileCols+profileFrom+` WHERE p.id = $1`, id))
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileCols+profileFrom+` WHERE p.user_id = $1 ORDER BY p.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) HospitalApproved(ctx context.Context, hospitalID uuid.UUID) (bool, error) {
	var approved bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospitals WHERE id = $1 AND is_approved = true)`,
		hospitalID).Scan(&approved)
	return approved, err
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	timings, err := json.Marshal(p.AvailableTimings)
	if err != nil {
		return fmt.Errorf("encode available_timings: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE hospital_doctor_profiles SET department_id=$2, cnic=$3, address=$4,
			license_number=$5, specialization=$6, phone_number=$7,
			available_timings=$8, is_active=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DepartmentID, p.CNIC, p.Address, p.LicenseNumber,
		p.Specialization, p.PhoneNumber, timings, p.IsActive)
	return err
}

func (r *repoPG) List(ctx context.Context, params ListParams) ([]*Profile, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.HospitalID != nil {
		where += fmt.Sprintf(` AND p.hospital_id = $%d`, idx)
		args = append(args, *params.HospitalID)
		idx++
	}
	if params.ActiveApprovedOnly {
		where += ` AND p.is_active = true
			AND EXISTS (SELECT 1 FROM hospitals h WHERE h.id = p.hospital_id AND h.is_approved = true)`
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)`+profileFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+profileCols+profileFrom+where+
		` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
