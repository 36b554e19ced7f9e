package hospital

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const hospitalCols = `id, user_id, name, license_number, email, phone, address,
	location, latitude, longitude, is_approved, approved_by, approved_at,
	created_at, updated_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.LicenseNumber, &h.Email,
		&h.Phone, &h.Address, &h.Location, &h.Latitude, &h.Longitude,
		&h.IsApproved, &h.ApprovedBy, &h.ApprovedAt, &h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

func (r *repoPG) CreateWithUser(ctx context.Context, u *user.User, h *Hospital) error {
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
			return fmt.Errorf("insert hospital user: %w", err)
		}

		h.ID = uuid.New()
		h.UserID = u.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO hospitals (id, user_id, name, license_number, email, phone,
				address, location, latitude, longitude, is_approved)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,false)`,
			h.ID, h.UserID, h.Name, h.LicenseNumber, h.Email, h.Phone,
			h.Address, h.Location, h.Latitude, h.Longitude); err != nil {
			return fmt.Errorf("insert hospital: %w", err)
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return scanHospital(r.pool.QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Hospital, error) {
	return scanHospital(r.pool.QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE user_id = $1`, userID))
}

func (r *repoPG) LicenseExists(ctx context.Context, license string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospitals WHERE license_number = $1)`, license).Scan(&exists)
	return exists, err
}

func (r *repoPG) Update(ctx context.Context, h *Hospital) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE hospitals SET name=$2, email=$3, phone=$4, address=$5, location=$6,
			latitude=$7, longitude=$8, updated_at=NOW()
		WHERE id = $1`,
		h.ID, h.Name, h.Email, h.Phone, h.Address, h.Location, h.Latitude, h.Longitude)
	return err
}

func (r *repoPG) List(ctx context.Context, params ListParams) ([]*Hospital, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.Approved != nil {
		if params.OwnerUserID != nil {
			where += fmt.Sprintf(` AND (is_approved = $%d OR user_id = $%d)`, idx, idx+1)
			args = append(args, *params.Approved, *params.OwnerUserID)
			idx += 2
		} else {
			where += fmt.Sprintf(` AND is_approved = $%d`, idx)
			args = append(args, *params.Approved)
			idx++
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+hospitalCols+` FROM hospitals`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetApproval(ctx context.Context, hospitalID, adminID uuid.UUID, approve bool) (*Hospital, error) {
	var h *Hospital
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if approve {
			h, err = scanHospital(tx.QueryRow(ctx, `
				UPDATE hospitals SET is_approved=true, approved_by=$2, approved_at=NOW(), updated_at=NOW()
				WHERE id = $1
				RETURNING `+hospitalCols, hospitalID, adminID))
		} else {
			h, err = scanHospital(tx.QueryRow(ctx, `
				UPDATE hospitals SET is_approved=false, approved_by=NULL, approved_at=NULL, updated_at=NOW()
				WHERE id = $1
				RETURNING `+hospitalCols, hospitalID))
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET is_active=$2, updated_at=NOW() WHERE id = $1`,
			h.UserID, approve); err != nil {
			return fmt.Errorf("update hospital account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

type departmentRepoPG struct{ q db.Queryable }

func NewDepartmentRepoPG(q db.Queryable) DepartmentRepository { return &departmentRepoPG{q: q} }

const departmentCols = `id, hospital_id, name, description, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.HospitalID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	_, err := r.q.Exec(ctx, `
		INSERT INTO departments (id, hospital_id, name, description)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.HospitalID, d.Name, d.Description)
	return err
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(r.q.QueryRow(ctx, `SELECT `+departmentCols+` FROM departments WHERE id = $1`, id))
}

func (r *departmentRepoPG) NameExists(ctx context.Context, hospitalID uuid.UUID, name string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM departments WHERE hospital_id = $1 AND LOWER(name) = LOWER($2))`,
		hospitalID, name).Scan(&exists)
	return exists, err
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	_, err := r.q.Exec(ctx,
		`UPDATE departments SET name=$2, description=$3, updated_at=NOW() WHERE id = $1`,
		d.ID, d.Name, d.Description)
	return err
}

func (r *departmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return err
}

func (r *departmentRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Department, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM departments WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+departmentCols+` FROM departments WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
