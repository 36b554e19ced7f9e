package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ q db.Queryable }

func NewRepoPG(q db.Queryable) Repository { return &repoPG{q: q} }

const userCols = `id, username, email, first_name, last_name, phone_number,
	role, password_hash, is_active, date_joined, last_login, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.Role, &u.PasswordHash, &u.IsActive, &u.DateJoined,
		&u.LastLogin, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, phone_number,
			role, password_hash, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PhoneNumber,
		u.Role, u.PasswordHash, u.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *repoPG) GetByPhone(ctx context.Context, phone string, role auth.Role) (*User, error) {
	return scanUser(r.q.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE phone_number = $1 AND role = $2 ORDER BY date_joined LIMIT 1`,
		phone, role))
}

func (r *repoPG) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET email=$2, first_name=$3, last_name=$4, phone_number=$5,
			is_active=$6, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.IsActive)
	return err
}

func (r *repoPG) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id = $1`, id, passwordHash)
	return err
}

func (r *repoPG) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE users SET last_login=NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	where := ``
	args := []any{}
	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+userCols+` FROM users`+where+
		` ORDER BY date_joined DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	err := r.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role = 'PATIENT'),
			(SELECT COUNT(*) FROM users WHERE role = 'DOCTOR'),
			(SELECT COUNT(*) FROM hospitals),
			(SELECT COUNT(*) FROM hospitals WHERE is_approved),
			(SELECT COUNT(*) FROM hospitals WHERE NOT is_approved),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM appointments WHERE status = 'REQUESTED')`).
		Scan(&s.TotalUsers, &s.TotalPatients, &s.TotalDoctors, &s.TotalHospitals,
			&s.ApprovedHospitals, &s.PendingHospitals, &s.TotalAppointments,
			&s.RequestedAppointments)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
