package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carehub/carehub/internal/platform/db"
)

type repoPG struct{ q db.Queryable }

func NewRepoPG(q db.Queryable) Repository { return &repoPG{q: q} }

const codeCols = `id, patient_id, phone_number, code_hash, requested_by,
	expires_at, used, used_at, created_at`

func scanCode(row pgx.Row) (*Code, error) {
	var c Code
	err := row.Scan(&c.ID, &c.PatientID, &c.PhoneNumber, &c.CodeHash,
		&c.RequestedBy, &c.ExpiresAt, &c.Used, &c.UsedAt, &c.CreatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Code) error {
	c.ID = uuid.New()
	_, err := r.q.Exec(ctx, `
		INSERT INTO otps (id, patient_id, phone_number, code_hash, requested_by, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.PatientID, c.PhoneNumber, c.CodeHash, c.RequestedBy, c.ExpiresAt)
	return err
}

func (r *repoPG) LatestActiveByPhone(ctx context.Context, phone string, now time.Time) (*Code, error) {
	return scanCode(r.q.QueryRow(ctx, `
		SELECT `+codeCols+` FROM otps
		WHERE phone_number = $1 AND used = false AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`, phone, now))
}

func (r *repoPG) Consume(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE otps SET used = true, used_at = $2 WHERE id = $1 AND used = false`,
		id, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) CountIssuedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM otps WHERE requested_by = $1 AND created_at >= $2`,
		requesterID, since).Scan(&n)
	return n, err
}

func (r *repoPG) HasGrantSince(ctx context.Context, patientID, doctorID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM otps
			WHERE patient_id = $1 AND requested_by = $2 AND used = true AND used_at >= $3
		)`, patientID, doctorID, since).Scan(&exists)
	return exists, err
}
