package audit

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

const entryCols = `id, action, user_id, performed_by, details, ip_address, user_agent, timestamp`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var details []byte
	if err := row.Scan(&e.ID, &e.Action, &e.UserID, &e.PerformedBy, &details,
		&e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, action, user_id, performed_by, details, ip_address, user_agent)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Action, e.UserID, e.PerformedBy, details, e.IPAddress, e.UserAgent)
	return err
}

func (r *repoPG) List(ctx context.Context, action Action, limit, offset int) ([]*Entry, int, error) {
	where := ``
	args := []any{}
	if action != "" {
		where = ` WHERE action = $1`
		args = append(args, action)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+entryCols+` FROM audit_logs`+where+
		` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
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
