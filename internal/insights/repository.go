package insights

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository computes dashboard aggregates from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Overview computes the headline counters for the given day.
func (r *Repository) Overview(ctx context.Context, day time.Time) (Overview, error) {
	var o Overview
	err := r.pool.QueryRow(ctx, `SELECT
  COUNT(*) FILTER (WHERE status = 'open'),
  COUNT(*) FILTER (WHERE status = 'pending'),
  COUNT(*) FILTER (WHERE status = 'resolved' AND updated_at >= $1::date AND updated_at < $1::date + INTERVAL '1 day'),
  COUNT(*) FILTER (WHERE status = 'open' AND assignee_id IS NULL)
FROM conversations`, day).
		Scan(&o.OpenConversations, &o.PendingConversations, &o.ResolvedToday, &o.UnassignedConversations)
	if err != nil {
		return Overview{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts
WHERE created_at >= date_trunc('week', $1::date)`, day).
		Scan(&o.NewContactsThisWeek)
	if err != nil {
		return Overview{}, err
	}
	return o, nil
}

// Volume aggregates daily message counts by direction over [from, to].
func (r *Repository) Volume(ctx context.Context, from, to time.Time) ([]VolumePoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT
  date_trunc('day', created_at) AS day,
  COUNT(*) FILTER (WHERE direction = 'inbound'),
  COUNT(*) FILTER (WHERE direction = 'outbound')
FROM messages
WHERE created_at >= $1 AND created_at < $2 + INTERVAL '1 day'
GROUP BY day ORDER BY day ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []VolumePoint
	for rows.Next() {
		var p VolumePoint
		if err := rows.Scan(&p.Day, &p.Inbound, &p.Outbound); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Workload counts open conversations per assignee.
func (r *Repository) Workload(ctx context.Context) ([]WorkloadRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.name, COUNT(c.id)
FROM users u
JOIN conversations c ON c.assignee_id = u.id AND c.status = 'open'
GROUP BY u.id, u.name
ORDER BY COUNT(c.id) DESC, u.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorkloadRow
	for rows.Next() {
		var row WorkloadRow
		if err := rows.Scan(&row.AssigneeID, &row.AssigneeName, &row.Open); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
