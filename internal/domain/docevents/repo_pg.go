package docevents

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refdock/refdock/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, document_id, actor_user_id, actor_org_id, action, detail, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.DocumentID, &e.ActorUserID, &e.ActorOrgID,
		&e.Action, &e.Detail, &e.CreatedAt)
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	// Events are written by the async sink after the fact; the capture
	// time travels with the event rather than being stamped at insert.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document_event (id, document_id, actor_user_id, actor_org_id, action, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.DocumentID, e.ActorUserID, e.ActorOrgID, e.Action, e.Detail, e.CreatedAt)
	return err
}

func (r *RepoPG) ListByDocument(ctx context.Context, documentID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM document_event WHERE document_id = $1`, documentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM document_event
		WHERE document_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		documentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}
