package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const docCols = `id, from_org_id, to_org_id, file_key, preview_file_key,
	original_filename, file_ext, content_type, comment, status,
	owner_user_id, assigned_department,
	structured_json, structured_version, structured_updated_at, structured_updated_by, structured_source,
	created_at, expires_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.FromOrgID, &d.ToOrgID, &d.FileKey, &d.PreviewFileKey,
		&d.OriginalFilename, &d.FileExt, &d.ContentType, &d.Comment, &d.Status,
		&d.OwnerUserID, &d.AssignedDepartment,
		&d.StructuredJSON, &d.StructuredVersion, &d.StructuredUpdatedAt, &d.StructuredUpdatedBy, &d.StructuredSource,
		&d.CreatedAt, &d.ExpiresAt)
	return &d, err
}

func (r *RepoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (id, from_org_id, to_org_id, file_key, preview_file_key,
			original_filename, file_ext, content_type, comment, status,
			structured_json, structured_version, structured_updated_at, structured_updated_by, structured_source,
			created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		d.ID, d.FromOrgID, d.ToOrgID, d.FileKey, d.PreviewFileKey,
		d.OriginalFilename, d.FileExt, d.ContentType, d.Comment, d.Status,
		d.StructuredJSON, d.StructuredVersion, d.StructuredUpdatedAt, d.StructuredUpdatedBy, d.StructuredSource,
		d.CreatedAt, d.ExpiresAt)
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+docCols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// list builds the shared inbox/sent query. The free-text search matches the
// comment, the original filename, and either party's facility name.
func (r *RepoPG) list(ctx context.Context, base string, baseArgs []interface{}, f Filter) ([]*Document, int, error) {
	where := []string{base}
	args := baseArgs
	idx := len(args) + 1

	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.Unread {
		where = append(where, fmt.Sprintf("status = '%s'", StatusUploaded))
	}
	if f.Expired != nil {
		if *f.Expired {
			where = append(where, "expires_at < NOW()")
		} else {
			where = append(where, "expires_at >= NOW()")
		}
	}
	if f.Department != "" {
		where = append(where, fmt.Sprintf("assigned_department = $%d", idx))
		args = append(args, f.Department)
		idx++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf(`(comment ILIKE $%d OR original_filename ILIKE $%d
			OR EXISTS (SELECT 1 FROM hospital h
				WHERE h.id IN (document.from_org_id, document.to_org_id) AND h.name ILIKE $%d))`,
			idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM document %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM document %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		docCols, whereClause, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *RepoPG) ListInbox(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error) {
	return r.list(ctx, "to_org_id = $1", []interface{}{orgID}, f)
}

func (r *RepoPG) ListSent(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error) {
	return r.list(ctx, "from_org_id = $1", []interface{}{orgID}, f)
}

func (r *RepoPG) ListHarbor(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	base := "to_org_id = $1 AND owner_user_id IS NULL AND status = $2"
	return r.list(ctx, base, []interface{}{orgID, StatusUploaded}, Filter{Limit: limit, Offset: offset})
}

// The transition and claim writes re-check their precondition in the WHERE
// clause; zero affected rows means the precondition no longer held.

func (r *RepoPG) MarkDownloaded(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET status = $2
		WHERE id = $1 AND status = $3`,
		id, StatusDownloaded, StatusUploaded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoPG) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET status = $2
		WHERE id = $1 AND status = $3 AND expires_at > $4`,
		id, StatusCancelled, StatusUploaded, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoPG) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET status = $2
		WHERE id = $1 AND status IN ($3, $4)`,
		id, StatusArchived, StatusUploaded, StatusDownloaded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoPG) Claim(ctx context.Context, id uuid.UUID, ownerUserID uuid.UUID, department string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET owner_user_id = $2, assigned_department = $3
		WHERE id = $1 AND owner_user_id IS NULL AND status = $4`,
		id, ownerUserID, department, StatusUploaded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoPG) Reassign(ctx context.Context, id uuid.UUID, prevOwner, newOwner uuid.UUID, department string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET owner_user_id = $3, assigned_department = $4
		WHERE id = $1 AND owner_user_id = $2`,
		id, prevOwner, newOwner, department)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoPG) UpdateStructured(ctx context.Context, id uuid.UUID, u StructuredUpdate) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET structured_json = $2, structured_version = $3,
			structured_updated_at = $4, structured_updated_by = $5, structured_source = $6
		WHERE id = $1`,
		id, u.JSON, u.Version, u.UpdatedAt, u.UpdatedBy, u.Source)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
