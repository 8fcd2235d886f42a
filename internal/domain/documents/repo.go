package documents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows inbox/sent listings. Zero values mean "no constraint".
type Filter struct {
	Status     string // stored status
	Expired    *bool  // true: only expired, false: only live
	Unread     bool   // restrict to UPLOADED (not yet opened by the recipient)
	Department string
	Search     string // case-insensitive substring over party names and comment
	Limit      int
	Offset     int
}

// StructuredUpdate carries a finalized structured payload write.
type StructuredUpdate struct {
	JSON      []byte
	Version   int
	UpdatedAt time.Time
	UpdatedBy string // "ai" or "human"
	Source    string
}

// Repository persists document records. The transition and claim methods are
// conditional writes: they return false when the precondition no longer held
// at write time, and the service maps that to a typed conflict.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)

	ListInbox(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error)
	ListSent(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error)
	ListHarbor(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Document, int, error)

	// MarkDownloaded transitions UPLOADED -> DOWNLOADED.
	MarkDownloaded(ctx context.Context, id uuid.UUID) (bool, error)
	// Cancel transitions UPLOADED -> CANCELLED while not expired.
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Archive transitions UPLOADED or DOWNLOADED -> ARCHIVED.
	Archive(ctx context.Context, id uuid.UUID) (bool, error)
	// Claim atomically sets owner and department where no owner exists yet.
	Claim(ctx context.Context, id uuid.UUID, ownerUserID uuid.UUID, department string) (bool, error)
	// Reassign moves ownership where the current owner matches prevOwner.
	Reassign(ctx context.Context, id uuid.UUID, prevOwner, newOwner uuid.UUID, department string) (bool, error)

	UpdateStructured(ctx context.Context, id uuid.UUID, u StructuredUpdate) error
}
