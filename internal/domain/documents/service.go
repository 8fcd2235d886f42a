package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/refdock/refdock/internal/domain/docevents"
	"github.com/refdock/refdock/internal/platform/objectstore"
)

// Stats receives domain counters. *metrics.Metrics satisfies it; nil is
// allowed.
type Stats interface {
	DocumentPlaced()
	ClaimWon()
	ClaimLost()
	Transition(to string)
}

type Service struct {
	repo   Repository
	store  objectstore.ObjectStore
	audit  docevents.Sink
	stats  Stats
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, store objectstore.ObjectStore, audit docevents.Sink, stats Stats, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		audit:  audit,
		stats:  stats,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput carries everything needed to place a document.
type CreateInput struct {
	FromOrgID        uuid.UUID
	ToOrgID          uuid.UUID
	FileKey          string
	PreviewFileKey   *string
	OriginalFilename string
	ContentType      string
	Comment          *string
	Structured       *StructuredFields
	StructuredSource string
}

// Create places a document into the recipient's harbor. The file must already
// exist in the object store; a record never points at a missing object because
// upload happens first through a presigned URL.
func (s *Service) Create(ctx context.Context, in CreateInput, actorUserID uuid.UUID) (*Document, error) {
	if in.FromOrgID == in.ToOrgID {
		return nil, ErrSameOrganization
	}
	if in.FileKey == "" {
		return nil, ErrMissingFileKey
	}
	if !objectstore.TrustedKey(in.FileKey) {
		return nil, ErrUntrustedFileKey
	}

	now := s.now().UTC()
	d := &Document{
		FromOrgID:        in.FromOrgID,
		ToOrgID:          in.ToOrgID,
		FileKey:          in.FileKey,
		PreviewFileKey:   in.PreviewFileKey,
		OriginalFilename: in.OriginalFilename,
		FileExt:          objectstore.KeyExt(in.FileKey),
		ContentType:      in.ContentType,
		Comment:          in.Comment,
		Status:           StatusUploaded,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ExpiryWindow),
	}

	if in.Structured != nil {
		norm := in.Structured.Normalized()
		raw, err := json.Marshal(norm)
		if err != nil {
			return nil, fmt.Errorf("marshal structured payload: %w", err)
		}
		version := StructuredVersionV1
		by := "ai"
		d.StructuredJSON = raw
		d.StructuredVersion = &version
		d.StructuredUpdatedAt = &now
		d.StructuredUpdatedBy = &by
		if in.StructuredSource != "" {
			d.StructuredSource = &in.StructuredSource
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, in.FromOrgID, docevents.ActionDocCreated,
		map[string]any{"to_org_id": in.ToOrgID, "file_key": in.FileKey}))
	if s.stats != nil {
		s.stats.DocumentPlaced()
	}
	return d, nil
}

// Get returns a document to a member of either party.
func (s *Service) Get(ctx context.Context, id, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.FromOrgID && actorOrgID != d.ToOrgID {
		return nil, ErrForbidden
	}
	return d, nil
}

func (s *Service) ListInbox(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error) {
	return s.repo.ListInbox(ctx, orgID, f)
}

func (s *Service) ListSent(ctx context.Context, orgID uuid.UUID, f Filter) ([]*Document, int, error) {
	return s.repo.ListSent(ctx, orgID, f)
}

func (s *Service) ListHarbor(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	return s.repo.ListHarbor(ctx, orgID, limit, offset)
}

// PreviewRef is the resolved view of a document's file: a short-lived URL to
// the browser-renderable artifact when one exists, otherwise the original.
type PreviewRef struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Open resolves a preview for the document. A recipient opening an UPLOADED
// document acknowledges receipt: the record transitions to DOWNLOADED. A
// sender opening from the sent view observes without transitioning.
func (s *Service) Open(ctx context.Context, id, actorUserID, actorOrgID uuid.UUID) (*PreviewRef, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var recipient bool
	switch actorOrgID {
	case d.ToOrgID:
		recipient = true
	case d.FromOrgID:
		recipient = false
	default:
		return nil, ErrForbidden
	}

	if !d.TrustedKey() {
		return nil, ErrUntrustedFileKey
	}
	if err := openGate(d, s.now()); err != nil {
		return nil, err
	}

	if recipient && d.Status == StatusUploaded {
		ok, err := s.repo.MarkDownloaded(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("mark downloaded: %w", err)
		}
		if ok {
			s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, docevents.ActionDownload, nil))
			if s.stats != nil {
				s.stats.Transition(StatusDownloaded)
			}
		} else {
			// Lost a race: another actor transitioned the document
			// between our read and the conditional write. Re-gate on
			// the fresh state.
			d, err = s.repo.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if err := openGate(d, s.now()); err != nil {
				return nil, err
			}
		}
	}

	key := d.FileKey
	if d.PreviewFileKey != nil && *d.PreviewFileKey != "" {
		key = *d.PreviewFileKey
	}
	url, err := s.store.PresignDownload(ctx, key, objectstore.DownloadPresignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	return &PreviewRef{
		Key:       key,
		URL:       url,
		ExpiresAt: s.now().Add(objectstore.DownloadPresignTTL),
	}, nil
}

// openGate blocks open/preview for any state other than a live UPLOADED or
// DOWNLOADED document.
func openGate(d *Document, now time.Time) error {
	switch EffectiveState(d, now) {
	case StatusUploaded, StatusDownloaded:
		return nil
	case StateExpired:
		return ErrExpired
	case StatusCancelled:
		return ErrCancelled
	default:
		return ErrArchived
	}
}

// Cancel withdraws a placed document. Sender only, and only while the
// recipient has not acted on it.
func (s *Service) Cancel(ctx context.Context, id, actorUserID, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.FromOrgID {
		return nil, ErrForbidden
	}

	now := s.now()
	switch EffectiveState(d, now) {
	case StatusUploaded:
	case StateExpired:
		return nil, ErrExpired
	default:
		return nil, ErrNotCancellable
	}

	ok, err := s.repo.Cancel(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("cancel document: %w", err)
	}
	if !ok {
		return nil, ErrNotCancellable
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, docevents.ActionCancel, nil))
	if s.stats != nil {
		s.stats.Transition(StatusCancelled)
	}
	return s.repo.GetByID(ctx, id)
}

// Archive marks a document handled. Recipient only. Archiving an already
// archived document is a no-op: same terminal state, no second audit event.
func (s *Service) Archive(ctx context.Context, id, actorUserID, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.ToOrgID {
		return nil, ErrForbidden
	}

	switch d.Status {
	case StatusArchived:
		return d, nil
	case StatusCancelled:
		return nil, ErrNotArchivable
	}

	ok, err := s.repo.Archive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive document: %w", err)
	}
	if !ok {
		// Raced: either someone archived first (idempotent success) or
		// the sender cancelled.
		d, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d.Status == StatusArchived {
			return d, nil
		}
		return nil, ErrNotArchivable
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, docevents.ActionArchive, nil))
	if s.stats != nil {
		s.stats.Transition(StatusArchived)
	}
	return s.repo.GetByID(ctx, id)
}

// Assign claims an unowned harbor document into a department box. Owner and
// department are set together, never one without the other; concurrent claims
// are decided by the conditional write and the loser gets ErrAlreadyAssigned.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, department string, ownerUserID, actorUserID, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.ToOrgID {
		return nil, ErrForbidden
	}
	if department == "" {
		return nil, ErrEmptyDepartment
	}
	if !ValidDepartment(department) {
		return nil, ErrUnknownDepartment
	}
	if ownerUserID == uuid.Nil {
		return nil, ErrMissingOwner
	}

	ok, err := s.repo.Claim(ctx, id, ownerUserID, department)
	if err != nil {
		return nil, fmt.Errorf("claim document: %w", err)
	}
	if !ok {
		if s.stats != nil {
			s.stats.ClaimLost()
		}
		return nil, ErrAlreadyAssigned
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, docevents.ActionAssign,
		map[string]any{"department": department, "owner_user_id": ownerUserID}))
	if s.stats != nil {
		s.stats.ClaimWon()
	}
	return s.repo.GetByID(ctx, id)
}

// Reassign moves an already claimed document to a new owner and department.
// It is a deliberate second path, audited separately from the initial claim,
// and keyed on the expected current owner so racing reassignments cannot
// silently overwrite each other.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, department string, prevOwner, newOwner, actorUserID, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.ToOrgID {
		return nil, ErrForbidden
	}
	if department == "" {
		return nil, ErrEmptyDepartment
	}
	if !ValidDepartment(department) {
		return nil, ErrUnknownDepartment
	}
	if prevOwner == uuid.Nil || newOwner == uuid.Nil {
		return nil, ErrMissingOwner
	}

	ok, err := s.repo.Reassign(ctx, id, prevOwner, newOwner, department)
	if err != nil {
		return nil, fmt.Errorf("reassign document: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyAssigned
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, docevents.ActionReassign,
		map[string]any{"department": department, "from_owner": prevOwner, "to_owner": newOwner}))
	return s.repo.GetByID(ctx, id)
}

// FinalizeStructured writes the final structured payload for a document. The
// extraction result is a proposal; if the human-edited payload differs from it
// after normalization, the record is stamped as human-updated and the diff is
// retained in the audit detail. Unchanged payloads stay stamped "ai".
func (s *Service) FinalizeStructured(ctx context.Context, id uuid.UUID, original, edited *StructuredFields, source string, actorUserID, actorOrgID uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorOrgID != d.FromOrgID && actorOrgID != d.ToOrgID {
		return nil, ErrForbidden
	}
	if edited == nil {
		edited = original
	}

	changed := ChangedFields(original, edited)
	updatedBy := "ai"
	action := docevents.ActionOCRRun
	if len(changed) > 0 {
		updatedBy = "human"
		action = docevents.ActionStructuredEdit
	}

	final := edited.Normalized()
	raw, err := json.Marshal(final)
	if err != nil {
		return nil, fmt.Errorf("marshal structured payload: %w", err)
	}

	now := s.now().UTC()
	err = s.repo.UpdateStructured(ctx, id, StructuredUpdate{
		JSON:      raw,
		Version:   StructuredVersionV1,
		UpdatedAt: now,
		UpdatedBy: updatedBy,
		Source:    source,
	})
	if err != nil {
		return nil, fmt.Errorf("update structured payload: %w", err)
	}

	s.audit.Record(ctx, docevents.NewEvent(d.ID, actorUserID, actorOrgID, action, map[string]any{
		"changed_keys": changed,
		"original":     original.Normalized(),
		"final":        final,
		"source":       source,
	}))
	return s.repo.GetByID(ctx, id)
}
