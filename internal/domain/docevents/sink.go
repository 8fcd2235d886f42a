package docevents

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sink is the contract domain services audit through. Record never returns an
// error and never blocks the caller: the audit trail is best effort, and a
// failed write must not fail the operation it describes.
type Sink interface {
	Record(ctx context.Context, e *Event)
}

// DropCounter is notified when the sink has to drop an event.
type DropCounter interface {
	AuditDropped()
}

const (
	defaultBufferSize = 256
	writeTimeout      = 5 * time.Second
)

// AsyncSink buffers events on a channel and persists them from a single
// worker goroutine. When the buffer is full the event is dropped and logged.
type AsyncSink struct {
	repo    Repository
	logger  zerolog.Logger
	dropped DropCounter

	ch   chan *Event
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink starts the worker. Close must be called on shutdown to drain
// buffered events. dropped may be nil.
func NewAsyncSink(repo Repository, logger zerolog.Logger, dropped DropCounter) *AsyncSink {
	s := &AsyncSink{
		repo:    repo,
		logger:  logger,
		dropped: dropped,
		ch:      make(chan *Event, defaultBufferSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) Record(_ context.Context, e *Event) {
	if e == nil {
		return
	}
	if !ValidAction(e.Action) {
		s.logger.Error().Str("action", e.Action).Msg("unknown audit action, dropping event")
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	// Late records during shutdown are dropped, never a send on a closed
	// channel. The read lock holds off Close until the send is done.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(e, "audit sink closed, dropping event")
		return
	}
	select {
	case s.ch <- e:
	default:
		s.drop(e, "audit buffer full, dropping event")
	}
}

func (s *AsyncSink) drop(e *Event, msg string) {
	if s.dropped != nil {
		s.dropped.AuditDropped()
	}
	s.logger.Warn().
		Str("action", e.Action).
		Str("document_id", e.DocumentID.String()).
		Msg(msg)
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.repo.Create(ctx, e); err != nil {
			s.logger.Error().Err(err).
				Str("action", e.Action).
				Str("document_id", e.DocumentID.String()).
				Msg("audit write failed")
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	<-s.done
}

// NewEvent builds an event with the detail payload marshalled to JSON.
// A detail that cannot be marshalled is recorded as null rather than
// aborting the audit.
func NewEvent(documentID, actorUserID, actorOrgID uuid.UUID, action string, detail any) *Event {
	e := &Event{
		DocumentID:  documentID,
		ActorUserID: actorUserID,
		ActorOrgID:  actorOrgID,
		Action:      action,
		CreatedAt:   time.Now().UTC(),
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			e.Detail = raw
		}
	}
	return e
}
