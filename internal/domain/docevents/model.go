// Package docevents keeps the append-only audit trail for document records.
// Events answer "who did what to this document, when"; they are never updated
// or deleted, and recording one must never fail the operation being audited.
package docevents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions. The vocabulary is closed; new actions are added here, not
// invented at call sites.
const (
	ActionDocCreated     = "DOC_CREATED"
	ActionOCRRun         = "OCR_RUN"
	ActionStructuredEdit = "STRUCTURED_EDIT"
	ActionDownload       = "DOWNLOAD"
	ActionAssign         = "ASSIGN"
	ActionReassign       = "REASSIGN"
	ActionArchive        = "ARCHIVE"
	ActionCancel         = "CANCEL"
)

var validActions = map[string]bool{
	ActionDocCreated:     true,
	ActionOCRRun:         true,
	ActionStructuredEdit: true,
	ActionDownload:       true,
	ActionAssign:         true,
	ActionReassign:       true,
	ActionArchive:        true,
	ActionCancel:         true,
}

// ValidAction reports whether s is a known audit action.
func ValidAction(s string) bool {
	return validActions[s]
}

// Event is one audit trail entry for a document.
type Event struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	DocumentID  uuid.UUID       `db:"document_id" json:"document_id"`
	ActorUserID uuid.UUID       `db:"actor_user_id" json:"actor_user_id"`
	ActorOrgID  uuid.UUID       `db:"actor_org_id" json:"actor_org_id"`
	Action      string          `db:"action" json:"action"`
	Detail      json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
