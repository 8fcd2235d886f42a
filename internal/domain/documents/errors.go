package documents

import "errors"

// Validation errors: rejected before any mutation.
var (
	ErrSameOrganization  = errors.New("sender and recipient organization must differ")
	ErrMissingFileKey    = errors.New("file_key is required")
	ErrUntrustedFileKey  = errors.New("file key is outside the managed storage namespace")
	ErrEmptyDepartment   = errors.New("department is required")
	ErrUnknownDepartment = errors.New("department is not in the recognized vocabulary")
	ErrMissingOwner      = errors.New("owner_user_id is required")
)

// ErrConflict is the base of the conflict category: the caller should reload
// state rather than retry blindly. Every concrete conflict wraps it.
var ErrConflict = errors.New("conflict")

var (
	ErrAlreadyAssigned = wrapConflict("document already assigned")
	ErrNotCancellable  = wrapConflict("document can no longer be cancelled")
	ErrNotArchivable   = wrapConflict("document cannot be archived from its current state")
	ErrExpired         = wrapConflict("document has expired")
	ErrCancelled       = wrapConflict("document has been cancelled")
	ErrArchived        = wrapConflict("document has been archived")
)

// ErrForbidden is returned when the actor's organization is not entitled to
// the operation.
var ErrForbidden = errors.New("actor organization may not perform this operation")

// ErrNotFound is returned when the document does not exist.
var ErrNotFound = errors.New("document not found")

type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }
func (e *conflictError) Unwrap() error { return ErrConflict }

func wrapConflict(msg string) error { return &conflictError{msg: msg} }
