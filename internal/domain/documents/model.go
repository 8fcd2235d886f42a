// Package documents implements the document placement record: a file one
// clinical facility places into another facility's inbox, with a lifecycle
// state machine, harbor claim workflow, derived expiry, and a structured
// extraction payload with edit provenance.
package documents

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/refdock/refdock/internal/platform/objectstore"
)

// Stored statuses. EXPIRED is never stored; it is derived at read time by
// EffectiveState.
const (
	StatusUploaded   = "UPLOADED"
	StatusDownloaded = "DOWNLOADED"
	StatusCancelled  = "CANCELLED"
	StatusArchived   = "ARCHIVED"

	StateExpired = "EXPIRED"
)

// ExpiryWindow is the fixed lifetime of a placed document. expires_at is set
// once at creation and never renewed.
const ExpiryWindow = 7 * 24 * time.Hour

// StructuredVersionV1 tags the current closed field schema.
const StructuredVersionV1 = 1

// Departments a claimed document may be assigned to.
var Departments = []string{
	"内科", "外科", "整形外科", "小児科", "産婦人科", "眼科", "皮膚科",
	"耳鼻科", "精神科", "放射線科", "リハビリ", "地域連携室", "その他",
}

var departmentSet = func() map[string]bool {
	m := make(map[string]bool, len(Departments))
	for _, d := range Departments {
		m[d] = true
	}
	return m
}()

// ValidDepartment reports whether d belongs to the recognized vocabulary.
func ValidDepartment(d string) bool {
	return departmentSet[d]
}

// Document is a placed document record.
type Document struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FromOrgID           uuid.UUID  `db:"from_org_id" json:"from_org_id"`
	ToOrgID             uuid.UUID  `db:"to_org_id" json:"to_org_id"`
	FileKey             string     `db:"file_key" json:"file_key"`
	PreviewFileKey      *string    `db:"preview_file_key" json:"preview_file_key,omitempty"`
	OriginalFilename    string     `db:"original_filename" json:"original_filename"`
	FileExt             string     `db:"file_ext" json:"file_ext"`
	ContentType         string     `db:"content_type" json:"content_type"`
	Comment             *string    `db:"comment" json:"comment,omitempty"`
	Status              string     `db:"status" json:"status"`
	OwnerUserID         *uuid.UUID `db:"owner_user_id" json:"owner_user_id,omitempty"`
	AssignedDepartment  *string    `db:"assigned_department" json:"assigned_department,omitempty"`
	StructuredJSON      []byte     `db:"structured_json" json:"structured_json,omitempty"`
	StructuredVersion   *int       `db:"structured_version" json:"structured_version,omitempty"`
	StructuredUpdatedAt *time.Time `db:"structured_updated_at" json:"structured_updated_at,omitempty"`
	StructuredUpdatedBy *string    `db:"structured_updated_by" json:"structured_updated_by,omitempty"`
	StructuredSource    *string    `db:"structured_source" json:"structured_source,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt           time.Time  `db:"expires_at" json:"expires_at"`
}

// TrustedKey reports whether the document's file key lives in the managed
// storage namespace. Records failing this check stay listable but are never
// resolved to a download URL.
func (d *Document) TrustedKey() bool {
	return objectstore.TrustedKey(d.FileKey)
}

// EffectiveState computes the state every gate and view must consult.
// Terminal stored statuses stand on their own; for live documents the expiry
// clock takes precedence over the stored status.
func EffectiveState(d *Document, now time.Time) string {
	switch d.Status {
	case StatusCancelled, StatusArchived:
		return d.Status
	}
	if now.After(d.ExpiresAt) {
		return StateExpired
	}
	return d.Status
}

// StructuredFields is the closed v1 schema of extracted fields. Every field
// is optional: nil means "not found in the document", which is distinct from
// a field name that the schema does not know at all.
type StructuredFields struct {
	PatientName        *string `json:"patient_name"`
	PatientID          *string `json:"patient_id"`
	BirthDate          *string `json:"birth_date"`
	ReferrerHospital   *string `json:"referrer_hospital"`
	ReferrerDoctor     *string `json:"referrer_doctor"`
	ReferralToHospital *string `json:"referral_to_hospital"`
	ReferralDate       *string `json:"referral_date"`
	ChiefComplaint     *string `json:"chief_complaint"`
	SuspectedDiagnosis *string `json:"suspected_diagnosis"`
	Allergies          *string `json:"allergies"`
	Medications        *string `json:"medications"`

	// Warnings produced by the extraction run travel with the payload so
	// list views can flag the record without a second lookup.
	Warnings []string `json:"warnings,omitempty"`
}

// fieldMap exposes the named fields for iteration.
func (f *StructuredFields) fieldMap() map[string]*string {
	return map[string]*string{
		"patient_name":         f.PatientName,
		"patient_id":           f.PatientID,
		"birth_date":           f.BirthDate,
		"referrer_hospital":    f.ReferrerHospital,
		"referrer_doctor":      f.ReferrerDoctor,
		"referral_to_hospital": f.ReferralToHospital,
		"referral_date":        f.ReferralDate,
		"chief_complaint":      f.ChiefComplaint,
		"suspected_diagnosis":  f.SuspectedDiagnosis,
		"allergies":            f.Allergies,
		"medications":          f.Medications,
	}
}

// FieldNames lists the v1 schema field names in schema order.
var FieldNames = []string{
	"patient_name", "patient_id", "birth_date",
	"referrer_hospital", "referrer_doctor", "referral_to_hospital",
	"referral_date", "chief_complaint", "suspected_diagnosis",
	"allergies", "medications",
}

// NormalizeValue trims and collapses inner whitespace. Comparison between the
// extraction snapshot and a human edit always goes through this.
func NormalizeValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalized returns a copy with every field value normalized. Fields that
// normalize to the empty string become nil.
func (f *StructuredFields) Normalized() *StructuredFields {
	if f == nil {
		return nil
	}
	out := *f
	set := func(dst **string, src *string) {
		if src == nil {
			*dst = nil
			return
		}
		v := NormalizeValue(*src)
		if v == "" {
			*dst = nil
			return
		}
		*dst = &v
	}
	set(&out.PatientName, f.PatientName)
	set(&out.PatientID, f.PatientID)
	set(&out.BirthDate, f.BirthDate)
	set(&out.ReferrerHospital, f.ReferrerHospital)
	set(&out.ReferrerDoctor, f.ReferrerDoctor)
	set(&out.ReferralToHospital, f.ReferralToHospital)
	set(&out.ReferralDate, f.ReferralDate)
	set(&out.ChiefComplaint, f.ChiefComplaint)
	set(&out.SuspectedDiagnosis, f.SuspectedDiagnosis)
	set(&out.Allergies, f.Allergies)
	set(&out.Medications, f.Medications)
	return &out
}

// ChangedFields returns the schema field names whose normalized values differ
// between the extraction snapshot and the edited payload. Either side may be
// nil, which counts as every-field-nil.
func ChangedFields(original, edited *StructuredFields) []string {
	origNorm := original.Normalized()
	editNorm := edited.Normalized()

	get := func(f *StructuredFields, name string) *string {
		if f == nil {
			return nil
		}
		return f.fieldMap()[name]
	}

	var changed []string
	for _, name := range FieldNames {
		a := get(origNorm, name)
		b := get(editNorm, name)
		switch {
		case a == nil && b == nil:
		case a == nil || b == nil:
			changed = append(changed, name)
		case *a != *b:
			changed = append(changed, name)
		}
	}
	return changed
}
