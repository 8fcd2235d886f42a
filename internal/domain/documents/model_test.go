package documents

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func TestEffectiveState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    string
		expiresAt time.Time
		want      string
	}{
		{"live uploaded", StatusUploaded, future, StatusUploaded},
		{"live downloaded", StatusDownloaded, future, StatusDownloaded},
		{"expired uploaded", StatusUploaded, past, StateExpired},
		{"expired downloaded", StatusDownloaded, past, StateExpired},
		{"cancelled stays cancelled even when expired", StatusCancelled, past, StatusCancelled},
		{"archived stays archived even when expired", StatusArchived, past, StatusArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Document{Status: tt.status, ExpiresAt: tt.expiresAt}
			if got := EffectiveState(d, now); got != tt.want {
				t.Errorf("EffectiveState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"a   b\t c", "a b c"},
		{"line\nbreak", "line break"},
		{"", ""},
		{"   ", ""},
		{"山田 太郎", "山田 太郎"},
	}
	for _, tt := range tests {
		if got := NormalizeValue(tt.in); got != tt.want {
			t.Errorf("NormalizeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChangedFields_WhitespaceOnlyEditIsNotAChange(t *testing.T) {
	orig := &StructuredFields{PatientName: strp("山田 太郎")}
	edited := &StructuredFields{PatientName: strp("  山田   太郎  ")}
	if changed := ChangedFields(orig, edited); len(changed) != 0 {
		t.Errorf("expected no changes, got %v", changed)
	}
}

func TestChangedFields_Diff(t *testing.T) {
	orig := &StructuredFields{
		PatientName:        strp("A"),
		ChiefComplaint:     strp("頭痛"),
		SuspectedDiagnosis: nil,
	}
	edited := &StructuredFields{
		PatientName:        strp("B"),
		ChiefComplaint:     strp("頭痛"),
		SuspectedDiagnosis: strp("片頭痛"),
	}
	changed := ChangedFields(orig, edited)
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed fields, got %v", changed)
	}
	want := map[string]bool{"patient_name": true, "suspected_diagnosis": true}
	for _, name := range changed {
		if !want[name] {
			t.Errorf("unexpected changed field %q", name)
		}
	}
}

func TestChangedFields_NilSides(t *testing.T) {
	if changed := ChangedFields(nil, nil); len(changed) != 0 {
		t.Errorf("nil vs nil should be unchanged, got %v", changed)
	}
	edited := &StructuredFields{PatientID: strp("12345")}
	changed := ChangedFields(nil, edited)
	if len(changed) != 1 || changed[0] != "patient_id" {
		t.Errorf("expected [patient_id], got %v", changed)
	}
}

func TestValidDepartment(t *testing.T) {
	if !ValidDepartment("内科") {
		t.Error("内科 should be valid")
	}
	if !ValidDepartment("地域連携室") {
		t.Error("地域連携室 should be valid")
	}
	if ValidDepartment("Radiology") {
		t.Error("unknown department should be invalid")
	}
	if ValidDepartment("") {
		t.Error("empty department should be invalid")
	}
}

func TestDocument_TrustedKey(t *testing.T) {
	d := &Document{ID: uuid.New(), FileKey: "documents/abc.pdf"}
	if !d.TrustedKey() {
		t.Error("managed key should be trusted")
	}
	d.FileKey = "legacy-uploads/abc.pdf"
	if d.TrustedKey() {
		t.Error("key outside the namespace should be untrusted")
	}
}
