package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/refdock/refdock/internal/domain/documents"
	"github.com/refdock/refdock/internal/platform/objectstore"
	"github.com/refdock/refdock/internal/platform/resilience"
)

type stubFields struct {
	fields *documents.StructuredFields
	err    error
	calls  int
}

func (s *stubFields) ExtractFields(_ context.Context, _ string) (*documents.StructuredFields, error) {
	s.calls++
	return s.fields, s.err
}

type captureStats struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *captureStats) ExtractionRun(outcome string) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, outcome)
	c.mu.Unlock()
}

func newTestGateway(t *testing.T, fields FieldExtractor) (*Gateway, *objectstore.MemoryStore, *captureStats) {
	t.Helper()
	store := objectstore.NewMemoryStore()
	exec := resilience.NewExecutor(resilience.Config{MaxAttempts: 1}, zerolog.Nop())
	stats := &captureStats{}
	return NewGateway(store, exec, fields, stats, zerolog.Nop(), 5*time.Second), store, stats
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` +
		body + `</w:t></w:r></w:p></w:body></w:document>`
	return buildZip(t, map[string]string{"word/document.xml": doc})
}

func TestGatewayExtract_FullMode(t *testing.T) {
	name := "山田太郎"
	fields := &stubFields{fields: &documents.StructuredFields{PatientName: &name}}
	gw, store, stats := newTestGateway(t, fields)

	key := "documents/fixture.docx"
	if err := store.Put(context.Background(), key, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docxBytes(t, "診断は糖尿病。処方を継続。")); err != nil {
		t.Fatalf("put: %v", err)
	}

	result, err := gw.Extract(context.Background(), key, ModeFull)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Text == "" || result.TextNormalized == nil {
		t.Fatal("expected extracted text")
	}
	if result.Meta.FileKey != key || result.Meta.SourceType != "docx" {
		t.Errorf("unexpected meta: %+v", result.Meta)
	}
	if result.Meta.CharCount != len([]rune(result.Text)) {
		t.Errorf("char count should be rune based, got %d", result.Meta.CharCount)
	}
	if result.Structured == nil || result.Structured.PatientName == nil || *result.Structured.PatientName != name {
		t.Errorf("expected structured proposal, got %+v", result.Structured)
	}
	if len(result.Alerts) == 0 {
		t.Error("expected alerts for 診断/処方")
	}
	if len(result.Warnings) == 0 || len(result.Structured.Warnings) == 0 {
		t.Error("alert warning should travel with the structured payload")
	}
	if len(stats.outcomes) != 1 || stats.outcomes[0] != "ok" {
		t.Errorf("unexpected outcomes: %v", stats.outcomes)
	}
}

func TestGatewayExtract_TextOnlySkipsFields(t *testing.T) {
	fields := &stubFields{}
	gw, store, _ := newTestGateway(t, fields)

	key := "documents/fixture.docx"
	store.Put(context.Background(), key, "application/octet-stream", docxBytes(t, "経過は良好。"))

	result, err := gw.Extract(context.Background(), key, ModeTextOnly)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Structured != nil {
		t.Error("text_only must not propose structured fields")
	}
	if fields.calls != 0 {
		t.Errorf("field extractor should not be called, got %d calls", fields.calls)
	}
}

func TestGatewayExtract_EmptyTextWarning(t *testing.T) {
	gw, store, _ := newTestGateway(t, &stubFields{})

	key := "documents/empty.docx"
	store.Put(context.Background(), key, "application/octet-stream", docxBytes(t, ""))

	result, err := gw.Extract(context.Background(), key, ModeFull)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Text != "" || result.TextNormalized != nil {
		t.Errorf("expected no text, got %q", result.Text)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != EmptyTextWarning {
		t.Errorf("expected scanned-document warning, got %v", result.Warnings)
	}
	if result.Structured != nil {
		t.Error("no structured proposal without text")
	}
}

func TestGatewayExtract_FieldFailureDegradesToWarning(t *testing.T) {
	gw, store, stats := newTestGateway(t, &stubFields{err: errors.New("backend down")})

	key := "documents/fixture.docx"
	store.Put(context.Background(), key, "application/octet-stream", docxBytes(t, "経過は良好。"))

	result, err := gw.Extract(context.Background(), key, ModeFull)
	if err != nil {
		t.Fatalf("extract should not fail on field extraction error: %v", err)
	}
	if result.Structured != nil {
		t.Error("expected no structured payload on failure")
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "構造化フィールドの抽出に失敗") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected degradation warning, got %v", result.Warnings)
	}
	if stats.outcomes[len(stats.outcomes)-1] != "ok" {
		t.Errorf("run still completes, got %v", stats.outcomes)
	}
}

func TestGatewayExtract_InvalidKey(t *testing.T) {
	gw, _, _ := newTestGateway(t, &stubFields{})

	for _, key := range []string{"", "other/x.pdf", "documents/../x.pdf", "documents/x.exe"} {
		if _, err := gw.Extract(context.Background(), key, ModeFull); !errors.Is(err, ErrInvalidFileKey) {
			t.Errorf("key %q: expected ErrInvalidFileKey, got %v", key, err)
		}
	}
}

func TestGatewayExtract_MissingObject(t *testing.T) {
	gw, _, stats := newTestGateway(t, &stubFields{})

	_, err := gw.Extract(context.Background(), "documents/missing.pdf", ModeFull)
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if stats.outcomes[len(stats.outcomes)-1] != "fetch_error" {
		t.Errorf("expected fetch_error outcome, got %v", stats.outcomes)
	}
}

func TestGatewayExtract_UnknownMode(t *testing.T) {
	gw, _, _ := newTestGateway(t, &stubFields{})
	if _, err := gw.Extract(context.Background(), "documents/x.pdf", "ocr_plus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestGatewayExtract_DefaultsToFull(t *testing.T) {
	name := "花子"
	fields := &stubFields{fields: &documents.StructuredFields{PatientName: &name}}
	gw, store, _ := newTestGateway(t, fields)

	key := "documents/fixture.docx"
	store.Put(context.Background(), key, "application/octet-stream", docxBytes(t, "所見なし。"))

	result, err := gw.Extract(context.Background(), key, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Structured == nil {
		t.Error("empty mode should default to full extraction")
	}
}
