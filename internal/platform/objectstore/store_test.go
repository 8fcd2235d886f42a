package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTrustedKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"documents/550e8400-e29b-41d4-a716-446655440000.pdf", true},
		{"documents/550e8400-e29b-41d4-a716-446655440000.PNG", true},
		{"documents/scan.jpeg", true},
		{"documents/letter.docx", true},
		{"documents/sheet.xlsx", true},
		{"documents/photo.webp", true},
		{"uploads/550e8400-e29b-41d4-a716-446655440000.pdf", false},
		{"documents/", false},
		{"documents/noext", false},
		{"documents/trailing.", false},
		{"documents/.pdf", false},
		{"documents/nested/file.pdf", false},
		{"documents/../secrets.pdf", false},
		{"documents/evil.exe", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := TrustedKey(tt.key); got != tt.want {
			t.Errorf("TrustedKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNewKey(t *testing.T) {
	key, err := NewKey("application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("key %q missing prefix %q", key, KeyPrefix)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key %q missing .pdf extension", key)
	}
	if !TrustedKey(key) {
		t.Errorf("generated key %q should be trusted", key)
	}

	key2, _ := NewKey("application/pdf")
	if key == key2 {
		t.Error("expected unique keys per call")
	}
}

func TestNewKey_RejectsUnknownContentType(t *testing.T) {
	_, err := NewKey("application/x-msdownload")
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestKeyExt(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"documents/a.pdf", "pdf"},
		{"documents/a.JPG", "jpg"},
		{"documents/a", ""},
		{"documents/a.", ""},
	}
	for _, tt := range tests {
		if got := KeyExt(tt.key); got != tt.want {
			t.Errorf("KeyExt(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	key := "documents/test.pdf"
	data := []byte("%PDF-1.4 fake")
	if err := store.Put(ctx, key, "application/pdf", data); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	// mutating the returned slice must not affect the stored copy
	got[0] = 'X'
	again, _ := store.Get(ctx, key)
	if string(again) != string(data) {
		t.Error("stored object was mutated through a returned slice")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "documents/missing.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_PresignUpload(t *testing.T) {
	store := NewMemoryStore()
	up, err := store.PresignUpload(context.Background(), "image/png")
	if err != nil {
		t.Fatalf("presign upload: %v", err)
	}
	if up.URL == "" || up.Key == "" {
		t.Error("expected URL and key to be set")
	}
	if !strings.HasSuffix(up.Key, ".png") {
		t.Errorf("expected .png key, got %q", up.Key)
	}
	if up.ExpiresAt.IsZero() {
		t.Error("expected expiry to be set")
	}
}

func TestMemoryStore_PresignDownload_UntrustedKey(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.PresignDownload(context.Background(), "legacy/old.pdf", 0)
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}
