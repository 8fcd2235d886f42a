// Package objectstore provides access to the document object store (S3 or an
// S3-compatible service such as Cloudflare R2). Documents are addressed by a
// storage key of the form "documents/<uuid>.<ext>"; uploads and downloads go
// through presigned URLs so the server never proxies file bytes on the hot
// path. Direct Get/Put exist for the extraction pipeline and tests.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// KeyPrefix is the namespace all managed document objects live under.
	KeyPrefix = "documents/"

	// MaxObjectBytes caps how much the extraction pipeline will pull from
	// the store for a single document.
	MaxObjectBytes = 20 << 20

	// UploadPresignTTL is the validity window for presigned upload URLs.
	UploadPresignTTL = 5 * time.Minute
	// DownloadPresignTTL is the validity window for presigned preview/download URLs.
	DownloadPresignTTL = 5 * time.Minute
	// FeedPresignTTL is the short window used when handing a URL to the
	// extraction pipeline.
	FeedPresignTTL = 60 * time.Second
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrObjectTooLarge     = errors.New("object exceeds size limit")
	ErrInvalidKey         = errors.New("invalid object key")
	ErrInvalidContentType = errors.New("content type not allowed for upload")
)

// contentTypeExt maps upload content types to the extension used in the
// generated storage key. Only these types may be uploaded.
var contentTypeExt = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "xlsx",
}

// knownExts is the set of extensions a trusted key may carry. It is a superset
// of the upload set only in casing variants (jpeg alongside jpg).
var knownExts = map[string]struct{}{
	"pdf": {}, "png": {}, "jpg": {}, "jpeg": {}, "webp": {}, "docx": {}, "xlsx": {},
}

// PresignedUpload is the result of PresignUpload: the client PUTs the file
// bytes to URL and then registers Key as the document's file key.
type PresignedUpload struct {
	URL       string    `json:"upload_url"`
	Key       string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectStore is the storage contract the document and extraction services
// depend on.
type ObjectStore interface {
	// PresignUpload allocates a fresh key under the managed namespace and
	// returns a presigned PUT URL for it.
	PresignUpload(ctx context.Context, contentType string) (*PresignedUpload, error)
	// PresignDownload returns a presigned GET URL for an existing key.
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	// Get reads the full object. Implementations enforce MaxObjectBytes.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes an object under the given key.
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// NewKey allocates a storage key for an upload of the given content type.
func NewKey(contentType string) (string, error) {
	ext, ok := contentTypeExt[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, contentType)
	}
	return fmt.Sprintf("%s%s.%s", KeyPrefix, uuid.New(), ext), nil
}

// TrustedKey reports whether a file key belongs to the managed namespace and
// carries a recognized extension. Keys that fail this check are treated as
// legacy or tampered records: they stay visible in listings but are never
// resolved to a download URL.
func TrustedKey(key string) bool {
	if !strings.HasPrefix(key, KeyPrefix) {
		return false
	}
	rest := key[len(KeyPrefix):]
	if rest == "" || strings.Contains(rest, "/") || strings.Contains(rest, "..") {
		return false
	}
	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 || dot == len(rest)-1 {
		return false
	}
	_, ok := knownExts[strings.ToLower(rest[dot+1:])]
	return ok
}

// KeyExt returns the lowercase extension of a file key, without the dot.
// Returns "" when the key has no extension.
func KeyExt(key string) string {
	dot := strings.LastIndexByte(key, '.')
	if dot < 0 || dot == len(key)-1 {
		return ""
	}
	return strings.ToLower(key[dot+1:])
}
