package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/refdock/refdock/internal/domain/documents"
)

// FieldExtractor proposes structured referral fields from extracted text.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*documents.StructuredFields, error)
}

// HTTPFieldExtractor calls an external structured-extraction backend.
type HTTPFieldExtractor struct {
	url    string
	client *http.Client
}

func NewHTTPFieldExtractor(url string, timeout time.Duration) *HTTPFieldExtractor {
	return &HTTPFieldExtractor{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *HTTPFieldExtractor) ExtractFields(ctx context.Context, text string) (*documents.StructuredFields, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction backend returned status %d", resp.StatusCode)
	}

	var fields documents.StructuredFields
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return &fields, nil
}

// NoopFieldExtractor is used when no backend is configured; extraction then
// yields text and alerts only.
type NoopFieldExtractor struct{}

func (NoopFieldExtractor) ExtractFields(context.Context, string) (*documents.StructuredFields, error) {
	return nil, nil
}
