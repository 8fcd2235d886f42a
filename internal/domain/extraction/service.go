package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/refdock/refdock/internal/domain/documents"
	"github.com/refdock/refdock/internal/platform/objectstore"
	"github.com/refdock/refdock/internal/platform/resilience"
)

// Stats receives extraction outcome counters. Nil is allowed.
type Stats interface {
	ExtractionRun(outcome string)
}

// Gateway runs extraction against stored objects. Object-store fetches go
// through the resilience executor; one gateway call is one attempt from the
// caller's point of view, with no re-queueing.
type Gateway struct {
	store   objectstore.ObjectStore
	exec    *resilience.Executor
	fields  FieldExtractor
	stats   Stats
	logger  zerolog.Logger
	timeout time.Duration
	source  string
}

func NewGateway(store objectstore.ObjectStore, exec *resilience.Executor, fields FieldExtractor, stats Stats, logger zerolog.Logger, timeout time.Duration) *Gateway {
	if fields == nil {
		fields = NoopFieldExtractor{}
	}
	return &Gateway{
		store:   store,
		exec:    exec,
		fields:  fields,
		stats:   stats,
		logger:  logger,
		timeout: timeout,
		source:  "refdock-extractor",
	}
}

// Source identifies this extraction provider in structured provenance.
func (g *Gateway) Source() string { return g.source }

// Extract fetches the object behind fileKey and runs the requested mode.
// ModeFull adds structured field proposal on top of text and alerts;
// ModeTextOnly skips it. Field-extraction failure degrades to a warning
// because placement must be able to proceed without structured data.
func (g *Gateway) Extract(ctx context.Context, fileKey, mode string) (*Result, error) {
	if mode == "" {
		mode = ModeFull
	}
	if mode != ModeFull && mode != ModeTextOnly {
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
	if !objectstore.TrustedKey(fileKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileKey, fileKey)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var data []byte
	err := g.exec.Execute(ctx, "objectstore.get", func(ctx context.Context) error {
		var err error
		data, err = g.store.Get(ctx, fileKey)
		return err
	})
	if err != nil {
		g.count("fetch_error")
		return nil, fmt.Errorf("fetch object %s: %w", fileKey, err)
	}

	ext, err := extractText(data, objectstore.KeyExt(fileKey))
	if err != nil {
		g.count("extract_error")
		return nil, err
	}

	result := &Result{
		Text: ext.text,
		Meta: Meta{
			CharCount:  len([]rune(ext.text)),
			PageCount:  ext.pageCount,
			SourceType: ext.sourceType,
			FileKey:    fileKey,
		},
	}
	if ext.text != "" {
		norm := documents.NormalizeValue(ext.text)
		result.TextNormalized = &norm
		result.Alerts = DetectAlerts(ext.text)
		if len(result.Alerts) > 0 {
			result.Warnings = append(result.Warnings, AlertWarning(result.Alerts))
		}
	} else {
		result.Warnings = append(result.Warnings, EmptyTextWarning)
	}

	if mode == ModeFull && ext.text != "" {
		fields, ferr := g.fields.ExtractFields(ctx, ext.text)
		if ferr != nil {
			g.logger.Warn().Err(ferr).Str("file_key", fileKey).Msg("structured field extraction failed")
			result.Warnings = append(result.Warnings,
				"構造化フィールドの抽出に失敗しました。テキストのみで続行できます。")
		} else if fields != nil {
			norm := fields.Normalized()
			norm.Warnings = result.Warnings
			result.Structured = norm
		}
	}

	g.count("ok")
	return result, nil
}

func (g *Gateway) count(outcome string) {
	if g.stats != nil {
		g.stats.ExtractionRun(outcome)
	}
}
