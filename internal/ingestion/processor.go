// Package ingestion runs the resume intake pipeline: load the file,
// sanitize its text, index the result and keep the audit trail in
// step with the index.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/internal/loader"
	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/internal/sanitizer"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/internal/storage/models"
	"github.com/talentmatch/backend/pkg/logger"
)

// ResumeStore is the audit-side record of indexed resumes. Write
// failures are logged and do not fail the ingest.
type ResumeStore interface {
	UpsertResume(record *models.ResumeRecord) error
	DeleteResume(candidateID string) error
}

// CacheInvalidator drops derived caches after an index mutation.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

type Processor struct {
	loader    *loader.Loader
	sanitizer *sanitizer.Sanitizer
	matcher   *search.Matcher
	language  string

	store       ResumeStore
	invalidator CacheInvalidator
}

type Option func(*Processor)

func WithResumeStore(store ResumeStore) Option {
	return func(p *Processor) { p.store = store }
}

func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(p *Processor) { p.invalidator = inv }
}

func NewProcessor(ld *loader.Loader, san *sanitizer.Sanitizer, matcher *search.Matcher, language string, opts ...Option) *Processor {
	p := &Processor{
		loader:    ld,
		sanitizer: san,
		matcher:   matcher,
		language:  language,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessResume ingests one resume file for a candidate and returns
// the number of chunks indexed. The text is sanitized before any of
// it reaches the index, so PII never lands in persistent storage.
func (p *Processor) ProcessResume(ctx context.Context, path, candidateID, originalFilename string) (int, error) {
	logger.Info("Processing resume",
		zap.String("candidate_id", candidateID),
		zap.String("filename", originalFilename),
	)

	docs, err := p.loader.Load(path, document.Metadata{
		CandidateID: candidateID,
		Filename:    originalFilename,
	})
	if err != nil {
		return 0, err
	}

	for i := range docs {
		docs[i].Content = p.sanitizer.Clean(docs[i].Content, p.language)
	}

	count, err := p.matcher.Index(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("index resume: %w", err)
	}

	metrics.ResumesIngested.Inc()
	metrics.ChunksIndexed.Add(float64(count))

	if p.store != nil {
		sourceType := ""
		if len(docs) > 0 {
			sourceType = docs[0].Meta.SourceType
		}
		err := p.store.UpsertResume(&models.ResumeRecord{
			CandidateID: candidateID,
			Filename:    originalFilename,
			SourceType:  sourceType,
			ChunkCount:  count,
			IndexedAt:   time.Now(),
		})
		if err != nil {
			logger.Warn("Failed to record resume", zap.Error(err))
		}
	}

	if p.invalidator != nil {
		p.invalidator.InvalidateCache(ctx)
	}

	logger.Info("Resume indexed",
		zap.String("candidate_id", candidateID),
		zap.Int("chunks", count),
	)
	return count, nil
}

// DeleteResume removes every indexed chunk for a candidate. Returns
// the removed count; search.ErrCandidateNotFound when none existed.
func (p *Processor) DeleteResume(ctx context.Context, candidateID string) (int, error) {
	count, err := p.matcher.Delete(ctx, candidateID)
	if err != nil {
		return 0, err
	}

	metrics.ChunksDeleted.Add(float64(count))

	if p.store != nil {
		if err := p.store.DeleteResume(candidateID); err != nil {
			logger.Warn("Failed to delete resume record", zap.Error(err))
		}
	}

	if p.invalidator != nil {
		p.invalidator.InvalidateCache(ctx)
	}

	logger.Info("Resume deleted",
		zap.String("candidate_id", candidateID),
		zap.Int("chunks", count),
	)
	return count, nil
}

// SanitizedResume reconstructs the stored sanitized text for one
// candidate from its indexed chunks.
func (p *Processor) SanitizedResume(ctx context.Context, candidateID string) (string, error) {
	chunks, err := p.matcher.CandidateChunks(ctx, candidateID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("candidate %q: %w", candidateID, search.ErrCandidateNotFound)
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n\n"), nil
}

// Candidates lists indexed candidate ids with their chunk counts.
func (p *Processor) Candidates(ctx context.Context) (map[string]int, error) {
	return p.matcher.CandidateIDs(ctx)
}
