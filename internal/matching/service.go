// Package matching aggregates chunk-level search hits into ranked
// per-candidate results and fans out the qualitative judge.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/evaluator"
	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/internal/sanitizer"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/internal/storage/models"
	"github.com/talentmatch/backend/pkg/logger"
)

// ErrInvalidK signals a requested result count outside [1, 20].
var ErrInvalidK = errors.New("k must be between 1 and 20")

const (
	MinTopK = 1
	MaxTopK = 20

	// Chunk-level over-fetch factor. Fetching 3k chunks before
	// grouping keeps candidates visible whose chunks are spread
	// thinly through the ranking.
	overFetchFactor = 3
)

// CandidateMatchResult is one ranked candidate with averaged retrieval
// scores and, when the judge ran, a qualitative report.
type CandidateMatchResult struct {
	CandidateID string                             `json:"candidate_id"`
	Scores      search.HybridScores                `json:"scores"`
	Excerpt     string                             `json:"excerpt,omitempty"`
	Report      *evaluator.CandidateAnalysisReport `json:"report,omitempty"`
}

// Judge produces a qualitative report for one candidate. It never
// fails; degraded output is a neutral report.
type Judge interface {
	AnalyzeReport(ctx context.Context, jobDescription, resumeExcerpt string, hybridScore float64) evaluator.CandidateAnalysisReport
}

// MatchCache stores finished match responses keyed by job description
// and k. All methods are best effort.
type MatchCache interface {
	GetMatches(ctx context.Context, jobDescription string, k int, dest any) bool
	SetMatches(ctx context.Context, jobDescription string, k int, response any)
	InvalidateMatches(ctx context.Context)
}

// AuditStore records match requests for later inspection.
type AuditStore interface {
	InsertMatchRequest(record *models.MatchRequestRecord) error
}

// ResultSink receives finished results for external persistence.
// Implementations swallow their own failures.
type ResultSink interface {
	StoreMatches(ctx context.Context, jobDescription string, results []CandidateMatchResult)
}

type Service struct {
	matcher   *search.Matcher
	sanitizer *sanitizer.Sanitizer
	judge     Judge
	language  string

	cache MatchCache
	audit AuditStore
	sink  ResultSink
}

type Option func(*Service)

func WithCache(cache MatchCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAuditStore(audit AuditStore) Option {
	return func(s *Service) { s.audit = audit }
}

func WithResultSink(sink ResultSink) Option {
	return func(s *Service) { s.sink = sink }
}

func NewService(matcher *search.Matcher, san *sanitizer.Sanitizer, judge Judge, language string, opts ...Option) *Service {
	s := &Service{
		matcher:   matcher,
		sanitizer: san,
		judge:     judge,
		language:  language,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindCandidates runs the full match pipeline: sanitize the job
// description, over-fetch chunks, group them per candidate, average
// the scores, judge each candidate concurrently and return the top k
// sorted by hybrid score.
func (s *Service) FindCandidates(ctx context.Context, jobDescription string, k int) ([]CandidateMatchResult, error) {
	if k < MinTopK || k > MaxTopK {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	start := time.Now()

	cleanJD := s.sanitizer.Clean(jobDescription, s.language)

	if s.cache != nil {
		var cached []CandidateMatchResult
		if s.cache.GetMatches(ctx, cleanJD, k, &cached) {
			return cached, nil
		}
	}

	hits, err := s.matcher.Search(ctx, cleanJD, k*overFetchFactor)
	if err != nil {
		metrics.MatchTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	candidates := s.groupByCandidate(hits)

	s.judgeAll(ctx, cleanJD, candidates)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Scores.HybridScore != candidates[j].Scores.HybridScore {
			return candidates[i].Scores.HybridScore > candidates[j].Scores.HybridScore
		}
		return candidates[i].CandidateID < candidates[j].CandidateID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	latency := time.Since(start)
	metrics.MatchTotal.WithLabelValues("success").Inc()
	metrics.MatchDuration.WithLabelValues("success").Observe(latency.Seconds())
	metrics.CandidatesReturned.Observe(float64(len(candidates)))

	logger.Info("Candidate match completed",
		zap.Int("top_k", k),
		zap.Int("chunks", len(hits)),
		zap.Int("candidates", len(candidates)),
		zap.Duration("latency", latency),
	)

	s.record(ctx, cleanJD, k, len(candidates), latency)

	if s.cache != nil {
		s.cache.SetMatches(ctx, cleanJD, k, candidates)
	}
	if s.sink != nil {
		// Fire and forget; the sink swallows its own failures and the
		// response must not wait on external persistence retries.
		go s.sink.StoreMatches(context.WithoutCancel(ctx), cleanJD, candidates)
	}

	return candidates, nil
}

// groupByCandidate collapses chunk hits into one entry per candidate.
// Scores are the plain averages of the chunk scores, re-rounded to
// 3 decimals; excerpts concatenate chunk contents in retrieval order.
// Hits without a candidate id are dropped.
func (s *Service) groupByCandidate(hits []search.Result) []CandidateMatchResult {
	type accumulator struct {
		vectorSum float64
		bm25Sum   float64
		hybridSum float64
		count     int
		excerpts  []string
	}

	order := make([]string, 0)
	groups := make(map[string]*accumulator)

	for _, hit := range hits {
		id := hit.Meta.CandidateID
		if id == "" {
			continue
		}

		acc, ok := groups[id]
		if !ok {
			acc = &accumulator{}
			groups[id] = acc
			order = append(order, id)
		}

		acc.vectorSum += hit.Scores.VectorScore
		acc.bm25Sum += hit.Scores.BM25Score
		acc.hybridSum += hit.Scores.HybridScore
		acc.count++
		acc.excerpts = append(acc.excerpts, hit.Content)
	}

	results := make([]CandidateMatchResult, 0, len(order))
	for _, id := range order {
		acc := groups[id]
		n := float64(acc.count)

		excerpt := ""
		for i, e := range acc.excerpts {
			if i > 0 {
				excerpt += " "
			}
			excerpt += e
		}

		results = append(results, CandidateMatchResult{
			CandidateID: id,
			Scores: search.HybridScores{
				VectorScore: search.Round3(acc.vectorSum / n),
				BM25Score:   search.Round3(acc.bm25Sum / n),
				HybridScore: search.Round3(acc.hybridSum / n),
			},
			Excerpt: excerpt,
		})
	}
	return results
}

// judgeAll fans the judge out over all candidates and waits for every
// call to finish. Each call carries its own fallback, so the only
// outcome per candidate is a report.
func (s *Service) judgeAll(ctx context.Context, jobDescription string, candidates []CandidateMatchResult) {
	if s.judge == nil {
		return
	}

	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(c *CandidateMatchResult) {
			defer wg.Done()
			report := s.judge.AnalyzeReport(ctx, jobDescription, c.Excerpt, c.Scores.HybridScore)
			c.Report = &report
		}(&candidates[i])
	}
	wg.Wait()
}

func (s *Service) record(ctx context.Context, jobDescription string, k, resultCount int, latency time.Duration) {
	if s.audit == nil {
		return
	}

	err := s.audit.InsertMatchRequest(&models.MatchRequestRecord{
		ID:             uuid.NewString(),
		JobDescription: jobDescription,
		TopK:           k,
		ResultCount:    resultCount,
		LatencyMS:      latency.Milliseconds(),
		CreatedAt:      time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record match request", zap.Error(err))
	}
}

// InvalidateCache drops cached match responses. Called by the ingest
// path after any index mutation.
func (s *Service) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateMatches(ctx)
	}
}
