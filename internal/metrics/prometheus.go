package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentmatch_match_duration_seconds",
			Help:    "Candidate match request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)

	MatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentmatch_match_total",
			Help: "Total number of match requests processed",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentmatch_search_duration_seconds",
			Help:    "Chunk search duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"strategy"},
	)

	ChunksIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talentmatch_chunks_indexed_total",
			Help: "Total chunks written to the index",
		},
	)

	ChunksDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talentmatch_chunks_deleted_total",
			Help: "Total chunks removed from the index",
		},
	)

	ResumesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talentmatch_resumes_ingested_total",
			Help: "Total resumes loaded, sanitized and indexed",
		},
	)

	JudgeFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentmatch_judge_fallbacks_total",
			Help: "Judge calls that degraded to neutral fallback values",
		},
		[]string{"operation"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentmatch_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentmatch_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentmatch_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CandidatesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talentmatch_candidates_returned",
			Help:    "Number of candidates returned per match request",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)
)

func Init() {
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ChunksIndexed)
	prometheus.MustRegister(ChunksDeleted)
	prometheus.MustRegister(ResumesIngested)
	prometheus.MustRegister(JudgeFallbacks)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CandidatesReturned)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
