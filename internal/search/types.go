package search

import (
	"context"
	"errors"
	"math"

	"github.com/talentmatch/backend/internal/document"
)

var (
	// ErrNotIndexed is returned when a search runs before any corpus has
	// been indexed or loaded.
	ErrNotIndexed = errors.New("no resumes indexed: index resumes before searching")
	// ErrInvalidStrategy is returned for a search strategy outside
	// hybrid, vector, keyword.
	ErrInvalidStrategy = errors.New("invalid search strategy")
	// ErrCandidateNotFound is returned by Delete when no chunk carries
	// the requested candidate ID.
	ErrCandidateNotFound = errors.New("candidate not found in index")
)

// Search strategies.
const (
	StrategyHybrid  = "hybrid"
	StrategyVector  = "vector"
	StrategyKeyword = "keyword"
)

// Embedder produces dense vectors for corpus chunks and queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// StoredChunk pairs a chunk with its embedding for persistence.
type StoredChunk struct {
	Chunk     document.Chunk `json:"chunk"`
	Embedding []float32      `json:"embedding"`
}

// VectorStore is the persistent half of the dual index. The lexical
// index is always rebuilt in memory from this store's contents, so the
// store is the single source of truth for the chunk corpus.
type VectorStore interface {
	// ReplaceAll atomically replaces the persisted corpus with chunks.
	// The store has no incremental-append-with-persist primitive, hence
	// the rewrite-whole contract.
	ReplaceAll(ctx context.Context, chunks []StoredChunk) error
	// FetchAll reads the complete persisted corpus back. Embeddings
	// may be omitted; the corpus is re-embedded before every rewrite.
	FetchAll(ctx context.Context) ([]StoredChunk, error)
	// Search returns up to k chunks by embedding similarity, best-first.
	Search(ctx context.Context, embedding []float32, k int) ([]document.Chunk, error)
	// Ready reports whether persisted state exists.
	Ready(ctx context.Context) (bool, error)
}

// HybridScores carries the three rank-derived scores for one result.
// All components live on [0,1] and are rounded to 3 decimals.
type HybridScores struct {
	VectorScore float64 `json:"vector_score"`
	BM25Score   float64 `json:"bm25_score"`
	HybridScore float64 `json:"hybrid_score"`
}

// Result is one retrieved chunk plus its scores and strategy tag.
type Result struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Scores   HybridScores      `json:"scores"`
	Strategy string            `json:"search_type"`
	Meta     document.Metadata `json:"metadata"`
}

// Round3 rounds to 3 decimal places, the precision every exposed score
// is reported at.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// PositionScore converts a rank position into a [0,1] score: the i-th
// item (0-indexed) of a list of length n scores 1 - i/n. Rank order, not
// raw similarity magnitude, is what makes the two retrievers comparable.
func PositionScore(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1 - float64(i)/float64(n)
}
