// Package search owns the dual index: a persistent vector store and an
// in-memory lexical index kept mutually consistent, plus the hybrid
// ranker that fuses their rankings.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/chunker"
	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/internal/index/keyword"
	"github.com/talentmatch/backend/pkg/logger"
)

// ensemblePoolSize is how many candidates each index contributes to the
// fusion step, independent of the requested k.
const ensemblePoolSize = 10

// Matcher maintains both retrievable representations of the chunk
// corpus. Index, Delete, and Load serialize behind a single writer lock;
// searches share a read lock so no reader observes a half-rebuilt index.
type Matcher struct {
	store    VectorStore
	embedder Embedder
	splitter *chunker.Splitter

	vectorWeight float64

	mu     sync.RWMutex
	kw     *keyword.Index
	corpus []document.Chunk
	loaded bool
}

func NewMatcher(store VectorStore, embedder Embedder, splitter *chunker.Splitter, vectorWeight float64) *Matcher {
	if vectorWeight <= 0 || vectorWeight > 1 {
		vectorWeight = 0.7
	}
	return &Matcher{
		store:        store,
		embedder:     embedder,
		splitter:     splitter,
		vectorWeight: vectorWeight,
	}
}

// Index chunks the documents, merges them with the already-persisted
// corpus, recomputes embeddings for the full merged set, and rebuilds
// both indexes from it. Returns the number of chunks added.
func (m *Matcher) Index(ctx context.Context, docs []document.Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := m.splitter.Split(docs)
	if len(added) == 0 {
		return 0, nil
	}

	existing, err := m.store.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read existing corpus: %w", err)
	}

	merged := make([]document.Chunk, 0, len(existing)+len(added))
	for _, sc := range existing {
		merged = append(merged, sc.Chunk)
	}
	merged = append(merged, added...)

	if err := m.rebuild(ctx, merged); err != nil {
		return 0, err
	}

	logger.Info("Corpus indexed",
		zap.Int("added_chunks", len(added)),
		zap.Int("total_chunks", len(merged)),
	)
	return len(added), nil
}

// Delete removes every chunk whose metadata carries candidateID and
// rebuilds both indexes from the remainder. The index is left untouched
// when nothing matches.
func (m *Matcher) Delete(ctx context.Context, candidateID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read existing corpus: %w", err)
	}

	remaining := make([]document.Chunk, 0, len(existing))
	removed := 0
	for _, sc := range existing {
		if sc.Chunk.Meta.CandidateID == candidateID {
			removed++
			continue
		}
		remaining = append(remaining, sc.Chunk)
	}

	if removed == 0 {
		return 0, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
	}

	if err := m.rebuild(ctx, remaining); err != nil {
		return 0, err
	}

	logger.Info("Candidate removed from index",
		zap.String("candidate_id", candidateID),
		zap.Int("removed_chunks", removed),
		zap.Int("remaining_chunks", len(remaining)),
	)
	return removed, nil
}

// rebuild re-embeds the complete chunk set and rewrites the vector
// store, then rebuilds the lexical index from the same set. Caller holds
// the write lock.
func (m *Matcher) rebuild(ctx context.Context, chunks []document.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	stored := make([]StoredChunk, len(chunks))
	for i := range chunks {
		stored[i] = StoredChunk{Chunk: chunks[i], Embedding: embeddings[i]}
	}

	if err := m.store.ReplaceAll(ctx, stored); err != nil {
		return fmt.Errorf("rewrite vector store: %w", err)
	}

	m.kw = keyword.Build(chunks)
	m.corpus = chunks
	m.loaded = true
	return nil
}

// Load reconstructs the in-memory retrievers from persisted state. It
// reports false without error when no persisted corpus exists yet.
func (m *Matcher) Load(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx)
}

func (m *Matcher) loadLocked(ctx context.Context) (bool, error) {
	ready, err := m.store.Ready(ctx)
	if err != nil {
		return false, fmt.Errorf("check vector store: %w", err)
	}
	if !ready {
		return false, nil
	}

	stored, err := m.store.FetchAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load persisted corpus: %w", err)
	}

	chunks := make([]document.Chunk, len(stored))
	for i, sc := range stored {
		chunks[i] = sc.Chunk
	}

	m.kw = keyword.Build(chunks)
	m.corpus = chunks
	m.loaded = true

	logger.Info("Index loaded from persisted state", zap.Int("chunks", len(chunks)))
	return true, nil
}

// ensureLoaded lazily loads persisted state on first read access.
func (m *Matcher) ensureLoaded(ctx context.Context) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if loaded {
		return nil
	}

	ok, err := m.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotIndexed
	}
	return nil
}

// Query dispatches a search by strategy.
func (m *Matcher) Query(ctx context.Context, query string, k int, strategy string) ([]Result, error) {
	switch strategy {
	case StrategyHybrid:
		return m.Search(ctx, query, k)
	case StrategyVector, StrategyKeyword:
		return m.Retrieve(ctx, query, k, strategy)
	default:
		return nil, fmt.Errorf("%w: %q (must be hybrid, vector, or keyword)", ErrInvalidStrategy, strategy)
	}
}

// Retrieve queries a single index and returns position-scored results.
func (m *Matcher) Retrieve(ctx context.Context, query string, k int, strategy string) ([]Result, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var chunks []document.Chunk
	switch strategy {
	case StrategyVector:
		embedding, err := m.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		chunks, err = m.store.Search(ctx, embedding, k)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
	case StrategyKeyword:
		chunks = m.kw.Search(query, k)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}

	results := make([]Result, len(chunks))
	for i, c := range chunks {
		results[i] = Result{
			Content:  c.Content,
			Score:    Round3(PositionScore(i, len(chunks))),
			Strategy: strategy,
			Meta:     c.Meta,
		}
	}
	return results, nil
}

// Search runs the hybrid ranker: a fixed pool from each index, position
// scores within each list, weighted fusion, truncation to k.
func (m *Matcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectorChunks, err := m.store.Search(ctx, embedding, ensemblePoolSize)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	keywordChunks := m.kw.Search(query, ensemblePoolSize)

	vectorPos := positionScores(vectorChunks)
	keywordPos := positionScores(keywordChunks)

	byID := make(map[string]document.Chunk, len(vectorChunks)+len(keywordChunks))
	for _, c := range vectorChunks {
		byID[c.ID] = c
	}
	for _, c := range keywordChunks {
		byID[c.ID] = c
	}

	type fused struct {
		id     string
		scores HybridScores
	}

	ranked := make([]fused, 0, len(byID))
	for id := range byID {
		// Absent from one pool means zero contribution from that side.
		v := Round3(vectorPos[id])
		b := Round3(keywordPos[id])
		ranked = append(ranked, fused{
			id: id,
			scores: HybridScores{
				VectorScore: v,
				BM25Score:   b,
				HybridScore: Round3(m.vectorWeight*v + (1-m.vectorWeight)*b),
			},
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].scores.HybridScore != ranked[j].scores.HybridScore {
			return ranked[i].scores.HybridScore > ranked[j].scores.HybridScore
		}
		return ranked[i].id < ranked[j].id
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	results := make([]Result, len(ranked))
	for i, f := range ranked {
		chunk := byID[f.id]
		results[i] = Result{
			Content:  chunk.Content,
			Score:    f.scores.HybridScore,
			Scores:   f.scores,
			Strategy: StrategyHybrid,
			Meta:     chunk.Meta,
		}
	}
	return results, nil
}

// CandidateChunks returns the indexed chunks belonging to one candidate,
// in corpus order.
func (m *Matcher) CandidateChunks(ctx context.Context, candidateID string) ([]document.Chunk, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []document.Chunk
	for _, c := range m.corpus {
		if c.Meta.CandidateID == candidateID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CandidateIDs returns every distinct candidate ID in the corpus with
// its chunk count.
func (m *Matcher) CandidateIDs(ctx context.Context) (map[string]int, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range m.corpus {
		if c.Meta.CandidateID != "" {
			counts[c.Meta.CandidateID]++
		}
	}
	return counts, nil
}

func positionScores(chunks []document.Chunk) map[string]float64 {
	scores := make(map[string]float64, len(chunks))
	for i, c := range chunks {
		scores[c.ID] = PositionScore(i, len(chunks))
	}
	return scores
}
