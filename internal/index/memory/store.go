// Package memory is a file-backed vector store for local development and
// tests. The corpus persists as a single JSON file inside the configured
// index directory; similarity search is a cosine scan.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/internal/search"
)

const corpusFile = "chunks.json"

type Store struct {
	dir string

	mu     sync.RWMutex
	chunks []search.StoredChunk
	warm   bool
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, corpusFile)
}

func (s *Store) Ready(_ context.Context) (bool, error) {
	s.mu.RLock()
	warm := s.warm
	s.mu.RUnlock()
	if warm {
		return true, nil
	}

	_, err := os.Stat(s.path())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat corpus file: %w", err)
	}
	return true, nil
}

func (s *Store) ReplaceAll(_ context.Context, chunks []search.StoredChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write corpus file: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("replace corpus file: %w", err)
	}

	s.chunks = chunks
	s.warm = true
	return nil
}

func (s *Store) FetchAll(_ context.Context) ([]search.StoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.warm {
		data, err := os.ReadFile(s.path())
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus file: %w", err)
		}
		if err := json.Unmarshal(data, &s.chunks); err != nil {
			return nil, fmt.Errorf("parse corpus file: %w", err)
		}
		s.warm = true
	}

	out := make([]search.StoredChunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]document.Chunk, error) {
	if _, err := s.FetchAll(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		chunk document.Chunk
		score float64
	}

	hits := make([]hit, 0, len(s.chunks))
	for _, sc := range s.chunks {
		hits = append(hits, hit{
			chunk: sc.Chunk,
			score: cosine(embedding, sc.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.ID < hits[j].chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]document.Chunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
