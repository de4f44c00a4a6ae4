// Package keyword holds the in-memory lexical index. It is fully derived
// state: rebuilt from the persisted chunk corpus on every index mutation
// and on load, never persisted itself.
package keyword

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/talentmatch/backend/internal/document"
)

// Okapi BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// Index ranks chunks by BM25 relevance over the corpus.
type Index struct {
	chunks    []document.Chunk
	termFreqs []map[string]int
	docFreq   map[string]int
	docLens   []int
	avgDocLen float64
}

// Build constructs the index from the complete chunk set.
func Build(chunks []document.Chunk) *Index {
	idx := &Index{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docFreq:   make(map[string]int),
		docLens:   make([]int, len(chunks)),
	}

	totalLen := 0
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Content)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for term := range freqs {
			idx.docFreq[term]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	if len(chunks) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Search returns up to k chunks ordered best-first by BM25 score. Chunks
// scoring zero are excluded. Ties break on chunk ID so the ordering is
// deterministic for a fixed corpus.
func (idx *Index) Search(query string, k int) []document.Chunk {
	if k <= 0 || len(idx.chunks) == 0 {
		return nil
	}

	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	type hit struct {
		pos   int
		score float64
	}

	hits := make([]hit, 0, len(idx.chunks))
	for i := range idx.chunks {
		score := idx.score(queryTerms, i)
		if score > 0 {
			hits = append(hits, hit{pos: i, score: score})
		}
	}

	sort.Slice(hits, func(a, c int) bool {
		if hits[a].score != hits[c].score {
			return hits[a].score > hits[c].score
		}
		return idx.chunks[hits[a].pos].ID < idx.chunks[hits[c].pos].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]document.Chunk, len(hits))
	for i, h := range hits {
		out[i] = idx.chunks[h.pos]
	}
	return out
}

func (idx *Index) score(queryTerms []string, doc int) float64 {
	n := float64(len(idx.chunks))
	dl := float64(idx.docLens[doc])

	var score float64
	for _, term := range queryTerms {
		tf := float64(idx.termFreqs[doc][term])
		if tf == 0 {
			continue
		}
		df := float64(idx.docFreq[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		score += idf * tf * (k1 + 1) / (tf + k1*(1-b+b*dl/idx.avgDocLen))
	}
	return score
}

// Tokenize lowercases and splits on anything that is not a letter or
// digit. Both the corpus and queries pass through here so matching stays
// symmetric.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
