// Package chunker splits sanitized document text into overlapping
// retrievable units. Splitting prefers the largest separator that keeps
// chunks within the size limit: paragraph break, line break, space, then
// character boundary.
package chunker

import (
	"fmt"
	"strings"

	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/pkg/utils"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

var separators = []string{"\n\n", "\n", " ", ""}

type Splitter struct {
	chunkSize int
	overlap   int
}

type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Split chunks every document. Each chunk carries a deep copy of its
// parent's full metadata; losing a key here (candidate_id above all)
// breaks candidate aggregation downstream.
func (s *Splitter) Split(docs []document.Document) []document.Chunk {
	var chunks []document.Chunk
	for _, doc := range docs {
		pieces := s.splitText(doc.Content, separators)
		for i, piece := range pieces {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, document.Chunk{
				ID:      utils.HashString(fmt.Sprintf("%s|%s|%d|%s", doc.Meta.CandidateID, doc.Meta.Filename, i, piece)),
				Content: piece,
				Meta:    doc.Meta.Clone(),
			})
		}
	}
	return chunks
}

func (s *Splitter) splitText(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	sep := ""
	var rest []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return s.splitRunes(text)
	}

	var pieces []string
	for _, part := range strings.Split(text, sep) {
		if part == "" {
			continue
		}
		if len(part) > s.chunkSize && len(rest) > 0 {
			pieces = append(pieces, s.splitText(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}

	return s.merge(pieces, sep)
}

// merge greedily joins pieces up to the chunk size, carrying a tail of
// pieces totalling at most the overlap into the next chunk so no
// semantic unit is cut without context.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	joinedLen := func(parts []string) int {
		n := 0
		for i, p := range parts {
			if i > 0 {
				n += len(sep)
			}
			n += len(p)
		}
		return n
	}

	for _, piece := range pieces {
		added := len(piece)
		if len(current) > 0 {
			added += len(sep)
		}

		if currentLen+added > s.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, sep))

			for len(current) > 0 && (joinedLen(current) > s.overlap ||
				joinedLen(current)+len(sep)+len(piece) > s.chunkSize) {
				current = current[1:]
			}
			currentLen = joinedLen(current)
			if len(current) > 0 {
				added = len(sep) + len(piece)
			} else {
				added = len(piece)
			}
		}

		current = append(current, piece)
		currentLen += added
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}
	return chunks
}

// splitRunes is the character-boundary fallback for text with no usable
// separator at all.
func (s *Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
