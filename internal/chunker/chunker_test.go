package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/backend/internal/document"
)

func doc(content, candidateID string) document.Document {
	return document.Document{
		Content: content,
		Meta: document.Metadata{
			CandidateID: candidateID,
			Filename:    "resume.pdf",
			SourceType:  "pdf",
		},
	}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := New(WithChunkSize(500), WithOverlap(50))

	chunks := s.Split([]document.Document{doc("Go engineer with five years of backend experience.", "cand-1")})

	require.Len(t, chunks, 1)
	assert.Equal(t, "Go engineer with five years of backend experience.", chunks[0].Content)
	assert.Equal(t, "cand-1", chunks[0].Meta.CandidateID)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	sentence := "worked on distributed systems and cloud infrastructure"
	content := strings.Repeat(sentence+" ", 30)

	chunks := s.Split([]document.Document{doc(content, "cand-1")})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 100)
	}
}

func TestSplitCoversWholeDocument(t *testing.T) {
	s := New(WithChunkSize(120), WithOverlap(20))

	paragraphs := []string{
		"Led the migration of a monolith to microservices over two years.",
		"Designed the event pipeline handling millions of records daily.",
		"Mentored four junior engineers and ran the hiring loop.",
		"Introduced structured logging and tracing across all services.",
	}
	content := strings.Join(paragraphs, "\n\n")

	chunks := s.Split([]document.Document{doc(content, "cand-1")})

	require.NotEmpty(t, chunks)
	joined := ""
	for _, c := range chunks {
		joined += c.Content + " "
	}
	for _, p := range paragraphs {
		assert.Contains(t, joined, p)
	}
}

func TestSplitReconstructsAfterRemovingOverlap(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	words := make([]string, 120)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	content := strings.Join(words, " ")

	chunks := s.Split([]document.Document{doc(content, "cand-1")})
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share the carried overlap as a suffix/prefix;
	// stripping it and rejoining must yield the source text exactly.
	rebuilt := chunks[0].Content
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		cur := chunks[i].Content

		limit := len(prev)
		if len(cur) < limit {
			limit = len(cur)
		}
		shared := 0
		for n := limit; n > 0; n-- {
			if strings.HasSuffix(prev, cur[:n]) {
				shared = n
				break
			}
		}
		require.Greater(t, shared, 0, "chunks %d and %d share no overlap", i-1, i)
		rebuilt += cur[shared:]
	}

	assert.Equal(t, content, rebuilt)
}

func TestSplitMetadataInheritedPerChunk(t *testing.T) {
	s := New(WithChunkSize(60), WithOverlap(10))

	content := strings.Repeat("platform engineering and site reliability work ", 10)
	chunks := s.Split([]document.Document{doc(content, "cand-42")})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, "cand-42", c.Meta.CandidateID)
		assert.Equal(t, "resume.pdf", c.Meta.Filename)
		assert.Equal(t, "pdf", c.Meta.SourceType)
	}
}

func TestSplitMetadataIsDeepCopied(t *testing.T) {
	s := New()

	d := doc("short resume text", "cand-1")
	d.Meta.Extra = map[string]string{"origin": "upload"}

	chunks := s.Split([]document.Document{d})
	require.Len(t, chunks, 1)

	chunks[0].Meta.Extra["origin"] = "mutated"
	assert.Equal(t, "upload", d.Meta.Extra["origin"])
}

func TestSplitChunkIDsUnique(t *testing.T) {
	s := New(WithChunkSize(80), WithOverlap(10))

	content := strings.Repeat("unique identifier stability check for chunk hashing ", 20)
	chunks := s.Split([]document.Document{doc(content, "cand-1")})

	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestSplitSkipsEmptyDocuments(t *testing.T) {
	s := New()

	chunks := s.Split([]document.Document{doc("", "cand-1"), doc("   \n\n  ", "cand-2")})

	assert.Empty(t, chunks)
}

func TestSplitNoSeparatorFallsBackToRunes(t *testing.T) {
	s := New(WithChunkSize(50), WithOverlap(10))

	content := strings.Repeat("x", 200)
	chunks := s.Split([]document.Document{doc(content, "cand-1")})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 50)
	}
}

func TestOverlapLargerThanChunkSizeIsReduced(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(200))

	content := strings.Repeat("text that still needs to terminate when splitting ", 20)
	chunks := s.Split([]document.Document{doc(content, "cand-1")})

	assert.NotEmpty(t, chunks)
}
