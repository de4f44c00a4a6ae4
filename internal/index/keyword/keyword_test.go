package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/backend/internal/document"
)

func corpus() []document.Chunk {
	return []document.Chunk{
		{ID: "a", Content: "Senior Go engineer building backend services with PostgreSQL"},
		{ID: "b", Content: "Frontend developer working with React and TypeScript"},
		{ID: "c", Content: "Go developer, wrote concurrent pipelines in Go and Kafka"},
		{ID: "d", Content: "Data scientist focused on Python and machine learning"},
	}
}

func TestBuildAndLen(t *testing.T) {
	idx := Build(corpus())

	assert.Equal(t, 4, idx.Len())
}

func TestSearchRanksTermFrequency(t *testing.T) {
	idx := Build(corpus())

	results := idx.Search("Go developer", 4)

	require.NotEmpty(t, results)
	// "c" holds both query terms, "Go" twice.
	assert.Equal(t, "c", results[0].ID)
}

func TestSearchExcludesZeroScoreChunks(t *testing.T) {
	idx := Build(corpus())

	results := idx.Search("PostgreSQL", 4)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchTruncatesToK(t *testing.T) {
	idx := Build(corpus())

	results := idx.Search("developer engineer Go Python React", 2)

	assert.Len(t, results, 2)
}

func TestSearchNoMatches(t *testing.T) {
	idx := Build(corpus())

	assert.Empty(t, idx.Search("haskell", 4))
	assert.Empty(t, idx.Search("", 4))
}

func TestSearchCaseInsensitive(t *testing.T) {
	idx := Build(corpus())

	lower := idx.Search("postgresql", 4)
	upper := idx.Search("POSTGRESQL", 4)

	require.Len(t, lower, 1)
	require.Len(t, upper, 1)
	assert.Equal(t, lower[0].ID, upper[0].ID)
}

func TestBuildEmptyCorpus(t *testing.T) {
	idx := Build(nil)

	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Search("anything", 5))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Go, Kafka & gRPC-based APIs!")

	assert.Equal(t, []string{"go", "kafka", "grpc", "based", "apis"}, tokens)
}
