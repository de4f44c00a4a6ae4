package matching_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/backend/internal/chunker"
	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/internal/evaluator"
	"github.com/talentmatch/backend/internal/index/memory"
	"github.com/talentmatch/backend/internal/matching"
	"github.com/talentmatch/backend/internal/sanitizer"
	"github.com/talentmatch/backend/internal/search"
)

type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

// recordingJudge hands back a fixed report and remembers which
// excerpts it was asked about.
type recordingJudge struct {
	mu       sync.Mutex
	excerpts []string
}

func (j *recordingJudge) AnalyzeReport(_ context.Context, _, excerpt string, _ float64) evaluator.CandidateAnalysisReport {
	j.mu.Lock()
	j.excerpts = append(j.excerpts, excerpt)
	j.mu.Unlock()
	return evaluator.CandidateAnalysisReport{
		FitCategory:   "Good",
		OverallScore:  70,
		MissingSkills: []string{},
		Explanation:   "scripted",
		Strengths:     []string{"Go"},
		Weaknesses:    []string{},
	}
}

func newService(t *testing.T, judge matching.Judge) (*matching.Service, *search.Matcher) {
	t.Helper()
	store := memory.NewStore(t.TempDir())
	splitter := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	matcher := search.NewMatcher(store, letterEmbedder{}, splitter, 0.7)
	san := sanitizer.New(sanitizer.Config{Language: "en", EnableNER: false})
	return matching.NewService(matcher, san, judge, "en"), matcher
}

func seedResumes(t *testing.T, matcher *search.Matcher) {
	t.Helper()
	docs := []document.Document{
		{
			Content: "Senior Go engineer, built grpc microservices and kubernetes operators",
			Meta:    document.Metadata{CandidateID: "alice", Filename: "alice.pdf", SourceType: "pdf"},
		},
		{
			Content: "React and typescript frontend developer with design background",
			Meta:    document.Metadata{CandidateID: "bob", Filename: "bob.pdf", SourceType: "pdf"},
		},
		{
			Content: "Go developer, concurrent data pipelines, grpc and postgres",
			Meta:    document.Metadata{CandidateID: "carol", Filename: "carol.pdf", SourceType: "pdf"},
		},
	}
	_, err := matcher.Index(context.Background(), docs)
	require.NoError(t, err)
}

func TestFindCandidatesInvalidK(t *testing.T) {
	svc, _ := newService(t, &recordingJudge{})

	for _, k := range []int{0, -3, 21, 100} {
		_, err := svc.FindCandidates(context.Background(), "Go engineer", k)
		assert.ErrorIs(t, err, matching.ErrInvalidK, "k=%d", k)
	}
}

func TestFindCandidatesBeforeIndexing(t *testing.T) {
	svc, _ := newService(t, &recordingJudge{})

	_, err := svc.FindCandidates(context.Background(), "Go engineer", 5)
	assert.ErrorIs(t, err, search.ErrNotIndexed)
}

func TestFindCandidatesReturnsAtMostK(t *testing.T) {
	svc, matcher := newService(t, &recordingJudge{})
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "Go developer with grpc", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestFindCandidatesGroupsByCandidate(t *testing.T) {
	svc, matcher := newService(t, &recordingJudge{})
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "Go developer with grpc experience", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.NotEmpty(t, r.CandidateID)
		assert.False(t, seen[r.CandidateID], "candidate %s appears twice", r.CandidateID)
		seen[r.CandidateID] = true
	}
}

func TestFindCandidatesSortedWithTieBreak(t *testing.T) {
	svc, matcher := newService(t, &recordingJudge{})
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "software developer", 10)
	require.NoError(t, err)

	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if prev.Scores.HybridScore == cur.Scores.HybridScore {
			assert.Less(t, prev.CandidateID, cur.CandidateID)
		} else {
			assert.Greater(t, prev.Scores.HybridScore, cur.Scores.HybridScore)
		}
	}
}

func TestFindCandidatesScoresRounded(t *testing.T) {
	svc, matcher := newService(t, &recordingJudge{})
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "Go grpc kubernetes", 10)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, search.Round3(r.Scores.VectorScore), r.Scores.VectorScore)
		assert.Equal(t, search.Round3(r.Scores.BM25Score), r.Scores.BM25Score)
		assert.Equal(t, search.Round3(r.Scores.HybridScore), r.Scores.HybridScore)
		assert.GreaterOrEqual(t, r.Scores.HybridScore, 0.0)
		assert.LessOrEqual(t, r.Scores.HybridScore, 1.0)
	}
}

func TestFindCandidatesJudgeFanOut(t *testing.T) {
	judge := &recordingJudge{}
	svc, matcher := newService(t, judge)
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "Go developer", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Len(t, judge.excerpts, len(results))
	for _, r := range results {
		require.NotNil(t, r.Report)
		assert.Equal(t, "Good", r.Report.FitCategory)
		assert.Equal(t, 70, r.Report.OverallScore)
	}
}

func TestFindCandidatesWithoutJudge(t *testing.T) {
	svc, matcher := newService(t, nil)
	seedResumes(t, matcher)

	results, err := svc.FindCandidates(context.Background(), "Go developer", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Nil(t, r.Report)
	}
}

// gatedSink blocks StoreMatches until released so the test can prove
// the match response does not wait on external persistence.
type gatedSink struct {
	release chan struct{}
	stored  chan []matching.CandidateMatchResult
}

func (s *gatedSink) StoreMatches(_ context.Context, _ string, results []matching.CandidateMatchResult) {
	<-s.release
	s.stored <- results
}

func TestFindCandidatesDoesNotWaitOnResultSink(t *testing.T) {
	sink := &gatedSink{
		release: make(chan struct{}),
		stored:  make(chan []matching.CandidateMatchResult, 1),
	}

	store := memory.NewStore(t.TempDir())
	splitter := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	matcher := search.NewMatcher(store, letterEmbedder{}, splitter, 0.7)
	san := sanitizer.New(sanitizer.Config{Language: "en", EnableNER: false})
	svc := matching.NewService(matcher, san, &recordingJudge{}, "en", matching.WithResultSink(sink))
	seedResumes(t, matcher)

	// Returns while the sink is still blocked.
	results, err := svc.FindCandidates(context.Background(), "Go developer", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	close(sink.release)
	select {
	case stored := <-sink.stored:
		assert.Len(t, stored, len(results))
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the match results")
	}
}

func TestFindCandidatesEndToEndSingleResume(t *testing.T) {
	judge := &recordingJudge{}
	svc, matcher := newService(t, judge)

	_, err := matcher.Index(context.Background(), []document.Document{
		{
			Content: "Go engineer who built grpc services and worked with kubernetes",
			Meta:    document.Metadata{CandidateID: "solo", Filename: "solo.pdf", SourceType: "pdf"},
		},
	})
	require.NoError(t, err)

	results, err := svc.FindCandidates(context.Background(), "Looking for a Go engineer with grpc", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "solo", r.CandidateID)
	assert.Greater(t, r.Scores.HybridScore, 0.0)
	assert.NotEmpty(t, r.Excerpt)
	require.NotNil(t, r.Report)
	assert.Equal(t, "Good", r.Report.FitCategory)
}
