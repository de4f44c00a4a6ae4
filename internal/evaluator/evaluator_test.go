package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/backend/internal/llm"
)

// scriptedGenerator returns canned responses in order, or a fixed
// error for every call.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *scriptedGenerator) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.calls >= len(g.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := &llm.CompletionResponse{Content: g.responses[g.calls]}
	g.calls++
	return resp, nil
}

func TestScoreResumeParsesScores(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"technical_skills": 0.8, "experience": 0.65, "overall_match": 0.72,
		  "technical_reasoning": "strong Go", "experience_reasoning": "5 years", "overall_reasoning": "good fit"}`,
	}}
	e := New(gen, time.Second)

	scores := e.ScoreResume(context.Background(), "Go backend role", "Go engineer resume")

	assert.Equal(t, 0.8, scores.TechnicalSkills)
	assert.Equal(t, 0.65, scores.Experience)
	assert.Equal(t, 0.72, scores.OverallMatch)
	assert.Equal(t, "strong Go", scores.TechnicalReasoning)
}

func TestScoreResumeClampsOutOfRange(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"technical_skills": 1.7, "experience": -0.4, "overall_match": 0.5}`,
	}}
	e := New(gen, time.Second)

	scores := e.ScoreResume(context.Background(), "role", "resume")

	assert.Equal(t, 1.0, scores.TechnicalSkills)
	assert.Equal(t, 0.0, scores.Experience)
	assert.Equal(t, 0.5, scores.OverallMatch)
}

func TestScoreResumeFallbackOnCallFailure(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("provider down")}
	e := New(gen, time.Second)

	scores := e.ScoreResume(context.Background(), "role", "resume")

	assert.Equal(t, 0.5, scores.TechnicalSkills)
	assert.Equal(t, 0.5, scores.Experience)
	assert.Equal(t, 0.5, scores.OverallMatch)
	assert.Contains(t, scores.OverallReasoning, "default score")
}

func TestScoreResumeFallbackOnUnparsableOutput(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"I am unable to comply with JSON."}}
	e := New(gen, time.Second)

	scores := e.ScoreResume(context.Background(), "role", "resume")

	assert.Equal(t, 0.5, scores.TechnicalSkills)
	assert.Contains(t, scores.TechnicalReasoning, "default score")
}

func TestScoreResumeHandlesFencedJSON(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"Here are the scores:\n```json\n{\"technical_skills\": 0.9, \"experience\": 0.4, \"overall_match\": 0.6}\n```",
	}}
	e := New(gen, time.Second)

	scores := e.ScoreResume(context.Background(), "role", "resume")

	assert.Equal(t, 0.9, scores.TechnicalSkills)
	assert.Equal(t, 0.4, scores.Experience)
}

func TestAnalyzeReportTwoStage(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"missing_skills": ["Kafka"], "strengths": ["Go", "grpc"], "weaknesses": ["no streaming experience"]}`,
		`{"fit_category": "good", "overall_score": 78, "explanation": "Solid backend profile."}`,
	}}
	e := New(gen, time.Second)

	report := e.AnalyzeReport(context.Background(), "Go role", "Go resume", 0.81)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, "Good", report.FitCategory)
	assert.Equal(t, 78, report.OverallScore)
	assert.Equal(t, []string{"Kafka"}, report.MissingSkills)
	assert.Equal(t, []string{"Go", "grpc"}, report.Strengths)
	assert.Equal(t, []string{"no streaming experience"}, report.Weaknesses)
	assert.Equal(t, "Solid backend profile.", report.Explanation)
}

func TestAnalyzeReportClampsOverallScore(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"missing_skills": [], "strengths": [], "weaknesses": []}`,
		`{"fit_category": "Excellent", "overall_score": 140, "explanation": "x"}`,
	}}
	e := New(gen, time.Second)

	report := e.AnalyzeReport(context.Background(), "role", "resume", 0.9)

	assert.Equal(t, 100, report.OverallScore)
	assert.Equal(t, "Excellent", report.FitCategory)
}

func TestAnalyzeReportFallbackOnCallFailure(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("timeout")}
	e := New(gen, time.Second)

	report := e.AnalyzeReport(context.Background(), "role", "resume", 0.5)

	assert.Equal(t, "Fair", report.FitCategory)
	assert.Equal(t, 50, report.OverallScore)
	assert.NotNil(t, report.MissingSkills)
	assert.Empty(t, report.MissingSkills)
	assert.NotNil(t, report.Strengths)
	assert.NotNil(t, report.Weaknesses)
	assert.NotEmpty(t, report.Explanation)
}

func TestAnalyzeReportFallbackOnUnparsableScoring(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"missing_skills": [], "strengths": [], "weaknesses": []}`,
		"sorry, no JSON today",
	}}
	e := New(gen, time.Second)

	report := e.AnalyzeReport(context.Background(), "role", "resume", 0.5)

	assert.Equal(t, "Fair", report.FitCategory)
	assert.Equal(t, 50, report.OverallScore)
}

func TestAnalyzeReportUnknownFitCategoryNormalized(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"missing_skills": [], "strengths": [], "weaknesses": []}`,
		`{"fit_category": "amazing", "overall_score": 60, "explanation": "x"}`,
	}}
	e := New(gen, time.Second)

	report := e.AnalyzeReport(context.Background(), "role", "resume", 0.5)

	assert.Equal(t, "Fair", report.FitCategory)
	assert.Equal(t, 60, report.OverallScore)
}

func TestExtractJSONVariants(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prefix text {\"a\": 1} suffix", `{"a": 1}`},
		{"[1, 2, 3] trailing", `[1, 2, 3]`},
	}

	for _, tc := range cases {
		got := extractJSON(tc.in)
		require.JSONEq(t, tc.want, string(got), "input: %s", tc.in)
	}
}
