// Package evaluator runs the LLM judge over candidate excerpts. Both
// judge operations degrade to neutral fallback values on any call or
// parse failure; no error crosses this package boundary.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/llm"
	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/pkg/logger"
)

const (
	defaultTimeout = 45 * time.Second

	neutralAxisScore    = 0.5
	neutralOverallScore = 50
	neutralFitCategory  = "Fair"
)

// ContentGenerator produces a completion for a prompt pair. The LLM
// client satisfies it; tests inject fakes.
type ContentGenerator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// ResumeScores carries three independent axis scores in [0,1],
// each rounded to 3 decimals.
type ResumeScores struct {
	TechnicalSkills     float64 `json:"technical_skills"`
	Experience          float64 `json:"experience"`
	OverallMatch        float64 `json:"overall_match"`
	TechnicalReasoning  string  `json:"technical_reasoning"`
	ExperienceReasoning string  `json:"experience_reasoning"`
	OverallReasoning    string  `json:"overall_reasoning"`
}

// CandidateAnalysisReport is the qualitative judgement for one
// candidate against one job description.
type CandidateAnalysisReport struct {
	FitCategory   string   `json:"fit_category"`
	OverallScore  int      `json:"overall_score"`
	MissingSkills []string `json:"missing_skills"`
	Explanation   string   `json:"explanation"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
}

type Evaluator struct {
	generator ContentGenerator
	timeout   time.Duration
}

func New(generator ContentGenerator, timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Evaluator{
		generator: generator,
		timeout:   timeout,
	}
}

func neutralScores(reason string) ResumeScores {
	metrics.JudgeFallbacks.WithLabelValues("score_resume").Inc()
	return ResumeScores{
		TechnicalSkills:     neutralAxisScore,
		Experience:          neutralAxisScore,
		OverallMatch:        neutralAxisScore,
		TechnicalReasoning:  reason,
		ExperienceReasoning: reason,
		OverallReasoning:    reason,
	}
}

func neutralReport(note string) CandidateAnalysisReport {
	metrics.JudgeFallbacks.WithLabelValues("analyze_report").Inc()
	return CandidateAnalysisReport{
		FitCategory:   neutralFitCategory,
		OverallScore:  neutralOverallScore,
		MissingSkills: []string{},
		Explanation:   note,
		Strengths:     []string{},
		Weaknesses:    []string{},
	}
}

const scoreSystemPrompt = `You are a technical recruiter scoring a resume against a job description.

Score three independent axes, each a float between 0.0 and 1.0:
1. technical_skills: overlap between required and demonstrated technical skills
2. experience: relevance and depth of the candidate's experience for this role
3. overall_match: holistic suitability considering both of the above

Return ONLY a JSON object:
{"technical_skills": 0.0, "experience": 0.0, "overall_match": 0.0,
 "technical_reasoning": "...", "experience_reasoning": "...", "overall_reasoning": "..."}`

// ScoreResume rates an excerpt on three axes. Never returns an error;
// a failed or unparsable call yields 0.5 on every axis.
func (e *Evaluator) ScoreResume(ctx context.Context, jobDescription, resumeExcerpt string) ResumeScores {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Job description:\n%s\n\nResume excerpt:\n%s\n\nReturn JSON only.",
		jobDescription, resumeExcerpt)

	resp, err := e.generator.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: scoreSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    500,
	})
	if err != nil {
		logger.Warn("Resume scoring failed, using default scores", zap.Error(err))
		return neutralScores("default score: judge call failed")
	}

	var scores ResumeScores
	if err := json.Unmarshal(extractJSON(resp.Content), &scores); err != nil {
		logger.Warn("Unparsable resume scoring output, using default scores", zap.Error(err))
		return neutralScores("default score: unparsable judge output")
	}

	scores.TechnicalSkills = search.Round3(clamp01(scores.TechnicalSkills))
	scores.Experience = search.Round3(clamp01(scores.Experience))
	scores.OverallMatch = search.Round3(clamp01(scores.OverallMatch))
	return scores
}

const gapSystemPrompt = `You are a technical recruiter analyzing how a candidate's resume aligns with a job description.

Identify:
- missing_skills: required skills the resume does not demonstrate
- strengths: areas where the candidate clearly meets or exceeds requirements
- weaknesses: areas where the candidate falls short

Return ONLY a JSON object:
{"missing_skills": ["..."], "strengths": ["..."], "weaknesses": ["..."]}`

const reportSystemPrompt = `You are a technical recruiter producing a final hiring assessment.

Given a job description, a resume excerpt, a retrieval relevance score and a
gap analysis, assign:
- fit_category: one of "Excellent", "Good", "Fair", "Poor"
- overall_score: integer 0-100
- explanation: 2-3 sentences justifying the assessment

Return ONLY a JSON object:
{"fit_category": "...", "overall_score": 0, "explanation": "..."}`

type gapAnalysis struct {
	MissingSkills []string `json:"missing_skills"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
}

type reportScoring struct {
	FitCategory  string `json:"fit_category"`
	OverallScore int    `json:"overall_score"`
	Explanation  string `json:"explanation"`
}

// AnalyzeReport runs the two-stage judge: gap analysis first, then a
// scoring pass fed with the gap findings and the retrieval score.
// Never returns an error; any failure yields the Fair/50 report.
func (e *Evaluator) AnalyzeReport(ctx context.Context, jobDescription, resumeExcerpt string, hybridScore float64) CandidateAnalysisReport {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	gapPrompt := fmt.Sprintf("Job description:\n%s\n\nResume excerpt:\n%s\n\nReturn JSON only.",
		jobDescription, resumeExcerpt)

	gapResp, err := e.generator.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: gapSystemPrompt,
		UserPrompt:   gapPrompt,
		Temperature:  0.2,
		MaxTokens:    600,
	})
	if err != nil {
		logger.Warn("Gap analysis failed, using neutral report", zap.Error(err))
		return neutralReport("Automated analysis unavailable; judge call failed.")
	}

	var gap gapAnalysis
	if err := json.Unmarshal(extractJSON(gapResp.Content), &gap); err != nil {
		logger.Warn("Unparsable gap analysis output, using neutral report", zap.Error(err))
		return neutralReport("Automated analysis unavailable; unparsable judge output.")
	}

	scoringPrompt := fmt.Sprintf(`Job description:
%s

Resume excerpt:
%s

Retrieval relevance score: %.3f

Gap analysis:
missing skills: %s
strengths: %s
weaknesses: %s

Return JSON only.`,
		jobDescription, resumeExcerpt, hybridScore,
		strings.Join(gap.MissingSkills, ", "),
		strings.Join(gap.Strengths, ", "),
		strings.Join(gap.Weaknesses, ", "),
	)

	scoringResp, err := e.generator.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: reportSystemPrompt,
		UserPrompt:   scoringPrompt,
		Temperature:  0.2,
		MaxTokens:    500,
	})
	if err != nil {
		logger.Warn("Report scoring failed, using neutral report", zap.Error(err))
		return neutralReport("Automated analysis unavailable; judge call failed.")
	}

	var scoring reportScoring
	if err := json.Unmarshal(extractJSON(scoringResp.Content), &scoring); err != nil {
		logger.Warn("Unparsable report scoring output, using neutral report", zap.Error(err))
		return neutralReport("Automated analysis unavailable; unparsable judge output.")
	}

	report := CandidateAnalysisReport{
		FitCategory:   normalizeFitCategory(scoring.FitCategory),
		OverallScore:  clampInt(scoring.OverallScore, 0, 100),
		MissingSkills: emptyIfNil(gap.MissingSkills),
		Explanation:   scoring.Explanation,
		Strengths:     emptyIfNil(gap.Strengths),
		Weaknesses:    emptyIfNil(gap.Weaknesses),
	}
	return report
}

// extractJSON pulls the first JSON object or array out of model output
// that may be wrapped in markdown fences or surrounding prose.
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+3:]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}

	content = strings.TrimSpace(content)

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return []byte(content)
	}

	var end int
	if content[start] == '{' {
		end = strings.LastIndex(content, "}")
	} else {
		end = strings.LastIndex(content, "]")
	}
	if end <= start {
		return []byte(content[start:])
	}
	return []byte(content[start : end+1])
}

func normalizeFitCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "excellent":
		return "Excellent"
	case "good":
		return "Good"
	case "fair":
		return "Fair"
	case "poor":
		return "Poor"
	default:
		return neutralFitCategory
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
