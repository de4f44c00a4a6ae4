// Package convex posts finished match results to a Convex deployment.
// Writes are best effort: a bounded retry, then the failure is logged
// and swallowed so a persistence outage never fails a search response.
package convex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/matching"
	"github.com/talentmatch/backend/pkg/logger"
	"github.com/talentmatch/backend/pkg/retry"
)

const mutationPath = "/api/mutation"

type Client struct {
	deploymentURL string
	httpClient    *http.Client
	retryConfig   retry.Config
}

func NewClient(deploymentURL string) *Client {
	return &Client{
		deploymentURL: deploymentURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

type mutationRequest struct {
	Path string         `json:"path"`
	Args map[string]any `json:"args"`
}

// StoreMatches writes one mutation per candidate result. Errors are
// logged, never returned.
func (c *Client) StoreMatches(ctx context.Context, jobDescription string, results []matching.CandidateMatchResult) {
	for _, result := range results {
		if err := c.storeOne(ctx, jobDescription, result); err != nil {
			logger.Warn("Convex persistence write failed",
				zap.String("candidate_id", result.CandidateID),
				zap.Error(err),
			)
		}
	}
}

func (c *Client) storeOne(ctx context.Context, jobDescription string, result matching.CandidateMatchResult) error {
	args := map[string]any{
		"candidateId":    result.CandidateID,
		"jobDescription": jobDescription,
		"scores": map[string]any{
			"vector_score": result.Scores.VectorScore,
			"bm25_score":   result.Scores.BM25Score,
			"hybrid_score": result.Scores.HybridScore,
		},
	}
	if result.Report != nil {
		args["report"] = map[string]any{
			"fit_category":   result.Report.FitCategory,
			"overall_score":  result.Report.OverallScore,
			"missing_skills": result.Report.MissingSkills,
			"explanation":    result.Report.Explanation,
			"strengths":      result.Report.Strengths,
			"weaknesses":     result.Report.Weaknesses,
		}
	}

	body, err := json.Marshal(mutationRequest{
		Path: "resumeEvaluations:createOrUpdate",
		Args: args,
	})
	if err != nil {
		return fmt.Errorf("marshal mutation: %w", err)
	}

	return retry.Do(ctx, c.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.deploymentURL+mutationPath, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("post mutation: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("mutation rejected: status %d: %s", resp.StatusCode, payload)
		}
		return nil
	})
}
