// Package models holds the persisted row types for the audit store.
package models

import "time"

// ResumeRecord tracks one indexed resume per candidate. Re-indexing
// the same candidate updates the row in place.
type ResumeRecord struct {
	CandidateID string    `json:"candidate_id"`
	Filename    string    `json:"filename"`
	SourceType  string    `json:"source_type"`
	ChunkCount  int       `json:"chunk_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// MatchRequestRecord is the audit trail for one candidate search.
type MatchRequestRecord struct {
	ID             string    `json:"id"`
	JobDescription string    `json:"job_description"`
	TopK           int       `json:"top_k"`
	ResultCount    int       `json:"result_count"`
	LatencyMS      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
