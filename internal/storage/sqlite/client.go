// Package sqlite is the relational audit store: which resumes are
// indexed and which match requests ran. The ranking core never reads
// from it; a write failure here is the caller's decision to surface
// or swallow.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/storage/models"
	"github.com/talentmatch/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resumes (
		candidate_id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		source_type TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resumes_indexed ON resumes(indexed_at);

	CREATE TABLE IF NOT EXISTS match_requests (
		id TEXT PRIMARY KEY,
		job_description TEXT NOT NULL,
		top_k INTEGER NOT NULL,
		result_count INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_match_requests_created ON match_requests(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertResume(record *models.ResumeRecord) error {
	query := `
		INSERT INTO resumes (candidate_id, filename, source_type, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id) DO UPDATE SET
			filename = excluded.filename,
			source_type = excluded.source_type,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at
	`

	_, err := c.db.Exec(
		query,
		record.CandidateID,
		record.Filename,
		record.SourceType,
		record.ChunkCount,
		record.IndexedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert resume: %w", err)
	}

	logger.Debug("Resume recorded",
		zap.String("candidate_id", record.CandidateID),
		zap.Int("chunks", record.ChunkCount),
	)
	return nil
}

func (c *Client) DeleteResume(candidateID string) error {
	_, err := c.db.Exec(`DELETE FROM resumes WHERE candidate_id = ?`, candidateID)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	return nil
}

func (c *Client) GetResume(candidateID string) (*models.ResumeRecord, error) {
	query := `SELECT candidate_id, filename, source_type, chunk_count, indexed_at FROM resumes WHERE candidate_id = ?`

	var record models.ResumeRecord
	var indexedAt int64

	err := c.db.QueryRow(query, candidateID).Scan(
		&record.CandidateID,
		&record.Filename,
		&record.SourceType,
		&record.ChunkCount,
		&indexedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}

	record.IndexedAt = time.Unix(indexedAt, 0)
	return &record, nil
}

func (c *Client) ListResumes() ([]models.ResumeRecord, error) {
	query := `SELECT candidate_id, filename, source_type, chunk_count, indexed_at FROM resumes ORDER BY indexed_at DESC`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var records []models.ResumeRecord
	for rows.Next() {
		var r models.ResumeRecord
		var indexedAt int64

		if err := rows.Scan(&r.CandidateID, &r.Filename, &r.SourceType, &r.ChunkCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.IndexedAt = time.Unix(indexedAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) InsertMatchRequest(record *models.MatchRequestRecord) error {
	query := `
		INSERT INTO match_requests (id, job_description, top_k, result_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.JobDescription,
		record.TopK,
		record.ResultCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert match request: %w", err)
	}

	logger.Info("Match request recorded",
		zap.String("request_id", record.ID),
		zap.Int("top_k", record.TopK),
		zap.Int("results", record.ResultCount),
		zap.Int64("latency_ms", record.LatencyMS),
	)
	return nil
}

func (c *Client) GetMatchHistory(limit int) ([]models.MatchRequestRecord, error) {
	query := `
		SELECT id, job_description, top_k, result_count, latency_ms, created_at
		FROM match_requests
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}
	defer rows.Close()

	var records []models.MatchRequestRecord
	for rows.Next() {
		var r models.MatchRequestRecord
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.JobDescription, &r.TopK, &r.ResultCount, &r.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
