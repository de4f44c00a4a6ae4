// Package milvus backs the vector half of the dual index with a Milvus
// collection. Milvus has no rewrite-in-place primitive for a whole
// corpus, so ReplaceAll drops and recreates the collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/pkg/logger"
)

const allChunksExpr = `chunk_id != ""`

type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewStore(endpoint, collectionName string, vectorDim int) (*Store, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("create milvus client: %w", err)
	}

	logger.Info("Milvus store initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Store{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ready(ctx context.Context) (bool, error) {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	return has, nil
}

func (s *Store) ReplaceAll(ctx context.Context, chunks []search.StoredChunk) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if has {
		if err := s.client.DropCollection(ctx, s.collectionName); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	if err := s.createCollection(ctx); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	contents := make([]string, len(chunks))
	candidateIDs := make([]string, len(chunks))
	metadatas := make([]string, len(chunks))

	for i, sc := range chunks {
		chunkIDs[i] = sc.Chunk.ID
		embeddings[i] = sc.Embedding
		contents[i] = sc.Chunk.Content
		candidateIDs[i] = sc.Chunk.Meta.CandidateID
		meta, err := json.Marshal(sc.Chunk.Meta)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		metadatas[i] = string(meta)
	}

	_, err = s.client.Insert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", s.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("candidate_id", candidateIDs),
		entity.NewColumnVarChar("metadata", metadatas),
	)
	if err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if err := s.client.Flush(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("flush collection: %w", err)
	}

	logger.Info("Vector store rewritten",
		zap.String("collection", s.collectionName),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

func (s *Store) createCollection(ctx context.Context) error {
	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Sanitized resume chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorDim),
				},
			},
			{
				Name:       "content",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "4096"},
			},
			{
				Name:       "candidate_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:       "metadata",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
		},
	}

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	idx, _ := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err := s.client.CreateIndex(ctx, s.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	if err := s.client.LoadCollection(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// FetchAll reads the full persisted chunk set back. Embeddings are not
// returned; callers re-embed when rewriting. The full scan is the price
// of the rewrite-whole indexing pattern and is acceptable at resume-
// corpus scale.
func (s *Store) FetchAll(ctx context.Context) ([]search.StoredChunk, error) {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !has {
		return nil, nil
	}

	rs, err := s.client.Query(
		ctx,
		s.collectionName,
		nil,
		allChunksExpr,
		[]string{"chunk_id", "content", "metadata"},
	)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	idCol := rs.GetColumn("chunk_id")
	contentCol := rs.GetColumn("content")
	metaCol := rs.GetColumn("metadata")
	if idCol == nil {
		return nil, nil
	}

	out := make([]search.StoredChunk, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		id, _ := idCol.Get(i)
		content, _ := contentCol.Get(i)
		rawMeta, _ := metaCol.Get(i)

		var meta document.Metadata
		if str, ok := rawMeta.(string); ok && str != "" {
			if err := json.Unmarshal([]byte(str), &meta); err != nil {
				logger.Warn("Unparsable chunk metadata", zap.Error(err))
			}
		}

		out = append(out, search.StoredChunk{
			Chunk: document.Chunk{
				ID:      id.(string),
				Content: content.(string),
				Meta:    meta,
			},
		})
	}
	return out, nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]document.Chunk, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		"",
		[]string{"chunk_id", "content", "metadata"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.L2,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var out []document.Chunk
	for _, sr := range searchResult {
		idCol := sr.Fields.GetColumn("chunk_id")
		contentCol := sr.Fields.GetColumn("content")
		metaCol := sr.Fields.GetColumn("metadata")

		for i := 0; i < sr.ResultCount; i++ {
			id, _ := idCol.Get(i)
			content, _ := contentCol.Get(i)
			rawMeta, _ := metaCol.Get(i)

			var meta document.Metadata
			if str, ok := rawMeta.(string); ok && str != "" {
				if err := json.Unmarshal([]byte(str), &meta); err != nil {
					logger.Warn("Unparsable chunk metadata", zap.Error(err))
				}
			}

			out = append(out, document.Chunk{
				ID:      id.(string),
				Content: content.(string),
				Meta:    meta,
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", k),
		zap.Int("results", len(out)),
	)
	return out, nil
}
