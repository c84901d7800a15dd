package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/sources"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

// insertChunkSize bounds the rows written per transaction.
const insertChunkSize = 100

// maxEmbedWorkers bounds concurrent embedding requests, the AI client's
// own semaphore throttles further.
const maxEmbedWorkers = 8

// ContentDBStore implements store.ContentStore on PostgreSQL with
// pgvector. Documents are embedded on insert and searched by cosine
// distance within their retrieval batch.
type ContentDBStore struct {
	conn     pgxIConn
	aiClient ai.Client
}

// NewContentDBStore creates a content store. The AI client generates the
// embeddings for inserted documents and search queries.
func NewContentDBStore(conn pgxIConn, aiClient ai.Client) *ContentDBStore {
	return &ContentDBStore{
		conn:     conn,
		aiClient: aiClient,
	}
}

func (s *ContentDBStore) InsertDocuments(ctx context.Context, batchID uuid.UUID, docs []sources.Document) error {
	if len(docs) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(docs))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxEmbedWorkers)
	for i, doc := range docs {
		eg.Go(func() error {
			embedding, err := s.aiClient.GenerateEmbedding(ectx, []byte(doc.Content))
			if err != nil {
				return fmt.Errorf("failed to embed document %q: %w", doc.Title, err)
			}
			embeddings[i] = embedding
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for start := 0; start < len(docs); start += insertChunkSize {
		end := min(start+insertChunkSize, len(docs))
		if err := s.insertChunk(ctx, batchID, docs[start:end], embeddings[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContentDBStore) insertChunk(
	ctx context.Context,
	batchID uuid.UUID,
	docs []sources.Document,
	embeddings [][]float32,
) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO documents (
				batch_uuid, source, chunk_type, title, url, author,
				published_at, content, full_text, metadata, embedding
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			batchID,
			string(doc.Source),
			string(doc.ChunkType),
			util.SanitizePostgresText(doc.Title),
			doc.URL,
			util.SanitizePostgresText(doc.Author),
			doc.PublishedAt,
			util.SanitizePostgresText(doc.Content),
			doc.FullText,
			metadata,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *ContentDBStore) SearchSimilar(
	ctx context.Context,
	batchID uuid.UUID,
	query string,
	limit int,
) ([]sources.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	embedding, err := s.aiClient.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT source, chunk_type, title, url, author, published_at,
		       content, full_text, metadata
		FROM documents
		WHERE batch_uuid = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, batchID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var docs []sources.Document
	for rows.Next() {
		var (
			doc      sources.Document
			source   string
			chunk    string
			metadata []byte
		)
		if err := rows.Scan(
			&source, &chunk, &doc.Title, &doc.URL, &doc.Author,
			&doc.PublishedAt, &doc.Content, &doc.FullText, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc.Source = sources.Kind(source)
		doc.ChunkType = sources.ChunkType(chunk)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *ContentDBStore) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	_, err := s.conn.Exec(ctx, `
		DELETE FROM documents WHERE batch_uuid = $1
	`, batchID)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
