package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// EmbeddingStore implements domain.EmbeddingQueue against the private pool's
// embedding_queue / embeddings tables.
type EmbeddingStore struct {
	db *sql.DB
}

// NewEmbeddingStore wraps an already-opened private pool.
func NewEmbeddingStore(db *sql.DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

// FetchBatch leases up to limit pending rows by flipping them to
// "processing" in the same statement that selects them, so two pump
// instances can never lease the same row.
func (s *EmbeddingStore) FetchBatch(ctx context.Context, limit int) ([]domain.EmbeddingJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE embedding_queue
		SET status = 'processing', updated_at = now()
		WHERE id IN (
		  SELECT id FROM embedding_queue
		  WHERE status = 'pending'
		  ORDER BY created_at ASC
		  LIMIT $1
		  FOR UPDATE SKIP LOCKED
		)
		RETURNING id, entity_type, entity_id, text, metadata`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch embedding batch: %w", err)
	}
	defer rows.Close()

	var out []domain.EmbeddingJob
	for rows.Next() {
		var job domain.EmbeddingJob
		var metadataRaw []byte
		if err := rows.Scan(&job.ID, &job.EntityType, &job.EntityID, &job.Text, &metadataRaw); err != nil {
			return nil, fmt.Errorf("scan embedding job: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &job.Metadata); err != nil {
				return nil, fmt.Errorf("decode embedding metadata: %w", err)
			}
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// StoreEmbedding writes the resulting vector and marks the queue row done.
func (s *EmbeddingStore) StoreEmbedding(ctx context.Context, queueID int64, entityType, entityID string, vector []float64, metadata map[string]interface{}) error {
	payload, err := toJSONB(metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store embedding tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO embeddings (entity_type, entity_id, embedding, metadata)
		VALUES ($1,$2,$3,$4)`,
		entityType, entityID, vectorLiteral(vector), payload,
	); err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE embedding_queue SET status='done', updated_at=now() WHERE id=$1`, queueID,
	); err != nil {
		return fmt.Errorf("mark embedding done: %w", err)
	}

	return tx.Commit()
}

// MarkFailed records a failure reason on the queue row without losing its
// existing metadata.
func (s *EmbeddingStore) MarkFailed(ctx context.Context, queueID int64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE embedding_queue
		SET status='error', updated_at=now(),
		    metadata = jsonb_set(coalesce(metadata,'{}'::jsonb), '{error}', to_jsonb($2::text), true)
		WHERE id=$1`,
		queueID, reason,
	)
	if err != nil {
		return fmt.Errorf("mark embedding failed: %w", err)
	}
	return nil
}

// RependStale moves rows stuck in "processing" longer than olderThan back to
// "pending" so a crashed pump never strands work.
func (s *EmbeddingStore) RependStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE embedding_queue
		SET status='pending', updated_at=now()
		WHERE status='processing' AND updated_at < $1`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("repend stale embedding rows: %w", err)
	}
	return res.RowsAffected()
}
