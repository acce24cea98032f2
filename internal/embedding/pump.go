package embedding

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

const (
	batchSize = 10
	idleSleep = 2 * time.Second
)

// Pump leases batches off the embedding queue, runs them through a backend,
// and writes the resulting vectors back. It runs forever until ctx is
// cancelled.
type Pump struct {
	queue   domain.EmbeddingQueue
	backend domain.EmbeddingBackend
	log     zerolog.Logger
}

// NewPump builds a Pump.
func NewPump(queue domain.EmbeddingQueue, backend domain.EmbeddingBackend, log zerolog.Logger) *Pump {
	return &Pump{queue: queue, backend: backend, log: log}
}

// Run leases and processes batches until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) error {
	p.log.Info().Msg("embedding pump started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := p.queue.FetchBatch(ctx, batchSize)
		if err != nil {
			p.log.Error().Err(err).Msg("fetch embedding batch failed")
			if !sleepOrDone(ctx, idleSleep) {
				return ctx.Err()
			}
			continue
		}

		if len(batch) == 0 {
			if !sleepOrDone(ctx, idleSleep) {
				return ctx.Err()
			}
			continue
		}

		for _, job := range batch {
			p.processOne(ctx, job)
		}
	}
}

func (p *Pump) processOne(ctx context.Context, job domain.EmbeddingJob) {
	vec, err := p.backend.Embed(ctx, job.Text)
	if err != nil {
		p.log.Error().Err(err).Int64("queue_id", job.ID).Str("entity_type", job.EntityType).Msg("embedding failed")
		if markErr := p.queue.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			p.log.Error().Err(markErr).Int64("queue_id", job.ID).Msg("mark embedding failed error")
		}
		return
	}
	if len(vec) == 0 {
		p.log.Error().Int64("queue_id", job.ID).Msg("backend returned empty embedding")
		if markErr := p.queue.MarkFailed(ctx, job.ID, "empty embedding"); markErr != nil {
			p.log.Error().Err(markErr).Int64("queue_id", job.ID).Msg("mark embedding failed error")
		}
		return
	}

	if err := p.queue.StoreEmbedding(ctx, job.ID, job.EntityType, job.EntityID, vec, job.Metadata); err != nil {
		p.log.Error().Err(err).Int64("queue_id", job.ID).Msg("store embedding failed")
		return
	}
	p.log.Debug().Int64("queue_id", job.ID).Int("size", len(vec)).Msg("embedding stored")
}

// sleepOrDone waits d unless ctx is cancelled first, returning false in that
// case so the caller can exit its loop instead of sleeping pointlessly.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
