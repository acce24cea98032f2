package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// Janitor periodically re-pends embedding_queue rows stuck in "processing"
// after a pump crashed mid-lease, so work is never silently stranded.
type Janitor struct {
	queue    domain.EmbeddingQueue
	staleFor time.Duration
	log      zerolog.Logger
	cron     *cron.Cron
}

// NewJanitor builds a Janitor. staleFor is how long a row may sit in
// "processing" before it's considered abandoned.
func NewJanitor(queue domain.EmbeddingQueue, staleFor time.Duration, log zerolog.Logger) *Janitor {
	return &Janitor{
		queue:    queue,
		staleFor: staleFor,
		log:      log.With().Str("component", "embedding_janitor").Logger(),
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep at the given interval and starts the cron
// scheduler. It runs in the background; call Stop to shut it down.
func (j *Janitor) Start(ctx context.Context, every time.Duration) error {
	schedule := fmt.Sprintf("@every %s", every.String())
	_, err := j.cron.AddFunc(schedule, func() {
		j.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	j.cron.Start()
	j.log.Info().Str("schedule", schedule).Dur("stale_after", j.staleFor).Msg("janitor started")
	return nil
}

// Stop drains in-flight sweeps and stops the scheduler.
func (j *Janitor) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.log.Info().Msg("janitor stopped")
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.queue.RependStale(ctx, j.staleFor)
	if err != nil {
		j.log.Error().Err(err).Msg("repend stale rows failed")
		return
	}
	if n > 0 {
		j.log.Warn().Int64("rows", n).Msg("repended stale processing rows")
	}
}
