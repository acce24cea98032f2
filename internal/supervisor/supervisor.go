// Package supervisor wires the worker's components together and runs them
// until a shutdown signal arrives.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/config"
	"github.com/bcsmcp/ingestion-worker/internal/embedding"
	"github.com/bcsmcp/ingestion-worker/internal/health"
	"github.com/bcsmcp/ingestion-worker/internal/stream"
)

// Streams bundles the optional stream workers the supervisor may run,
// already wired to their stores; nil entries are skipped.
type Streams struct {
	Market    *stream.MarketStream
	Portfolio *stream.PortfolioStream
	Orders    *stream.OrdersStream
	Limits    *stream.LimitsStream
	Marginal  *stream.MarginalStream
}

// Supervisor owns the lifetime of every background worker in the process.
type Supervisor struct {
	cfg     *config.Config
	log     zerolog.Logger
	streams Streams
	pump    *embedding.Pump
	janitor *embedding.Janitor
	health  *health.Server
}

// New builds a Supervisor from its already-constructed components.
func New(cfg *config.Config, log zerolog.Logger, streams Streams, pump *embedding.Pump, janitor *embedding.Janitor, healthSrv *health.Server) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		log:     log.With().Str("component", "supervisor").Logger(),
		streams: streams,
		pump:    pump,
		janitor: janitor,
		health:  healthSrv,
	}
}

// Run starts every configured component and blocks until ctx is cancelled,
// then waits for all of them to exit before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	started := 0

	runStream := func(name string, run func(context.Context)) {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.log.Info().Str("worker", name).Msg("starting stream worker")
			run(ctx)
			s.log.Info().Str("worker", name).Msg("stream worker stopped")
		}()
	}

	if s.streams.Market != nil {
		runStream("market", s.streams.Market.Run)
	}
	if s.streams.Portfolio != nil {
		runStream("portfolio", s.streams.Portfolio.Run)
	}
	if s.streams.Orders != nil {
		runStream("orders", s.streams.Orders.Run)
	}
	if s.streams.Limits != nil {
		runStream("limits", s.streams.Limits.Run)
	}
	if s.streams.Marginal != nil {
		runStream("marginal", s.streams.Marginal.Run)
	}

	if s.pump != nil {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.pump.Run(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("embedding pump exited with error")
			}
		}()
	}

	if s.janitor != nil {
		if err := s.janitor.Start(ctx, s.cfg.JanitorInterval); err != nil {
			return err
		}
		defer s.janitor.Stop()
	}

	if s.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.health.ListenAndServe(); err != nil {
				s.log.Error().Err(err).Msg("health server exited with error")
			}
		}()
	}

	if started == 0 {
		s.log.Warn().Msg("no stream workers or pump configured; idling")
	}

	<-ctx.Done()
	s.log.Info().Msg("shutdown signal received, stopping components")

	if s.health != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.health.Shutdown(shutdownCtx)
	}

	wg.Wait()
	return nil
}
