package stream

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// PortfolioWSURL is the holdings/portfolio websocket endpoint.
const PortfolioWSURL = "wss://ws.broker.ru/trade-api-bff-portfolio/api/v1/portfolio/ws"

// PortfolioStream has no subscribe handshake: the server pushes full
// holdings snapshots as JSON arrays.
type PortfolioStream struct {
	tokens domain.TokenSource
	store  domain.PortfolioStore
	log    zerolog.Logger
}

// NewPortfolioStream builds a PortfolioStream.
func NewPortfolioStream(tokens domain.TokenSource, store domain.PortfolioStore, log zerolog.Logger) *PortfolioStream {
	return &PortfolioStream{tokens: tokens, store: store, log: log.With().Str("component", "portfolio_stream").Logger()}
}

// Run dispatches holdings snapshots until ctx is cancelled.
func (s *PortfolioStream) Run(ctx context.Context) {
	runForever(ctx, s.log, PortfolioWSURL, s.tokens, nil, s.handle)
}

func (s *PortfolioStream) handle(ctx context.Context, message []byte) error {
	var items []interface{}
	if err := json.Unmarshal(message, &items); err != nil {
		// Not an array; the server also sends ack/error objects we ignore.
		return nil
	}
	if err := s.store.InsertHoldingsSnapshot(ctx, items); err != nil {
		return err
	}
	return s.store.UpsertHoldingsCurrent(ctx, items)
}
