package stream

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// MarginalWSURL is the margin-indicators websocket endpoint.
const MarginalWSURL = "wss://ws.broker.ru/trade-api-bff-marginal-indicators/api/v1/marginal-indicators/ws"

// MarginalStream persists whole-snapshot margin indicator pushes verbatim.
type MarginalStream struct {
	tokens domain.TokenSource
	store  domain.MarginalStore
	log    zerolog.Logger
}

// NewMarginalStream builds a MarginalStream.
func NewMarginalStream(tokens domain.TokenSource, store domain.MarginalStore, log zerolog.Logger) *MarginalStream {
	return &MarginalStream{tokens: tokens, store: store, log: log.With().Str("component", "marginal_stream").Logger()}
}

// Run dispatches margin indicator snapshots until ctx is cancelled.
func (s *MarginalStream) Run(ctx context.Context) {
	runForever(ctx, s.log, MarginalWSURL, s.tokens, nil, s.handle)
}

func (s *MarginalStream) handle(ctx context.Context, message []byte) error {
	var data map[string]interface{}
	if err := json.Unmarshal(message, &data); err != nil {
		return nil
	}
	return s.store.InsertMarginalSnapshot(ctx, data)
}
