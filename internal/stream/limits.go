package stream

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// LimitsWSURL is the account trading-limits websocket endpoint.
const LimitsWSURL = "wss://ws.broker.ru/trade-api-bff-limit/api/v1/limits/ws"

// LimitsStream persists whole-snapshot limit pushes verbatim.
type LimitsStream struct {
	tokens domain.TokenSource
	store  domain.LimitsStore
	log    zerolog.Logger
}

// NewLimitsStream builds a LimitsStream.
func NewLimitsStream(tokens domain.TokenSource, store domain.LimitsStore, log zerolog.Logger) *LimitsStream {
	return &LimitsStream{tokens: tokens, store: store, log: log.With().Str("component", "limits_stream").Logger()}
}

// Run dispatches limit snapshots until ctx is cancelled.
func (s *LimitsStream) Run(ctx context.Context) {
	runForever(ctx, s.log, LimitsWSURL, s.tokens, nil, s.handle)
}

func (s *LimitsStream) handle(ctx context.Context, message []byte) error {
	var data map[string]interface{}
	if err := json.Unmarshal(message, &data); err != nil {
		return nil
	}
	return s.store.InsertLimitsSnapshot(ctx, data)
}
