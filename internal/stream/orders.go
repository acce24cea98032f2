package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// OrdersExecutionWSURL and OrdersTransactionWSURL are the two order-event
// feeds; both are run concurrently by OrdersStream.
const (
	OrdersExecutionWSURL   = "wss://ws.broker.ru/trade-api-bff-operations/api/v1/orders/execution/ws"
	OrdersTransactionWSURL = "wss://ws.broker.ru/trade-api-bff-operations/api/v1/orders/transaction/ws"
)

// OrdersStream runs the execution and transaction order-event feeds side by
// side, both writing into the same store.
type OrdersStream struct {
	tokens domain.TokenSource
	store  domain.OrdersStore
	log    zerolog.Logger
}

// NewOrdersStream builds an OrdersStream.
func NewOrdersStream(tokens domain.TokenSource, store domain.OrdersStore, log zerolog.Logger) *OrdersStream {
	return &OrdersStream{tokens: tokens, store: store, log: log.With().Str("component", "orders_stream").Logger()}
}

// Run blocks until ctx is cancelled, running both sub-streams concurrently.
func (s *OrdersStream) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runForever(ctx, s.log.With().Str("stream", "execution").Logger(), OrdersExecutionWSURL, s.tokens, nil, s.handle)
	}()
	go func() {
		defer wg.Done()
		runForever(ctx, s.log.With().Str("stream", "transaction").Logger(), OrdersTransactionWSURL, s.tokens, nil, s.handle)
	}()
	wg.Wait()
}

func (s *OrdersStream) handle(ctx context.Context, message []byte) error {
	var data map[string]interface{}
	if err := json.Unmarshal(message, &data); err != nil {
		return nil
	}
	return s.store.InsertOrderEvent(ctx, data)
}
