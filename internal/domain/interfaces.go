package domain

import (
	"context"
	"time"
)

// TokenSource hands out a bearer token valid for at least the caller's
// remaining work; implementations own refresh and caching.
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// MarketStore persists market-stream events.
type MarketStore interface {
	InsertOrderBook(ctx context.Context, data map[string]interface{}) error
	InsertQuotes(ctx context.Context, data map[string]interface{}) error
	InsertLastTrade(ctx context.Context, data map[string]interface{}) error
	UpsertCandle(ctx context.Context, data map[string]interface{}) error
}

// PortfolioStore persists holdings snapshots from the portfolio stream.
type PortfolioStore interface {
	InsertHoldingsSnapshot(ctx context.Context, items []interface{}) error
	UpsertHoldingsCurrent(ctx context.Context, items []interface{}) error
}

// OrdersStore persists order lifecycle events.
type OrdersStore interface {
	InsertOrderEvent(ctx context.Context, data map[string]interface{}) error
}

// LimitsStore persists account trading-limit snapshots.
type LimitsStore interface {
	InsertLimitsSnapshot(ctx context.Context, data map[string]interface{}) error
}

// MarginalStore persists margin indicator snapshots.
type MarginalStore interface {
	InsertMarginalSnapshot(ctx context.Context, data map[string]interface{}) error
}

// InstrumentSource resolves the instruments a worker should subscribe to.
type InstrumentSource interface {
	SelectedAssets(ctx context.Context) ([]Instrument, error)
}

// EmbeddingQueue is the DB-backed lease/lock contract the pump and the
// janitor coordinate through. FetchBatch is the sole exclusion mechanism:
// no caller may replace it with a plain SELECT + UPDATE.
type EmbeddingQueue interface {
	FetchBatch(ctx context.Context, limit int) ([]EmbeddingJob, error)
	StoreEmbedding(ctx context.Context, queueID int64, entityType, entityID string, vector []float64, metadata map[string]interface{}) error
	MarkFailed(ctx context.Context, queueID int64, reason string) error
	RependStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// EmbeddingBackend converts text to a vector embedding.
type EmbeddingBackend interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
