package domain

import "time"

// Instrument identifies a tradable security by ticker and venue/board code.
// Identity is the pair; both fields are expected non-empty once resolved.
type Instrument struct {
	Ticker    string
	ClassCode string
}

// SubscriptionSpec describes which market data categories the market stream
// should subscribe to, and for which instruments.
type SubscriptionSpec struct {
	Orderbook       bool
	Quotes          bool
	LastTrades      bool
	Candles         bool
	Instruments     []Instrument
	CandleTimeFrame string
}

// EmbeddingJobStatus is the lifecycle state of an embedding_queue row.
type EmbeddingJobStatus string

const (
	EmbeddingStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingStatusDone       EmbeddingJobStatus = "done"
	EmbeddingStatusError      EmbeddingJobStatus = "error"
)

// EmbeddingJob is a leased row from embedding_queue awaiting a vector.
type EmbeddingJob struct {
	ID         int64
	EntityType string
	EntityID   string
	Text       string
	Metadata   map[string]interface{}
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
