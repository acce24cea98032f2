package stream

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// MarketWSURL is the market-data websocket endpoint.
const MarketWSURL = "wss://ws.broker.ru/trade-api-market-data-connector/api/v1/market-data/ws"

// MarketStream subscribes to orderbook/quote/trade/candle data for a fixed
// instrument list and persists whatever categories are enabled.
type MarketStream struct {
	tokens      domain.TokenSource
	store       domain.MarketStore
	instruments []domain.Instrument
	spec        domain.SubscriptionSpec
	log         zerolog.Logger
}

// NewMarketStream builds a MarketStream. spec.Instruments is ignored in
// favor of the instruments param so callers can resolve the live instrument
// list (static config or selected_assets) once at startup.
func NewMarketStream(tokens domain.TokenSource, store domain.MarketStore, instruments []domain.Instrument, spec domain.SubscriptionSpec, log zerolog.Logger) *MarketStream {
	return &MarketStream{
		tokens:      tokens,
		store:       store,
		instruments: instruments,
		spec:        spec,
		log:         log.With().Str("component", "market_stream").Logger(),
	}
}

// Run subscribes and dispatches messages until ctx is cancelled. It returns
// immediately, without connecting, if no instruments are configured.
func (s *MarketStream) Run(ctx context.Context) {
	if len(s.instruments) == 0 {
		s.log.Warn().Msg("no instruments configured; skipping market stream")
		return
	}
	runForever(ctx, s.log, MarketWSURL, s.tokens, s.subscribe, s.handle)
}

type instrumentRef struct {
	Ticker    string `json:"ticker"`
	ClassCode string `json:"classCode"`
}

func (s *MarketStream) instrumentRefs() []instrumentRef {
	refs := make([]instrumentRef, len(s.instruments))
	for i, inst := range s.instruments {
		refs[i] = instrumentRef{Ticker: inst.Ticker, ClassCode: inst.ClassCode}
	}
	return refs
}

func (s *MarketStream) subscribe(conn *websocket.Conn) error {
	refs := s.instrumentRefs()

	if s.spec.Orderbook {
		if err := conn.WriteJSON(map[string]interface{}{
			"subscribeType": 0, "dataType": 0, "depth": 20, "instruments": refs,
		}); err != nil {
			return err
		}
	}
	if s.spec.Candles {
		if err := conn.WriteJSON(map[string]interface{}{
			"subscribeType": 0, "dataType": 1, "timeFrame": s.spec.CandleTimeFrame, "instruments": refs,
		}); err != nil {
			return err
		}
	}
	if s.spec.LastTrades {
		if err := conn.WriteJSON(map[string]interface{}{
			"subscribeType": 0, "dataType": 2, "instruments": refs,
		}); err != nil {
			return err
		}
	}
	if s.spec.Quotes {
		if err := conn.WriteJSON(map[string]interface{}{
			"subscribeType": 0, "dataType": 3, "instruments": refs,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *MarketStream) handle(ctx context.Context, message []byte) error {
	var data map[string]interface{}
	// UseNumber so prices/volumes survive as json.Number into the store
	// layer instead of losing precision through a float64 round-trip.
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil
	}

	responseType, _ := data["responseType"].(string)
	switch {
	case responseType == "OrderBook" && s.spec.Orderbook:
		return s.store.InsertOrderBook(ctx, data)
	case responseType == "Quotes" && s.spec.Quotes:
		return s.store.InsertQuotes(ctx, data)
	case responseType == "LastTrades" && s.spec.LastTrades:
		return s.store.InsertLastTrade(ctx, data)
	case responseType == "CandleStick" && s.spec.Candles:
		return s.store.UpsertCandle(ctx, data)
	default:
		return nil
	}
}
