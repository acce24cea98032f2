package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MarketStore implements domain.MarketStore against the market database pool.
type MarketStore struct {
	db *sql.DB
}

// NewMarketStore wraps an already-opened market pool.
func NewMarketStore(db *sql.DB) *MarketStore {
	return &MarketStore{db: db}
}

func (s *MarketStore) InsertOrderBook(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO order_book_snapshots
		  (ticker, class_code, ts, depth, bid_volume, ask_volume, bids, asks, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		stringField(data, "ticker"),
		stringField(data, "classCode"),
		parseTimestamp(stringField(data, "dateTime")),
		data["depth"],
		data["bidVolume"],
		data["askVolume"],
		mustJSONB(data["bids"]),
		mustJSONB(data["asks"]),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert orderbook: %w", err)
	}
	return nil
}

func (s *MarketStore) InsertQuotes(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes
		  (ticker, class_code, ts, bid, offer, last, open, close, high, low,
		   change, change_rate, currency, security_trading_status, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		stringField(data, "ticker"),
		stringField(data, "classCode"),
		parseTimestamp(stringField(data, "dateTime")),
		decimalField(data, "bid"),
		decimalField(data, "offer"),
		decimalField(data, "last"),
		decimalField(data, "open"),
		decimalField(data, "close"),
		decimalField(data, "high"),
		decimalField(data, "low"),
		decimalField(data, "change"),
		decimalField(data, "changeRate"),
		data["currency"],
		data["securityTradingStatus"],
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert quotes: %w", err)
	}
	return nil
}

func (s *MarketStore) InsertLastTrade(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_trades
		  (ticker, class_code, ts, side, price, quantity, volume, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		stringField(data, "ticker"),
		stringField(data, "classCode"),
		parseTimestamp(stringField(data, "dateTime")),
		data["side"],
		decimalField(data, "price"),
		decimalField(data, "quantity"),
		decimalField(data, "volume"),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert last trade: %w", err)
	}
	return nil
}

func (s *MarketStore) UpsertCandle(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candles
		  (ticker, class_code, time_frame, ts, open, high, low, close, volume, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (ticker, class_code, time_frame, ts)
		DO UPDATE SET open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
		              close=EXCLUDED.close, volume=EXCLUDED.volume, data=EXCLUDED.data`,
		stringField(data, "ticker"),
		stringField(data, "classCode"),
		stringField(data, "timeFrame"),
		parseTimestamp(stringField(data, "dateTime")),
		decimalField(data, "open"),
		decimalField(data, "high"),
		decimalField(data, "low"),
		decimalField(data, "close"),
		decimalField(data, "volume"),
		payload,
	)
	if err != nil {
		return fmt.Errorf("upsert candle: %w", err)
	}
	return nil
}

// mustJSONB marshals best-effort for nested fields already destined for a
// jsonb column; on failure it falls back to the JSON null literal so a
// single malformed nested field never aborts the whole insert.
func mustJSONB(v interface{}) string {
	s, err := toJSONB(v)
	if err != nil {
		return "null"
	}
	return s
}
