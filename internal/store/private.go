package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// PrivateStore implements domain.PortfolioStore, domain.OrdersStore,
// domain.LimitsStore, domain.MarginalStore and domain.InstrumentSource
// against the private account database pool.
type PrivateStore struct {
	db *sql.DB
}

// NewPrivateStore wraps an already-opened private pool.
func NewPrivateStore(db *sql.DB) *PrivateStore {
	return &PrivateStore{db: db}
}

func (s *PrivateStore) InsertHoldingsSnapshot(ctx context.Context, items []interface{}) error {
	payload, err := toJSONB(items)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO holdings_snapshots (ts, data) VALUES ($1,$2)`,
		time.Now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("insert holdings snapshot: %w", err)
	}
	return nil
}

func (s *PrivateStore) UpsertHoldingsCurrent(ctx context.Context, items []interface{}) error {
	now := time.Now().UTC()
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		payload, err := toJSONB(item)
		if err != nil {
			return err
		}
		classCode := firstNonEmpty(
			stringField(item, "board"),
			stringField(item, "classCode"),
			stringField(item, "class_code"),
		)
		avgPrice := item["balancePrice"]
		if avgPrice == nil {
			avgPrice = item["averagePrice"]
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO holdings_current
			  (account, ticker, class_code, quantity, avg_price, currency, data, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (account, ticker, class_code)
			DO UPDATE SET quantity=EXCLUDED.quantity, avg_price=EXCLUDED.avg_price,
			              currency=EXCLUDED.currency, data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
			item["account"],
			stringField(item, "ticker"),
			classCode,
			item["quantity"],
			avgPrice,
			item["currency"],
			payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert holdings current: %w", err)
		}
	}
	return nil
}

func (s *PrivateStore) InsertOrderEvent(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	block, _ := data["data"].(map[string]interface{})
	if block == nil {
		block = map[string]interface{}{}
	}

	ts := firstNonEmpty(stringField(block, "transactionTime"), stringField(block, "dateTime"))
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO order_events
		  (ts, original_client_order_id, client_order_id, order_status, execution_type,
		   ticker, class_code, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		parseTimestamp(ts),
		data["originalClientOrderId"],
		data["clientOrderId"],
		block["orderStatus"],
		block["executionType"],
		block["ticker"],
		block["classCode"],
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func (s *PrivateStore) InsertLimitsSnapshot(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO limits_snapshots (ts, data) VALUES ($1,$2)`,
		time.Now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("insert limits snapshot: %w", err)
	}
	return nil
}

func (s *PrivateStore) InsertMarginalSnapshot(ctx context.Context, data map[string]interface{}) error {
	payload, err := toJSONB(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO marginal_indicators_snapshots (ts, data) VALUES ($1,$2)`,
		time.Now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("insert marginal snapshot: %w", err)
	}
	return nil
}

// SelectedAssets implements domain.InstrumentSource. selected_assets lives
// in the private schema alongside the other account tables.
func (s *PrivateStore) SelectedAssets(ctx context.Context) ([]domain.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, class_code FROM selected_assets WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("select selected_assets: %w", err)
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		var inst domain.Instrument
		if err := rows.Scan(&inst.Ticker, &inst.ClassCode); err != nil {
			return nil, fmt.Errorf("scan selected_assets: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
