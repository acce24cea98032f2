package store

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// decimalField extracts a price/quantity-like field as decimal.Decimal
// instead of letting it pass through as a float64. Stream payloads are
// decoded with json.Decoder.UseNumber, so numeric literals arrive as
// json.Number here and never lose precision the way a float64 round-trip
// would for large account balances or fractional lot sizes.
func decimalField(data map[string]interface{}, key string) interface{} {
	switch v := data[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil
		}
		return d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return nil
	}
}
