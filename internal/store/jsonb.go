package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// toJSONB marshals v for a jsonb column parameter. lib/pq has no native JSON
// type (unlike pgx), so the driver sends this as text and Postgres performs
// the implicit cast on insert.
func toJSONB(v interface{}) (string, error) {
	if v == nil {
		return "{}", nil
	}
	if m, ok := v.(map[string]interface{}); ok && m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal jsonb: %w", err)
	}
	return string(b), nil
}

// vectorLiteral renders a float64 slice as the "[v1,v2,...]" text format the
// embeddings table's vector column accepts, with 8 fractional digits per
// component to match the precision the backend models emit.
func vectorLiteral(vec []float64) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%.8f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
