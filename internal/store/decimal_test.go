package store

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWithNumber(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&data))
	return data
}

func TestDecimalField_PreservesPrecisionFromJSONNumber(t *testing.T) {
	data := decodeWithNumber(t, `{"price": 123456789.123456789}`)

	got := decimalField(data, "price")

	d, ok := got.(decimal.Decimal)
	require.True(t, ok)
	assert.Equal(t, "123456789.123456789", d.String())
}

func TestDecimalField_AcceptsStringValue(t *testing.T) {
	data := map[string]interface{}{"price": "99.50"}

	got := decimalField(data, "price")

	d, ok := got.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.NewFromFloat(99.5).Equal(d))
}

func TestDecimalField_FallsBackToFloat64(t *testing.T) {
	data := map[string]interface{}{"price": 42.5}

	got := decimalField(data, "price")

	d, ok := got.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.NewFromFloat(42.5).Equal(d))
}

func TestDecimalField_ReturnsNilForMissingOrUnparseable(t *testing.T) {
	assert.Nil(t, decimalField(map[string]interface{}{}, "price"))

	data := decodeWithNumber(t, `{"price": "not-a-number"}`)
	assert.Nil(t, decimalField(data, "price"))
}
