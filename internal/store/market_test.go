package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestInsertLastTrade_ExecutesInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO last_trades").WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewMarketStore(db)
	err = s.InsertLastTrade(context.Background(), map[string]interface{}{
		"ticker": "SBER", "classCode": "TQBR", "price": 250.5, "quantity": 10,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCandle_UsesOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO candles").WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewMarketStore(db)
	err = s.UpsertCandle(context.Background(), map[string]interface{}{
		"ticker": "SBER", "classCode": "TQBR", "timeFrame": "M1", "open": 250.0, "close": 251.0,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
