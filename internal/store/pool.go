// Package store is the Postgres gateway: two connection pools (market data,
// private account data) and the query methods the stream workers and the
// embedding pump call into.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig describes how to reach one logical Postgres database.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c PoolConfig) connectString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// OpenPool opens and pings a *sql.DB, tuned the same way across both the
// market and private pools.
func OpenPool(cfg PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.connectString())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBName, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBName, err)
	}
	return db, nil
}
