// Package database opens the Postgres write store and applies the embedded
// schema migrations of each service.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Options struct {
	URL              string
	MaxOpenConns     int
	ConnectRetries   int
	StatementTimeout time.Duration
}

// Connect opens the pool and pings it, retrying with exponential backoff
// while the database comes up.
func Connect(ctx context.Context, opts Options, log *zap.Logger) (*sql.DB, error) {
	dsn, err := withStatementTimeout(opts.URL, opts.StatementTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(15 * time.Minute)

	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.ConnectRetries {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres after %d attempts: %w", attempt+1, err)
		}
		log.Warn("postgres not ready, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// withStatementTimeout adds statement_timeout as a runtime parameter, which
// lib/pq forwards to the server on connect.
func withStatementTimeout(dsn string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	q := u.Query()
	if q.Get("statement_timeout") == "" {
		q.Set("statement_timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
