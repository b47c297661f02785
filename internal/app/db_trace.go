package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/pgdsn"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const (
	maxTracedQueryLength = 512
	dbPingTimeout        = 5 * time.Second
)

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}

func databaseDSN(cfg config.Config) pgdsn.DSN {
	dsn := pgdsn.Parse(cfg.DBURL)
	if cfg.DBDisablePreparedBinary {
		dsn = dsn.WithoutPreparedBinary()
	}
	return dsn
}

// openDatabase opens a traced postgres handle and verifies it with a ping.
func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := databaseDSN(cfg)

	db, err := otelsqlx.Open("postgres", dsn.String(),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dsn.DatabaseName()),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

type dbHealthChecker struct {
	db *sqlx.DB
}

func (c dbHealthChecker) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
