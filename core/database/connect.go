// Package database opens the postgres pool used by the session store and
// applies its embedded schema migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	readyTimeout   = 30 * time.Second
	readyInterval  = 2 * time.Second
)

// DSN renders the key/value connection string accepted by lib/pq. Values are
// single-quoted so passwords may contain spaces or quotes.
func DSN(cfg coreconfig.DatabaseConfig) string {
	pairs := []struct{ k, v string }{
		{"user", cfg.User},
		{"password", cfg.Password},
		{"host", cfg.Host},
		{"port", cfg.Port},
		{"dbname", cfg.Name},
		{"sslmode", cfg.SSLMode},
	}
	var b strings.Builder
	for _, p := range pairs {
		if p.v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.k)
		b.WriteString("='")
		b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(p.v))
		b.WriteByte('\'')
	}
	return b.String()
}

// URL renders the postgres:// form golang-migrate expects.
func URL(cfg coreconfig.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Connect opens the pool, sizes it from cfg and pings the server once.
func Connect(cfg coreconfig.DatabaseConfig) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", DSN(cfg))
	attrs := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("db", cfg.Name),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
			append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
		append(attrs, slog.String("status", "ok"), slog.Int("pool", cfg.MaxConnections))...)
	return db, nil
}

// waitReady pings dsn every readyInterval until the server answers or ctx
// ends. A container started next to postgres usually wins the race.
func waitReady(ctx context.Context, dsn string) error {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	tick := time.NewTicker(readyInterval)
	defer tick.Stop()
	for {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", err)
		case <-tick.C:
		}
	}
}
