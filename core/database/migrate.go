package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	"github.com/welgevonden/marketbot/core/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// migrateLog forwards golang-migrate's own progress lines at debug level.
type migrateLog struct{}

func (migrateLog) Printf(format string, v ...any) {
	logger.MIG.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("event", "migrate.progress"))
}

func (migrateLog) Verbose() bool { return logger.MIG.Enabled(context.Background(), slog.LevelDebug) }

// RunMigrations waits for postgres and applies every embedded up migration.
func RunMigrations(cfg coreconfig.DatabaseConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if err := waitReady(ctx, DSN(cfg)); err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}

	files := MigrationFiles()
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.resolve",
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, URL(cfg))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()
	m.Log = migrateLog{}

	from, _, _ := m.Version()
	start := time.Now()
	err = m.Up()
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.apply",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	to, _, _ := m.Version()
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", countApplied(files, uint64(from), uint64(to))),
		slog.Duration("duration", took),
	)
	return nil
}

// MigrationFiles lists the embedded up migrations in apply order.
func MigrationFiles() []string {
	ups, err := fs.Glob(migrationsFS, path.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return nil
	}
	for i, p := range ups {
		ups[i] = path.Base(p)
	}
	return ups
}

// countApplied counts files with versions in (from, to].
func countApplied(files []string, from, to uint64) int {
	n := 0
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			n++
		}
	}
	return n
}
