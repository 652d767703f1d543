package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/welgevonden/marketbot/core/config"
	coredatabase "github.com/welgevonden/marketbot/core/database"
	"github.com/welgevonden/marketbot/core/logger"
)

const redisPingTimeout = 5 * time.Second

// Options control the bootstrap pipeline. Nil funcs fall back to the real
// implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate      func(coreconfig.DatabaseConfig) error
	ConnectRedis func(coreconfig.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// Only the handle matching the session driver is set.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases whichever handles were opened.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.DB != nil {
		err = r.DB.Close()
	}
	if r.Redis != nil {
		if cerr := r.Redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Run initializes the logger and the backing service of the configured
// session driver. Postgres is migrated before use; memory needs nothing.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	switch cfg.Session.Driver {
	case coreconfig.SessionDriverPostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	case coreconfig.SessionDriverRedis:
		connect := opts.ConnectRedis
		if connect == nil {
			connect = ConnectRedis
		}
		client, err := connect(cfg.Session.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}
	return res, nil
}

// ConnectRedis opens a client and pings it once.
func ConnectRedis(cfg coreconfig.RedisConfig) (*redis.Client, error) {
	start := time.Now()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	logger.LogEvent(ctx, logger.Session, slog.LevelInfo, "redis.connect",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}
