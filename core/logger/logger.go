// Package logger provides the process-wide structured slog logger, its
// component loggers and the context helpers that stamp every line with the
// update being served.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/welgevonden/marketbot/core/buildinfo"
	coreconfig "github.com/welgevonden/marketbot/core/config"
)

var (
	mu          sync.Mutex
	initialized bool
	closed      bool
	out         *sink
	files       []io.Closer

	level slog.LevelVar
	debug = newSampler(1, 50)
	trace atomic.Bool

	// L is the base logger. It discards output until InitLogger runs so that
	// packages and tests can log unconditionally.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))

	// DB logs database connection events.
	DB *slog.Logger
	// TG logs Telegram runtime events.
	TG *slog.Logger
	// MIG logs schema migrations.
	MIG *slog.Logger
	// TWire logs Telegram HTTP traffic.
	TWire *slog.Logger
	// Session logs session store activity.
	Session *slog.Logger
	// Dialogue logs dialogue transitions.
	Dialogue *slog.Logger
	// Listing logs listing backend calls.
	Listing *slog.Logger
)

func init() {
	bindComponents()
}

func bindComponents() {
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
	Session = Component("session")
	Dialogue = Component("dialogue")
	Listing = Component("listing")
}

// InitLogger installs the structured logger described by cfg.Logging.
// Calls after the first are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return nil
	}

	var lc coreconfig.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	level.Set(parseLevel(lc.Level))
	debug.set(parseSample(lc.DebugSample))
	trace.Store(truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE")))

	writers := []io.Writer{os.Stdout}
	if f := openLogFile(lc.Dir, lc.BotFile); f != nil {
		writers = append(writers, f)
		files = append(files, f)
	}
	out = newSink(writers, 0)

	L = slog.New(newHandler(&level, out, parseFormat(lc), parseOrder(lc.KeysOrder)))
	slog.SetDefault(L)
	bindComponents()
	initialized = true

	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
		slog.String("profile", profile(lc)),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("mode", cfg.Telegram.RunMode),
			slog.String("session_driver", cfg.Session.Driver),
		)
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
	return nil
}

// Shutdown flushes queued lines and closes the log file. It runs once.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Flush(), out.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// Component returns L tagged with component=name.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes attrs under the given event name. A nil logger resolves
// through FromContext.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug gates per-update debug detail. TRACE=1 lets everything
// through.
func ShouldSampleDebug() bool {
	return trace.Load() || debug.allow()
}

// sampler lets keep of every n calls through. n == 0 disables sampling.
type sampler struct {
	keep, every atomic.Int64
	calls       atomic.Uint64
}

func newSampler(keep, every int) *sampler {
	s := &sampler{}
	s.set(keep, every)
	return s
}

func (s *sampler) set(keep, every int) {
	if keep <= 0 || every <= 0 {
		keep, every = 0, 0
	}
	if keep > every {
		keep = every
	}
	s.keep.Store(int64(keep))
	s.every.Store(int64(every))
}

func (s *sampler) allow() bool {
	every := s.every.Load()
	if every == 0 {
		return true
	}
	n := (s.calls.Add(1) - 1) % uint64(every)
	return int64(n) < s.keep.Load()
}

// parseSample reads "k/n" or "n" (meaning 1/n). "off", "all" and "0"
// disable sampling; anything unparsable keeps the 1/50 default.
func parseSample(spec string) (int, int) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "":
		return 1, 50
	case "off", "all", "0":
		return 0, 0
	}
	num, den, ratio := strings.Cut(spec, "/")
	if !ratio {
		num, den = "1", spec
	}
	k, err1 := strconv.Atoi(strings.TrimSpace(num))
	n, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || k <= 0 || n <= 0 {
		return 1, 50
	}
	return k, n
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseFormat picks kv for explicit text formats and for debug/dev profiles,
// json otherwise.
func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	return order
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

// openLogFile returns nil when no file is configured or it cannot be opened;
// stdout keeps working either way.
func openLogFile(dir, name string) *os.File {
	dir, name = strings.TrimSpace(dir), strings.TrimSpace(name)
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open %s: %v", path, err)
		return nil
	}
	return f
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
