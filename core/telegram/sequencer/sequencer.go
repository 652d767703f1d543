// Package sequencer runs jobs in per-key lanes: jobs sharing a key run one at
// a time in submission order, jobs with different keys run concurrently.
// The Telegram runtime keys lanes by chat id so a conversation never has two
// updates in flight.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/welgevonden/marketbot/core/logger"
)

var (
	// ErrClosed is returned when enqueue is attempted after shutdown started.
	ErrClosed = errors.New("sequencer: closed")
	// ErrLaneFull indicates the key already has MaxPending queued jobs.
	ErrLaneFull = errors.New("sequencer: lane full")
)

// Job is a unit of work. ctx is cancelled when the sequencer shuts down.
type Job = func(ctx context.Context)

// Options controls lane limits.
type Options struct {
	// MaxPending bounds queued (not yet running) jobs per key. Zero means 64.
	MaxPending int
}

type job struct {
	ctx  context.Context
	name string
	run  Job
	at   time.Time
}

type lane struct {
	queue []job
}

// Sequencer owns the lanes and their goroutines.
type Sequencer struct {
	opts   Options
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool

	wg     sync.WaitGroup
	panics atomic.Uint64
}

// New creates a sequencer with no running lanes.
func New(opts Options) *Sequencer {
	if opts.MaxPending <= 0 {
		opts.MaxPending = 64
	}
	base, cancel := context.WithCancel(context.Background())
	return &Sequencer{
		opts:   opts,
		base:   base,
		cancel: cancel,
		lanes:  make(map[int64]*lane),
	}
}

// Enqueue appends run to the lane for key, starting the lane if idle.
// ctx supplies values (logger, rid) to the job; its cancellation is ignored
// because Telegram contexts end when the update handler returns.
func (s *Sequencer) Enqueue(ctx context.Context, key int64, name string, run Job) error {
	if run == nil {
		return errors.New("sequencer: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{ctx: context.WithoutCancel(ctx), name: name, run: run, at: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if l, ok := s.lanes[key]; ok {
		if len(l.queue) >= s.opts.MaxPending {
			return fmt.Errorf("%w: key %d", ErrLaneFull, key)
		}
		l.queue = append(l.queue, j)
		return nil
	}
	l := &lane{queue: []job{j}}
	s.lanes[key] = l
	s.wg.Add(1)
	go s.drain(key, l)
	return nil
}

// Active returns the number of keys with queued or running work.
func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}

// Panics returns how many jobs panicked.
func (s *Sequencer) Panics() uint64 {
	return s.panics.Load()
}

// Shutdown stops accepting jobs and waits for queued jobs to finish. When ctx
// ends first, running jobs see their context cancelled and Shutdown returns
// ctx.Err() once they exit.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (s *Sequencer) Close() {
	_ = s.Shutdown(context.Background())
}

func (s *Sequencer) drain(key int64, l *lane) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(l.queue) == 0 {
			delete(s.lanes, key)
			s.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue[0] = job{}
		l.queue = l.queue[1:]
		s.mu.Unlock()

		s.run(key, j)
	}
}

func (s *Sequencer) run(key int64, j job) {
	ctx, cancel := context.WithCancel(j.ctx)
	stop := context.AfterFunc(s.base, cancel)
	defer func() {
		stop()
		cancel()
		if r := recover(); r != nil {
			s.panics.Add(1)
			logger.Error(j.ctx, "tg", "sequencer.panic",
				slog.String("status", "fail"),
				slog.String("handler", j.name),
				slog.Int64("chat_id", key),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if wait := time.Since(j.at); wait > time.Second {
		logger.Debug(j.ctx, "tg", "sequencer.wait",
			slog.String("handler", j.name),
			slog.Duration("wait", logger.RoundMS(wait)),
		)
	}
	j.run(ctx)
}
