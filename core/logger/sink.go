package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: sink closed")

// sink serializes lines onto its writers from a single goroutine. The buffer
// is flushed whenever the queue runs dry, so bursts are batched and a quiet
// process never holds unwritten lines.
type sink struct {
	mu     sync.RWMutex
	closed bool

	lines chan []byte
	flush chan chan error
	done  chan struct{}

	errMu sync.Mutex
	err   error

	buf *bufio.Writer
}

func newSink(writers []io.Writer, queue int) *sink {
	if queue <= 0 {
		queue = 256
	}
	s := &sink{
		lines: make(chan []byte, queue),
		flush: make(chan chan error),
		done:  make(chan struct{}),
		buf:   bufio.NewWriterSize(io.MultiWriter(writers...), 64<<10),
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.record(s.buf.Flush())
				return
			}
			s.write(line)
			if len(s.lines) == 0 {
				s.record(s.buf.Flush())
			}
		case ack := <-s.flush:
			// Flush holds the read lock, so lines cannot be closed here.
			for len(s.lines) > 0 {
				s.write(<-s.lines)
			}
			ack <- s.buf.Flush()
		}
	}
}

func (s *sink) write(line []byte) {
	if _, err := s.buf.Write(line); err != nil {
		s.record(err)
	}
}

// Write queues a copy of line. It blocks while the queue is full rather than
// dropping output.
func (s *sink) Write(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSinkClosed
	}
	if err := s.firstErr(); err != nil {
		return err
	}
	s.lines <- append([]byte(nil), line...)
	return nil
}

// Flush waits until every queued line reached the writers.
func (s *sink) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return s.firstErr()
	}
	ack := make(chan error, 1)
	s.flush <- ack
	return errors.Join(<-ack, s.firstErr())
}

// Close drains the queue and stops the goroutine. It is safe to call twice.
func (s *sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	s.mu.Unlock()
	<-s.done
	return s.firstErr()
}

func (s *sink) record(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *sink) firstErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
