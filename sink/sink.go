// Package sink uploads a pushed stream of chunks to an HTTP resource as a sequence of PUT requests.
// At most one request is outstanding at any time. Requests after the first one continue the stream
// with a Content-Range header, and the first failed request makes every further write fail.
package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

// State describes what the dispatcher is doing.
type State int

const (
	// StateIdle means no request is outstanding and nothing is queued.
	StateIdle State = iota
	// StateArmed means chunks are queued and a dispatch is scheduled.
	StateArmed
	// StateInFlight means a request is outstanding.
	StateInFlight
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateInFlight:
		return "in-flight"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// inflight is the request currently owned by the transport.
type inflight struct {
	chunks  []*Chunk
	offset  int64
	length  int64
	started time.Time

	releaseOnce sync.Once
}

// release drops the request's references to its chunks. Both Stop and a late completion may
// call it.
func (f *inflight) release() {
	f.releaseOnce.Do(func() { releaseAll(f.chunks) })
}

// Sink is the upload engine. A Sink is safe for use by one producer goroutine while the
// transport's event loop completes its requests.
type Sink struct {
	config  Config
	logger  log.Logger
	tracker streamTracker

	mu   sync.Mutex
	cond *sync.Cond

	transport sessionTransport
	ctx       context.Context
	cancel    context.CancelFunc
	session   uint64
	started   bool
	startedAt time.Time

	target   string
	queue    chunkQueue
	inflight *inflight
	offset   int64
	err      *UploadError
	stats    *Stats
}

// New creates a stopped Sink.
func New(config Config, logger log.Logger) *Sink {
	s := &Sink{
		config:  config,
		logger:  logger,
		tracker: newStreamTracker(config.Tracker),
		target:  config.Target,
		stats:   NewStats(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start opens a session: it creates the owned transport, or borrows the configured one.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	t, err := openTransport(s.config, s.logger)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}

	s.transport = t
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.session++
	s.started = true
	s.startedAt = time.Now()
	s.offset = 0
	s.err = nil
	s.stats = NewStats()

	s.logger.Debugf("Sink started (%s transport), target: %s", t.ownership, s.target)
	return nil
}

// Stop ends the session. The outstanding request is cancelled, queued chunks are released
// without being sent and the error latch is cleared. An owned transport is closed.
func (s *Sink) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}

	s.started = false
	s.session++
	s.cancel()

	t := s.transport
	s.transport = sessionTransport{}

	sent := s.inflight
	s.inflight = nil
	discarded := s.queue.discardAll()
	s.queue.reset()
	s.offset = 0
	s.err = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	if discarded > 0 {
		s.logger.Warnf("Sink stopped with %d unsent chunks", discarded)
	}
	s.logger.Debugf("Sink stopped")

	// Closing joins the event loop, which may be waiting for the lock: never close while holding it.
	err := t.release()

	// The transport may read the request body until it is closed. A borrowed transport is not
	// closed, its late completion releases the chunks instead.
	if sent != nil && t.ownership == Owned {
		sent.release()
	}
	return err
}

// SetTarget changes the destination URI and restarts the stream offset from 0.
// Data already in flight is not retargeted. An empty uri makes the sink drop queued chunks.
func (s *Sink) SetTarget(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = uri
	s.offset = 0
}

// Target returns the destination URI.
func (s *Sink) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Offset returns the stream offset the next request will start at.
func (s *Sink) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Err returns the latched upload error, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return nil
	}
	return s.err
}

// Stats returns the statistics of the current session.
func (s *Sink) Stats() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// State returns the dispatcher state.
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.inflight != nil:
		return StateInFlight
	case !s.queue.empty():
		return StateArmed
	}
	return StateIdle
}

// CaptureHeaders replaces the stream headers sent at the start of the stream.
// The sink takes ownership of chunks and releases the previous headers.
func (s *Sink) CaptureHeaders(chunks ...*Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.captureHeaders(chunks)
	s.logger.Debugf("Captured %d stream header chunks", len(chunks))
}

// Push hands c over to the sink. It never waits for the network.
// After a failed request it returns the latched *UploadError and the caller keeps c.
// Otherwise the sink owns c: it is released once sent, or dropped when no target is set.
func (s *Sink) Push(c *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if !s.started {
		return ErrNotStarted
	}

	if s.target == "" {
		c.Release()
		s.stats.Discard(1)
		s.logger.Debugf("No target set, dropping chunk of %d bytes", c.Len())
		return nil
	}

	if s.queue.enqueue(c) {
		session := s.session
		if err := s.transport.Post(func() { s.dispatch(session) }); err != nil {
			s.latchLocked(&UploadError{Reason: err.Error(), Offset: s.offset, Err: err})
			s.cond.Broadcast()
		}
	}
	return nil
}

// Write pushes a copy of p as one chunk.
func (s *Sink) Write(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)

	if err := s.Push(NewChunk(data)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Sink) latchLocked(err *UploadError) {
	if s.err != nil {
		return
	}
	s.err = err
	s.logger.Errorf("Upload failed, dropping further writes: %s", err)
	s.tracker.logUploadFailed(err)
}
