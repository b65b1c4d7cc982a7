package sink

import (
	"context"
	"time"

	"github.com/docker/go-units"
)

// EndOfStream waits until every pushed chunk was acknowledged or a request failed.
// It returns the latched *UploadError, if any, and returns at once when nothing is pending.
// A completion may immediately submit the next request, so the condition is re-checked after
// every wake-up.
func (s *Sink) EndOfStream(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	session := s.session

	for {
		if session != s.session {
			return ErrNotStarted
		}
		if s.err != nil {
			return s.err
		}
		if s.inflight == nil && s.queue.empty() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.logger.Debugf("Waiting for outstanding request")
		s.cond.Wait()
	}

	s.tracker.logStreamDrained(s.stats, s.offset, time.Since(s.startedAt))
	s.logger.Donef("Stream drained: %s in %d requests", units.HumanSizeWithPrecision(float64(s.stats.Bytes()), 3), s.stats.Requests())
	return nil
}
