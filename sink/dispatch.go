package sink

import (
	"time"

	"github.com/bitrise-io/go-httpsink/sink/transport"
	"github.com/docker/go-units"
)

// dispatch runs on the event loop after the producer queued into an empty queue.
func (s *Sink) dispatch(session uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session != s.session {
		return
	}
	s.dispatchLocked()
}

// dispatchLocked sends every queued chunk in one request, unless a request is already
// outstanding. The stream offset is advanced as soon as the request is submitted, so a failed
// request's range is never sent again.
func (s *Sink) dispatchLocked() {
	if s.queue.empty() || s.inflight != nil || s.err != nil || !s.started {
		return
	}

	if s.target == "" {
		n := s.queue.discardAll()
		s.stats.Discard(n)
		s.logger.Warnf("Target went away, discarding %d queued chunks", n)
		s.cond.Broadcast()
		return
	}

	var (
		body   [][]byte
		chunks []*Chunk
		n      int64
	)
	if s.offset == 0 {
		for _, h := range s.queue.headers {
			body = append(body, h.Bytes())
			chunks = append(chunks, h.Ref())
			n += int64(h.Len())
		}
	}
	for _, c := range s.queue.queued {
		if c.IsHeader() {
			continue
		}
		body = append(body, c.Bytes())
		n += int64(c.Len())
	}

	if n == 0 {
		releaseAll(chunks)
		s.queue.discardAll()
		s.cond.Broadcast()
		return
	}

	req := transport.NewRequest(s.target, s.offset, body)
	chunks = append(chunks, s.queue.take()...)
	s.inflight = &inflight{
		chunks:  chunks,
		offset:  s.offset,
		length:  n,
		started: time.Now(),
	}

	session, sent := s.session, s.inflight
	err := s.transport.Submit(s.ctx, req, func(resp *transport.Response) {
		s.complete(session, sent, resp)
	})
	if err != nil {
		s.inflight = nil
		sent.release()
		s.stats.Fail()
		s.latchLocked(&UploadError{Reason: err.Error(), Offset: sent.offset, Length: sent.length, Err: err})
		s.cond.Broadcast()
		return
	}

	s.logger.Debugf("Queued request at offset %d: %s", s.offset, units.HumanSizeWithPrecision(float64(n), 3))
	s.offset += n
}
