package sink

import (
	"time"

	"github.com/bitrise-io/go-httpsink/sink/transport"
)

// complete runs on the event loop when the request sent finished.
func (s *Sink) complete(session uint64, sent *inflight, resp *transport.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The transport is done with the body, whichever session the request belonged to.
	sent.release()
	if session != s.session || s.inflight != sent {
		return
	}

	s.cond.Broadcast()
	s.inflight = nil

	if !resp.OK() {
		s.stats.Fail()
		reason := resp.Reason
		if resp.Err != nil {
			reason = resp.Err.Error()
		}
		s.latchLocked(&UploadError{
			StatusCode: resp.StatusCode,
			Reason:     reason,
			Offset:     sent.offset,
			Length:     sent.length,
			Err:        resp.Err,
		})
		return
	}

	took := time.Since(sent.started)
	s.stats.Update(took, sent.length)
	s.logger.Debugf("Request at offset %d acknowledged with %d in %v", sent.offset, resp.StatusCode, took.Round(time.Millisecond))

	s.dispatchLocked()
}
