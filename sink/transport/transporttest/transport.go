// Package transporttest provides an in-memory Transport whose event loop is pumped by the test.
package transporttest

import (
	"bytes"
	"context"
	"net/http"
	"sync"

	"github.com/bitrise-io/go-httpsink/sink/transport"
)

// Submission is a request handed to the Transport together with its completion callback.
type Submission struct {
	Request *transport.Request
	Body    []byte
	ctx     context.Context
	done    func(*transport.Response)
	handled bool
}

// Cancelled reports whether the submitter cancelled the request.
func (s *Submission) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Transport records submissions and queues posted work until the test runs it.
type Transport struct {
	mu          sync.Mutex
	pending     []func()
	submissions []*Submission
	aborted     int
	closed      bool
}

var _ transport.Transport = (*Transport)(nil)

// New creates an empty Transport.
func New() *Transport {
	return &Transport{}
}

// Post queues fn until RunPending is called.
func (t *Transport) Post(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}
	t.pending = append(t.pending, fn)
	return nil
}

// Submit records req. The body is captured immediately.
func (t *Transport) Submit(ctx context.Context, req *transport.Request, done func(*transport.Response)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}

	var body bytes.Buffer
	for _, b := range req.Body {
		body.Write(b)
	}
	t.submissions = append(t.submissions, &Submission{
		Request: req,
		Body:    body.Bytes(),
		ctx:     ctx,
		done:    done,
	})
	return nil
}

// Abort counts the call. Outstanding submissions are left for the test to complete.
func (t *Transport) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborted++
}

// Close rejects further work and drops pending posted functions.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.pending = nil
	return nil
}

// RunPending runs posted functions, including the ones they post, until none is left.
// It returns the number of functions run.
func (t *Transport) RunPending() int {
	n := 0
	for {
		t.mu.Lock()
		if len(t.pending) == 0 {
			t.mu.Unlock()
			return n
		}
		fn := t.pending[0]
		t.pending = t.pending[1:]
		t.mu.Unlock()

		fn()
		n++
	}
}

// Pending returns the number of posted functions not run yet.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Submissions returns every request submitted so far.
func (t *Transport) Submissions() []*Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Submission(nil), t.submissions...)
}

// Outstanding returns the submissions that were not completed yet.
func (t *Transport) Outstanding() []*Submission {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*Submission
	for _, s := range t.submissions {
		if !s.handled {
			out = append(out, s)
		}
	}
	return out
}

// Aborted returns how many times Abort was called.
func (t *Transport) Aborted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// Complete finishes the oldest outstanding submission with status, posting the completion
// the way a real transport does. It returns false when nothing is outstanding.
func (t *Transport) Complete(status int) bool {
	return t.finish(&transport.Response{
		StatusCode: status,
		Reason:     http.StatusText(status),
		Attempts:   1,
	})
}

// Fail finishes the oldest outstanding submission with a network level error.
func (t *Transport) Fail(err error) bool {
	return t.finish(&transport.Response{Err: err, Attempts: 1})
}

// CompleteAll keeps completing submissions with status and running the loop until the
// sink stops submitting. It returns the number of completed submissions.
func (t *Transport) CompleteAll(status int) int {
	n := 0
	t.RunPending()
	for t.Complete(status) {
		n++
		t.RunPending()
	}
	return n
}

func (t *Transport) finish(resp *transport.Response) bool {
	t.mu.Lock()
	var next *Submission
	for _, s := range t.submissions {
		if !s.handled {
			next = s
			break
		}
	}
	if next == nil {
		t.mu.Unlock()
		return false
	}
	next.handled = true
	t.mu.Unlock()

	return t.Post(func() { next.done(resp) }) == nil
}
