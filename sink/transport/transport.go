// Package transport provides the asynchronous HTTP collaborator used by the sink.
// A Transport runs one event loop goroutine: posted functions and request completions are
// executed there in order, so the caller never blocks on the network.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrClosed is returned when work is posted to a transport whose event loop has stopped.
var ErrClosed = errors.New("transport closed")

// Transport executes PUT requests and delivers their completion on its event loop.
type Transport interface {
	// Post schedules fn on the event loop. It never blocks on the network.
	Post(fn func()) error

	// Submit starts req asynchronously. done is invoked on the event loop once the request
	// finished, unless the transport was closed meanwhile. Cancelling ctx aborts the request.
	Submit(ctx context.Context, req *Request, done func(*Response)) error

	// Abort cancels every outstanding request on a best-effort basis.
	Abort()

	// Close aborts outstanding requests and stops the event loop.
	Close() error
}

// Request is one upload request: an ordered list of body segments sent as a single body.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Body segments are concatenated in order. They are not copied and must not be modified.
	Body [][]byte

	// Offset is the position of the first body byte in the logical stream.
	Offset int64
	// Length is the total body length.
	Length int64
}

// NewRequest creates a PUT request for url carrying body, which starts at offset in the stream.
// A Content-Range header is attached for every request that does not start the stream.
func NewRequest(url string, offset int64, body [][]byte) *Request {
	var n int64
	for _, b := range body {
		n += int64(len(b))
	}

	req := &Request{
		Method: http.MethodPut,
		URL:    url,
		Header: http.Header{},
		Body:   body,
		Offset: offset,
		Length: n,
	}
	if offset != 0 {
		req.Header.Set("Content-Range", req.ContentRange())
	}
	return req
}

// ContentRange formats the open ended byte range of the request, the total size of the
// stream is unknown while it is being sent.
func (r *Request) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/*", r.Offset, r.Offset+r.Length-1)
}

// NewReader returns a fresh reader over the body segments. It can be called once per attempt.
func (r *Request) NewReader() io.Reader {
	readers := make([]io.Reader, 0, len(r.Body))
	for _, b := range r.Body {
		readers = append(readers, bytes.NewReader(b))
	}
	return io.MultiReader(readers...)
}

// Response is the outcome of a submitted request.
type Response struct {
	StatusCode int
	Reason     string
	// Err is set when the request failed before a response was received.
	Err error
	// Attempts counts the round trips made, including retries and auth challenges.
	Attempts int
}

// OK reports whether the request succeeded with a 2xx status.
func (r *Response) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// reasonPhrase strips the status code from an http.Response status line.
func reasonPhrase(resp *http.Response) string {
	code := fmt.Sprintf("%d ", resp.StatusCode)
	if len(resp.Status) > len(code) && resp.Status[:len(code)] == code {
		return resp.Status[len(code):]
	}
	if resp.Status != "" {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}
