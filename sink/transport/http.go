package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strconv"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/docker/go-units"
	"github.com/hashicorp/go-retryablehttp"
)

const maxErrorBodySize = 1024

// HTTP is a Transport backed by a retrying net/http client and its own event loop.
type HTTP struct {
	config Config
	client *retryablehttp.Client
	logger log.Logger
	loop   *Loop

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	nextID  uint64
	closed  bool
	wg      sync.WaitGroup
}

var _ Transport = (*HTTP)(nil)

// NewHTTP creates an HTTP transport and starts its event loop.
func NewHTTP(config Config, logger log.Logger) (*HTTP, error) {
	httpClient, err := newHTTPClient(config)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}

	client := retryhttp.NewClient(logger)
	client.HTTPClient = httpClient
	client.RetryMax = config.MaxRetries
	client.CheckRetry = createRetryFunction(logger)
	// Hand back the last response instead of a "giving up" error so the status code survives.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &HTTP{
		config:  config,
		client:  client,
		logger:  logger,
		loop:    NewLoop(),
		cancels: map[uint64]context.CancelFunc{},
	}, nil
}

// Post schedules fn on the event loop.
func (t *HTTP) Post(fn func()) error {
	return t.loop.Post(fn)
}

// Submit sends req on a separate goroutine and posts done to the event loop when it finishes.
func (t *HTTP) Submit(ctx context.Context, req *Request, done func(*Response)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	id := t.nextID
	t.nextID++
	t.cancels[id] = cancel
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer cancel()

		resp := t.do(ctx, req)

		t.mu.Lock()
		delete(t.cancels, id)
		t.mu.Unlock()

		if err := t.loop.Post(func() { done(resp) }); err != nil {
			t.logger.Debugf("Dropping completion of request at offset %d: %s", req.Offset, err)
		}
	}()

	return nil
}

// Abort cancels every outstanding request.
func (t *HTTP) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, cancel := range t.cancels {
		cancel()
		delete(t.cancels, id)
	}
}

// Close aborts outstanding requests, waits for them to return and stops the event loop.
// It must not be called from the event loop itself.
func (t *HTTP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Abort()
	t.wg.Wait()
	t.loop.Quit()

	if transport, ok := t.client.HTTPClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

func (t *HTTP) do(ctx context.Context, req *Request) *Response {
	result := &Response{}
	auth := newAuthenticator(t.config)

	// net/http may still read a body after the round trip returned, the caller owns the
	// segments again only once every body was closed.
	var bodies requestBodies
	defer bodies.wait()

	for {
		result.Attempts++

		resp, err := t.roundTrip(ctx, req, auth, &bodies)
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			result.Err = err
			return result
		}

		retry := auth.answer(resp)
		t.discardBody(resp, !retry && (resp.StatusCode < 200 || resp.StatusCode >= 300))
		if retry {
			t.logger.Debugf("Answering %d authentication challenge for %s", resp.StatusCode, req.URL)
			continue
		}

		result.StatusCode = resp.StatusCode
		result.Reason = reasonPhrase(resp)
		return result
	}
}

func (t *HTTP) roundTrip(ctx context.Context, req *Request, auth *authenticator, bodies *requestBodies) (*http.Response, error) {
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		return bodies.open(req), nil
	})

	r, err := retryablehttp.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	r = r.WithContext(ctx)
	// 307 and 308 redirects resend the body.
	r.GetBody = func() (io.ReadCloser, error) {
		return bodies.open(req), nil
	}

	for k, v := range req.Header {
		r.Header[k] = v
	}
	r.Header.Set("User-Agent", t.config.UserAgent)
	auth.apply(r.Request)

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	r.Header.Set("Content-Length", strconv.FormatInt(req.Length, 10))
	r.ContentLength = req.Length

	dump, err := httputil.DumpRequest(redactedRequest(r.Request), false)
	if err != nil {
		t.logger.Warnf("error while dumping request: %s", err)
	}
	t.logger.Debugf("Upload request (%s) dump: %s", units.HumanSizeWithPrecision(float64(req.Length), 3), string(dump))

	resp, err := t.client.Do(r)
	if err != nil {
		if resp != nil {
			t.discardBody(resp, false)
		}
		return nil, err
	}
	return resp, nil
}

// requestBodies tracks the request bodies handed to net/http until they are closed.
type requestBodies struct {
	wg sync.WaitGroup
}

func (b *requestBodies) open(req *Request) io.ReadCloser {
	b.wg.Add(1)
	return &trackedBody{Reader: req.NewReader(), done: b.wg.Done}
}

func (b *requestBodies) wait() {
	b.wg.Wait()
}

type trackedBody struct {
	io.Reader
	once sync.Once
	done func()
}

func (b *trackedBody) Close() error {
	b.once.Do(b.done)
	return nil
}

// redactedRequest returns a copy of req that is safe to log.
func redactedRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	for _, h := range []string{"Authorization", "Proxy-Authorization"} {
		if clone.Header.Get(h) != "" {
			clone.Header.Set(h, "[REDACTED]")
		}
	}
	return clone
}

// discardBody drains and closes the response body, logging its start for failed requests.
func (t *HTTP) discardBody(resp *http.Response, failed bool) {
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			t.logger.Warnf("close response body: %s", err)
		}
	}(resp.Body)

	if failed {
		errorBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err == nil && len(errorBody) > 0 {
			t.logger.Debugf("HTTP %d: %s", resp.StatusCode, errorBody)
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
}

func createRetryFunction(logger log.Logger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; requestErr=%+v", retry, checkErr, err)
		return retry, checkErr
	}
}
