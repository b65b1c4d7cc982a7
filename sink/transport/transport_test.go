package transport

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name      string
		offset    int64
		body      [][]byte
		wantLen   int64
		wantRange string
	}{
		{
			name:    "stream start",
			offset:  0,
			body:    [][]byte{[]byte("H1"), []byte("A")},
			wantLen: 3,
		},
		{
			name:      "continuation",
			offset:    3,
			body:      [][]byte{[]byte("B")},
			wantLen:   1,
			wantRange: "bytes 3-3/*",
		},
		{
			name:      "multiple segments",
			offset:    100,
			body:      [][]byte{make([]byte, 50), make([]byte, 50)},
			wantLen:   100,
			wantRange: "bytes 100-199/*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("http://example.com/stream", tt.offset, tt.body)

			assert.Equal(t, http.MethodPut, req.Method)
			assert.Equal(t, tt.wantLen, req.Length)
			assert.Equal(t, tt.wantRange, req.Header.Get("Content-Range"))
		})
	}
}

func TestRequest_NewReader(t *testing.T) {
	req := NewRequest("http://example.com/stream", 0, [][]byte{[]byte("abc"), []byte("def")})

	for i := 0; i < 2; i++ {
		b, err := io.ReadAll(req.NewReader())
		require.NoError(t, err)
		assert.Equal(t, "abcdef", string(b))
	}
}

func TestResponse_OK(t *testing.T) {
	assert.True(t, (&Response{StatusCode: http.StatusNoContent}).OK())
	assert.False(t, (&Response{StatusCode: http.StatusNotFound}).OK())
	assert.False(t, (&Response{StatusCode: http.StatusOK, Err: io.ErrUnexpectedEOF}).OK())
}

func Test_reasonPhrase(t *testing.T) {
	assert.Equal(t, "Not Found", reasonPhrase(&http.Response{StatusCode: 404, Status: "404 Not Found"}))
	assert.Equal(t, "Custom", reasonPhrase(&http.Response{StatusCode: 599, Status: "Custom"}))
	assert.Equal(t, "Bad Gateway", reasonPhrase(&http.Response{StatusCode: 502}))
}

func Test_isBasicChallenge(t *testing.T) {
	tests := []struct {
		challenge string
		want      bool
	}{
		{challenge: "", want: true},
		{challenge: `Basic realm="upload"`, want: true},
		{challenge: `basic realm="upload"`, want: true},
		{challenge: `Digest realm="upload", nonce="x"`, want: false},
		{challenge: `Digest realm="a", Basic realm="b"`, want: true},
		{challenge: `Bearer`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.challenge, func(t *testing.T) {
			assert.Equal(t, tt.want, isBasicChallenge(tt.challenge))
		})
	}
}

func TestAuthenticator_ProxyChallenge(t *testing.T) {
	a := newAuthenticator(Config{ProxyID: "puser", ProxyPassword: "psecret"})
	challenge := &http.Response{StatusCode: http.StatusProxyAuthRequired, Header: http.Header{}}
	challenge.Header.Set("Proxy-Authenticate", `Basic realm="proxy"`)

	require.True(t, a.answer(challenge))
	assert.False(t, a.answer(challenge), "a challenge is answered once")

	unauthorized := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}}
	assert.False(t, a.answer(unauthorized), "no target credentials configured")

	req, err := http.NewRequest(http.MethodPut, "http://example.com", nil)
	require.NoError(t, err)
	a.apply(req)
	assert.Equal(t, "Basic "+basicAuth("puser", "psecret"), req.Header.Get("Proxy-Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func Test_redactedRequest(t *testing.T) {
	req, err := http.NewRequest(http.MethodPut, "http://example.com", nil)
	require.NoError(t, err)
	req.SetBasicAuth("user", "secret")
	req.Header.Set("Content-Range", "bytes 0-1/*")

	redacted := redactedRequest(req)

	assert.Equal(t, "[REDACTED]", redacted.Header.Get("Authorization"))
	assert.Empty(t, redacted.Header.Get("Proxy-Authorization"))
	assert.Equal(t, "bytes 0-1/*", redacted.Header.Get("Content-Range"))
	assert.Equal(t, "Basic "+basicAuth("user", "secret"), req.Header.Get("Authorization"), "the sent request keeps its credentials")
}

func Test_requestBodies(t *testing.T) {
	var bodies requestBodies
	req := NewRequest("http://example.com/stream", 0, [][]byte{[]byte("abc")})

	first := bodies.open(req)
	second := bodies.open(req)

	waited := make(chan struct{})
	go func() {
		bodies.wait()
		close(waited)
	}()

	b, err := io.ReadAll(first)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "closing twice is fine")

	select {
	case <-waited:
		t.Fatal("wait returned while a body was still open")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, second.Close())
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after every body was closed")
	}
}
