package sink

import (
	"time"

	"github.com/bitrise-io/go-httpsink/sink/transport"
)

// Config holds configuration for the sink.
type Config struct {
	// Target is the URI the stream is PUT to. Nothing is sent while it is empty.
	Target string

	// UserAgent identifies the client.
	// Default: transport.DefaultUserAgent
	UserAgent string

	// AutomaticRedirect follows 3xx responses. The zero value does not: start from DefaultConfig.
	// Default (DefaultConfig): true
	AutomaticRedirect bool

	// Timeout bounds every request. Zero means no timeout.
	Timeout time.Duration

	// MaxRetries lets the transport resend a failed request with its own byte range.
	// The sink itself never resends.
	// Default: 0
	MaxRetries int

	UserID        string
	UserPassword  string
	ProxyURL      string
	ProxyID       string
	ProxyPassword string

	// Transport is used instead of a transport owned by the sink. The sink neither closes nor
	// aborts a borrowed transport; it only cancels its own request.
	Transport transport.Transport

	// Tracker receives stream events. Optional.
	Tracker EventTracker
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:         transport.DefaultUserAgent,
		AutomaticRedirect: true,
	}
}

func (c Config) transportConfig() transport.Config {
	return transport.Config{
		UserAgent:         c.UserAgent,
		AutomaticRedirect: c.AutomaticRedirect,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		UserID:            c.UserID,
		UserPassword:      c.UserPassword,
		ProxyURL:          c.ProxyURL,
		ProxyID:           c.ProxyID,
		ProxyPassword:     c.ProxyPassword,
	}
}
