package transport

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent when no client identification is configured.
const DefaultUserAgent = "go-httpsink"

// Config holds configuration for the HTTP transport.
type Config struct {
	// UserAgent is the value of the User-Agent request header.
	// Default: DefaultUserAgent
	UserAgent string

	// AutomaticRedirect makes the transport follow 3xx responses. The zero value does not: start from DefaultConfig.
	// Default (DefaultConfig): true
	AutomaticRedirect bool

	// Timeout bounds a single round trip. Zero means no timeout.
	Timeout time.Duration

	// MaxRetries is the number of times a failed request is resent with its own byte range.
	// Default: 0
	MaxRetries int

	// UserID and UserPassword answer authentication challenges of the target.
	UserID       string
	UserPassword string

	// ProxyURL routes requests through an HTTP proxy. Empty uses the environment.
	ProxyURL string
	// ProxyID and ProxyPassword answer authentication challenges of the proxy.
	ProxyID       string
	ProxyPassword string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:         DefaultUserAgent,
		AutomaticRedirect: true,
		Timeout:           0,
		MaxRetries:        0,
	}
}

// hasUserCredentials reports whether target credentials are configured.
func (c Config) hasUserCredentials() bool {
	return c.UserID != "" && c.UserPassword != ""
}

// hasProxyCredentials reports whether proxy credentials are configured.
func (c Config) hasProxyCredentials() bool {
	return c.ProxyID != "" && c.ProxyPassword != ""
}

// newHTTPClient creates the net/http client behind the retrying client.
func newHTTPClient(config Config) (*http.Client, error) {
	proxy := http.ProxyFromEnvironment
	if config.ProxyURL != "" {
		u, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, err
		}
		proxy = http.ProxyURL(u)
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxConnsPerHost:     2,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			Proxy:               proxy,
		},
	}
	if !config.AutomaticRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}
