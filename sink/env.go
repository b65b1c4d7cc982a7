package sink

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
)

// Environment variables read by ConfigFromEnv.
const (
	LocationEnvKey          = "HTTPSINK_LOCATION"
	UserAgentEnvKey         = "HTTPSINK_USER_AGENT"
	AutomaticRedirectEnvKey = "HTTPSINK_AUTOMATIC_REDIRECT"
	TimeoutEnvKey           = "HTTPSINK_TIMEOUT"
	MaxRetriesEnvKey        = "HTTPSINK_MAX_RETRIES"
	UserIDEnvKey            = "HTTPSINK_USER_ID"
	UserPasswordEnvKey      = "HTTPSINK_USER_PW"
	ProxyEnvKey             = "HTTPSINK_PROXY"
	ProxyIDEnvKey           = "HTTPSINK_PROXY_ID"
	ProxyPasswordEnvKey     = "HTTPSINK_PROXY_PW"
)

// ConfigFromEnv builds a Config from the environment. Unset variables keep their defaults.
func ConfigFromEnv(envRepo env.Repository) (Config, error) {
	config := DefaultConfig()

	config.Target = envRepo.Get(LocationEnvKey)
	if ua := envRepo.Get(UserAgentEnvKey); ua != "" {
		config.UserAgent = ua
	}

	if v := envRepo.Get(AutomaticRedirectEnvKey); v != "" {
		redirect, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", AutomaticRedirectEnvKey, err)
		}
		config.AutomaticRedirect = redirect
	}

	if v := envRepo.Get(TimeoutEnvKey); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", TimeoutEnvKey, err)
		}
		config.Timeout = timeout
	}

	if v := envRepo.Get(MaxRetriesEnvKey); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", MaxRetriesEnvKey, err)
		}
		if retries < 0 {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", MaxRetriesEnvKey)
		}
		config.MaxRetries = retries
	}

	config.UserID = envRepo.Get(UserIDEnvKey)
	config.UserPassword = envRepo.Get(UserPasswordEnvKey)
	config.ProxyURL = envRepo.Get(ProxyEnvKey)
	config.ProxyID = envRepo.Get(ProxyIDEnvKey)
	config.ProxyPassword = envRepo.Get(ProxyPasswordEnvKey)

	return config, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "yes", "Yes", "YES":
		return true, nil
	case "no", "No", "NO":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}
