package transport

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// authenticator answers the authentication challenges of a single request.
// Each kind of challenge is answered at most once: repeating the same credentials after
// they were rejected would only loop.
type authenticator struct {
	config Config
	user   bool
	proxy  bool
}

func newAuthenticator(config Config) *authenticator {
	return &authenticator{config: config}
}

// answer reports whether resp is a challenge the request should be resent for.
func (a *authenticator) answer(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if a.user || !a.config.hasUserCredentials() || !isBasicChallenge(resp.Header.Get("WWW-Authenticate")) {
			return false
		}
		a.user = true
		return true
	case http.StatusProxyAuthRequired:
		if a.proxy || !a.config.hasProxyCredentials() || !isBasicChallenge(resp.Header.Get("Proxy-Authenticate")) {
			return false
		}
		a.proxy = true
		return true
	}
	return false
}

// apply adds the credentials of every challenge answered so far.
func (a *authenticator) apply(req *http.Request) {
	if a.user {
		req.SetBasicAuth(a.config.UserID, a.config.UserPassword)
	}
	if a.proxy {
		req.Header.Set("Proxy-Authorization", "Basic "+basicAuth(a.config.ProxyID, a.config.ProxyPassword))
	}
}

// isBasicChallenge reports whether the challenge accepts Basic credentials.
// A missing challenge header is treated as Basic.
func isBasicChallenge(challenge string) bool {
	if challenge == "" {
		return true
	}
	for _, c := range strings.Split(challenge, ",") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(c)), "basic") {
			return true
		}
	}
	return false
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
