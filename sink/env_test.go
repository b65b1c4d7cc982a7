package sink

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		want    func(*Config)
		wantErr bool
	}{
		{
			name: "defaults",
			envs: map[string]string{},
			want: func(*Config) {},
		},
		{
			name: "all values",
			envs: map[string]string{
				LocationEnvKey:          "https://upload.example.com/live.ogg",
				UserAgentEnvKey:         "recorder/1.0",
				AutomaticRedirectEnvKey: "no",
				TimeoutEnvKey:           "15",
				MaxRetriesEnvKey:        "2",
				UserIDEnvKey:            "user",
				UserPasswordEnvKey:      "secret",
				ProxyEnvKey:             "http://proxy:3128",
				ProxyIDEnvKey:           "puser",
				ProxyPasswordEnvKey:     "psecret",
			},
			want: func(c *Config) {
				c.Target = "https://upload.example.com/live.ogg"
				c.UserAgent = "recorder/1.0"
				c.AutomaticRedirect = false
				c.Timeout = 15 * time.Second
				c.MaxRetries = 2
				c.UserID = "user"
				c.UserPassword = "secret"
				c.ProxyURL = "http://proxy:3128"
				c.ProxyID = "puser"
				c.ProxyPassword = "psecret"
			},
		},
		{
			name: "duration timeout",
			envs: map[string]string{TimeoutEnvKey: "1m30s"},
			want: func(c *Config) { c.Timeout = 90 * time.Second },
		},
		{
			name:    "invalid redirect flag",
			envs:    map[string]string{AutomaticRedirectEnvKey: "sometimes"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			envs:    map[string]string{TimeoutEnvKey: "-1"},
			wantErr: true,
		},
		{
			name:    "invalid retries",
			envs:    map[string]string{MaxRetriesEnvKey: "many"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			envRepo := fakeEnvRepo{envVars: tt.envs}

			// When
			got, err := ConfigFromEnv(envRepo)

			// Then
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := DefaultConfig()
			tt.want(&want)
			assert.Equal(t, want, got)
		})
	}
}
