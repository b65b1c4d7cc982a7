package analytics

import (
	"fmt"
	"testing"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo map[string]string

func (r fakeEnvRepo) Get(key string) string { return r[key] }

func (r fakeEnvRepo) Set(key, value string) error {
	r[key] = value
	return nil
}

func (r fakeEnvRepo) Unset(key string) error {
	delete(r, key)
	return nil
}

func (r fakeEnvRepo) List() []string {
	var envs []string
	for k, v := range r {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

type recordingTracker struct {
	analytics.Tracker
}

func TestNewStreamTrackerFailsIfStreamIDIsNotFound(t *testing.T) {
	_, err := NewDefaultStreamTracker(fakeEnvRepo{}, log.NewLogger(), "http://example.com/live")
	assert.Error(t, err)
}

func TestNewStreamTrackerAddsStreamProperties(t *testing.T) {
	repository := fakeEnvRepo{StreamIDEnvKey: "123"}

	var got []analytics.Properties
	factory := func(_ log.Logger, properties ...analytics.Properties) analytics.Tracker {
		got = properties
		return recordingTracker{}
	}

	tracker, err := NewStreamTracker(repository, log.NewLogger(), "https://upload.example.com:8443/live.ogg", factory)
	require.NoError(t, err)
	assert.NotNil(t, tracker)

	require.Len(t, got, 1)
	assert.Equal(t, analytics.Properties{StreamID: "123", TargetHost: "upload.example.com:8443"}, got[0])
}
