// Package analytics creates the tracker receiving the sink's stream events.
package analytics

import (
	"fmt"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

type TrackerFactory func(log.Logger, ...analytics.Properties) analytics.Tracker

const (
	StreamIDEnvKey = "HTTPSINK_STREAM_ID"
	StreamID       = "stream_id"
	TargetHost     = "target_host"
)

// NewStreamTracker returns a tracker tagging every event with the stream ID and the host of target.
// Streams without an ID are not tracked.
func NewStreamTracker(repository env.Repository, logger log.Logger, target string, trackerFactory TrackerFactory) (analytics.Tracker, error) {
	streamID := repository.Get(StreamIDEnvKey)
	if streamID == "" {
		return nil, fmt.Errorf("no stream ID found")
	}

	properties := analytics.Properties{StreamID: streamID}
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		properties[TargetHost] = u.Host
	}
	return trackerFactory(logger, properties), nil
}

func NewDefaultStreamTracker(repository env.Repository, logger log.Logger, target string) (analytics.Tracker, error) {
	return NewStreamTracker(repository, logger, target, analytics.NewDefaultTracker)
}
