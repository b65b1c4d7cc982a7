package sink

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
)

// EventTracker receives stream events. analytics.Tracker satisfies it.
type EventTracker interface {
	Enqueue(eventName string, properties ...analytics.Properties)
}

type streamTracker struct {
	tracker EventTracker
}

func newStreamTracker(tracker EventTracker) streamTracker {
	return streamTracker{tracker: tracker}
}

func (t streamTracker) logStreamDrained(stats *Stats, offset int64, elapsed time.Duration) {
	if t.tracker == nil {
		return
	}
	properties := analytics.Properties{
		"upload_time_s":     elapsed.Truncate(time.Second).Seconds(),
		"upload_size_bytes": stats.Bytes(),
		"stream_offset":     offset,
		"request_count":     stats.Requests(),
		"discarded_chunks":  stats.Discarded(),
	}
	t.tracker.Enqueue("httpsink_stream_drained", properties)
}

func (t streamTracker) logUploadFailed(err *UploadError) {
	if t.tracker == nil {
		return
	}
	properties := analytics.Properties{
		"status_code": err.StatusCode,
		"reason":      err.Reason,
		"offset":      err.Offset,
		"length":      err.Length,
	}
	t.tracker.Enqueue("httpsink_upload_failed", properties)
}
