package sink

import (
	"errors"
	"fmt"
)

// ErrNotStarted is returned by operations that need a running session.
var ErrNotStarted = errors.New("sink is not started")

// UploadError is the first failed request of a session. Once recorded it is returned by every
// further write until the sink is stopped.
type UploadError struct {
	// StatusCode is the HTTP status of the failed request, 0 for network level failures.
	StatusCode int
	Reason     string
	// Offset and Length describe the byte range the failed request carried.
	Offset int64
	Length int64
	Err    error
}

func (e *UploadError) Error() string {
	msg := "could not write to HTTP URI"
	if e.Length > 0 {
		msg = fmt.Sprintf("%s: bytes %d-%d", msg, e.Offset, e.Offset+e.Length-1)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return fmt.Sprintf("%s: HTTP %d %s", msg, e.StatusCode, e.Reason)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
