// Package compression compresses a live stream with zstd before it reaches the sink.
package compression

import (
	"fmt"
	"io"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/klauspost/compress/zstd"
)

// DefaultLevel is the zstd compression level used when none is given.
const DefaultLevel = 3

// ValidateLevel checks that level is a zstd compression level between 1 and 19.
func ValidateLevel(level int) error {
	if level < 1 || level > 19 {
		return fmt.Errorf("compression level should be between 1 and 19")
	}
	return nil
}

// Encoder is an io.WriteCloser producing a single zstd frame on the wrapped writer.
type Encoder struct {
	logger log.Logger
	enc    *zstd.Encoder
	out    *countingWriter
	in     int64
}

// NewEncoder creates an encoder writing compressed data to w.
func NewEncoder(w io.Writer, level int, logger log.Logger) (*Encoder, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	out := &countingWriter{w: w}
	enc, err := zstd.NewWriter(out,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}

	return &Encoder{
		logger: logger,
		enc:    enc,
		out:    out,
	}, nil
}

// Write compresses p. Compressed bytes reach the wrapped writer in blocks.
func (e *Encoder) Write(p []byte) (int, error) {
	n, err := e.enc.Write(p)
	e.in += int64(n)
	if err != nil {
		return n, fmt.Errorf("compress: %w", err)
	}
	return n, nil
}

// Flush writes everything compressed so far to the wrapped writer.
func (e *Encoder) Flush() error {
	if err := e.enc.Flush(); err != nil {
		return fmt.Errorf("flush zstd writer: %w", err)
	}
	return nil
}

// Close finishes the frame. It does not close the wrapped writer.
func (e *Encoder) Close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}

	e.logger.Debugf("Compressed %s to %s", units.HumanSizeWithPrecision(float64(e.in), 3), units.HumanSizeWithPrecision(float64(e.out.n), 3))
	return nil
}

// In returns the number of uncompressed bytes written.
func (e *Encoder) In() int64 {
	return e.in
}

// Out returns the number of compressed bytes passed to the wrapped writer.
func (e *Encoder) Out() int64 {
	return e.out.n
}

// NewDecoder returns a reader decompressing a zstd stream read from r.
func NewDecoder(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return dec.IOReadCloser(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
