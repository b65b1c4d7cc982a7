package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bitrise-io/go-httpsink/analytics"
	"github.com/bitrise-io/go-httpsink/compression"
	"github.com/bitrise-io/go-httpsink/sink"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/docker/go-units"
)

func run(ctx context.Context, cli CLI, envRepo env.Repository, logger log.Logger) error {
	config, err := sink.ConfigFromEnv(envRepo)
	if err != nil {
		return err
	}
	if cli.Location != "" {
		config.Target = cli.Location
	}
	if config.Target == "" {
		return fmt.Errorf("no target location: set %s or --location", sink.LocationEnvKey)
	}

	chunkSize, err := units.RAMInBytes(cli.ChunkSize)
	if err != nil {
		return fmt.Errorf("invalid chunk size: %w", err)
	}
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size should be positive: %s", cli.ChunkSize)
	}
	if cli.Zstd {
		if err := compression.ValidateLevel(cli.Level); err != nil {
			return err
		}
	}

	inputs, err := newInputResolver(logger, pathutil.NewPathModifier(), pathutil.NewPathChecker()).resolve(cli.Inputs)
	if err != nil {
		return err
	}

	tracker, err := analytics.NewDefaultStreamTracker(envRepo, logger, config.Target)
	if err != nil {
		logger.Debugf("Stream events are not tracked: %s", err)
	} else {
		config.Tracker = tracker
		defer tracker.Wait()
	}

	s := sink.New(config, logger)
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.Stop(); err != nil {
			logger.Warnf("Failed to stop sink: %s", err)
		}
	}()

	if cli.Header != "" {
		header, err := os.ReadFile(cli.Header)
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		s.CaptureHeaders(sink.NewHeaderChunk(header))
	}

	logger.Infof("Streaming %d input(s) to %s in %s chunks", len(inputs), config.Target, units.BytesSize(float64(chunkSize)))

	if err := stream(s, inputs, int(chunkSize), cli, logger); err != nil {
		return err
	}

	if err := s.EndOfStream(ctx); err != nil {
		return fmt.Errorf("drain stream: %w", err)
	}

	stats := s.Stats()
	logger.Donef("Uploaded %s in %d request(s), average request time: %s", units.HumanSizeWithPrecision(float64(stats.Bytes()), 3), stats.Requests(), stats.Average())
	return nil
}

// stream copies every input into the sink in chunkSize pieces, optionally through a zstd encoder.
func stream(s *sink.Sink, inputs []string, chunkSize int, cli CLI, logger log.Logger) error {
	chunked := bufio.NewWriterSize(s, chunkSize)

	var w io.Writer = chunked
	var enc *compression.Encoder
	if cli.Zstd {
		var err error
		enc, err = compression.NewEncoder(chunked, cli.Level, logger)
		if err != nil {
			return err
		}
		w = enc
	}

	buf := make([]byte, chunkSize)
	for _, input := range inputs {
		if err := copyInput(w, input, buf, logger); err != nil {
			return err
		}
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return latchedErr(s, err)
		}
	}
	if err := chunked.Flush(); err != nil {
		return latchedErr(s, err)
	}
	return nil
}

func copyInput(w io.Writer, input string, buf []byte, logger log.Logger) error {
	r, err := openInput(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warnf("Failed to close %s: %s", input, err)
		}
	}()

	n, err := io.CopyBuffer(w, r, buf)
	if err != nil {
		return fmt.Errorf("stream %s: %w", input, err)
	}
	logger.Debugf("Streamed %s (%s)", input, units.HumanSizeWithPrecision(float64(n), 3))
	return nil
}

// latchedErr prefers the latched upload error over the error of the writer chain reporting it.
func latchedErr(s *sink.Sink, err error) error {
	var uploadErr *sink.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr
	}
	if latched := s.Err(); latched != nil {
		return latched
	}
	return err
}
