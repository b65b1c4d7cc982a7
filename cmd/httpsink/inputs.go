package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
)

const stdinInput = "-"

type inputResolver struct {
	logger       log.Logger
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
}

func newInputResolver(logger log.Logger, pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker) inputResolver {
	return inputResolver{
		logger:       logger,
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
	}
}

// resolve expands glob patterns and returns the absolute paths of existing inputs in the given order.
// No input at all means stdin.
func (r inputResolver) resolve(inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return []string{stdinInput}, nil
	}

	var expanded []string
	for _, input := range inputs {
		if input == stdinInput || !strings.ContainsAny(input, "*?[{") {
			expanded = append(expanded, input)
			continue
		}

		base, pattern := doublestar.SplitPattern(input)
		absBase, err := r.pathModifier.AbsPath(base) // resolves ~/ and expands any envs
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(os.DirFS(absBase), pattern, doublestar.WithNoFollow(), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %s: %w", input, err)
		}
		if len(matches) == 0 {
			r.logger.Warnf("No match for input pattern: %s", input)
			continue
		}

		for _, match := range matches {
			expanded = append(expanded, filepath.Join(base, match))
		}
	}

	var final []string
	for _, input := range expanded {
		if input == stdinInput {
			final = append(final, input)
			continue
		}

		absPath, err := r.pathModifier.AbsPath(input)
		if err != nil {
			return nil, fmt.Errorf("parse input path %s: %w", input, err)
		}
		exists, err := r.pathChecker.IsPathExists(absPath)
		if err != nil {
			return nil, fmt.Errorf("check input path %s: %w", absPath, err)
		}
		if !exists {
			return nil, fmt.Errorf("input doesn't exist: %s", input)
		}

		final = append(final, absPath)
	}

	if len(final) == 0 {
		return nil, fmt.Errorf("no input matched")
	}
	return final, nil
}

func openInput(input string) (io.ReadCloser, error) {
	if input == stdinInput {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(input)
}
