package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ben-ranford/unsafety/internal/stats"
)

// ParseErrorPolicy decides what a project run does with a file that fails
// to read or parse.
type ParseErrorPolicy string

const (
	PolicyFail ParseErrorPolicy = "fail"
	PolicySkip ParseErrorPolicy = "skip"
)

var ErrUnknownPolicy = errors.New("unknown parse error policy")

func ParsePolicy(value string) (ParseErrorPolicy, error) {
	switch ParseErrorPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyFail, "":
		return PolicyFail, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, value)
	}
}

type Options struct {
	Workers      int
	OnParseError ParseErrorPolicy
}

// FileError ties a per-file failure to its path.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of measuring a set of files. Skipped is sorted by
// path.
type Result struct {
	Total   stats.Stats
	Skipped []FileError
}
