package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("file is not valid UTF-8 text")

// InputError reports a source file that could not be read as text.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ReadText reads targetPath and requires the content to be UTF-8. Every
// failure is returned as an *InputError.
func ReadText(targetPath string) (string, error) {
	data, err := ReadFile(targetPath)
	if err != nil {
		return "", &InputError{Path: targetPath, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &InputError{Path: targetPath, Err: ErrInvalidUTF8}
	}
	return string(data), nil
}

// ReadFileUnder reads targetPath only if it resolves under rootDir.
func ReadFileUnder(rootDir, targetPath string) ([]byte, error) {
	rootAbs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return nil, fmt.Errorf("compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return nil, fmt.Errorf("path escapes root: %s", targetPath)
	}
	return readScoped(rootAbs, filepath.Clean(rel), "open root")
}

// ReadFile reads the exact targetPath by opening its parent directory as a root.
func ReadFile(targetPath string) ([]byte, error) {
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fmt.Errorf("resolve target path: %w", err)
	}
	return readScoped(filepath.Dir(targetAbs), filepath.Base(targetAbs), "open parent root")
}

// readScoped holds the root and file handles only for the duration of the
// read and releases both on every path.
func readScoped(rootDir, name, rootErrPrefix string) ([]byte, error) {
	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rootErrPrefix, err)
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
