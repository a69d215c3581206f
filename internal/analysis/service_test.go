package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/ben-ranford/unsafety/internal/safeio"
	"github.com/ben-ranford/unsafety/internal/stats"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeSources(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestMeasureSumsPerFileRecords(t *testing.T) {
	paths := writeSources(t, map[string]string{
		"a.rs": "unsafe fn foo() { unsafe { bar(); } }\n",
		"b.rs": "unsafe impl Sync for Bar {}\n",
		"c.rs": "fn main() {}\n",
	})

	result, err := NewService(nil).Measure(context.Background(), paths, Options{Workers: 2})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if result.Total.TotalFiles != 3 {
		t.Fatalf("expected 3 files, got %d", result.Total.TotalFiles)
	}
	if result.Total.UnsafeScore != 2 {
		t.Fatalf("expected unsafe score 2, got %d", result.Total.UnsafeScore)
	}

	var perFile []stats.Stats
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		record, err := Evaluate(context.Background(), string(data))
		if err != nil {
			t.Fatalf("evaluate %s: %v", path, err)
		}
		perFile = append(perFile, record)
	}
	if stats.Sum(perFile...) != result.Total {
		t.Fatalf("expected total to equal the sum of per-file records")
	}
}

func TestMeasureWrapsInvalidUTF8AsInputError(t *testing.T) {
	paths := writeSources(t, map[string]string{"bad.rs": "\xc3\x28"})

	_, err := NewService(nil).Measure(context.Background(), paths, Options{})
	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *FileError, got %T (%v)", err, err)
	}
	var inputErr *safeio.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected wrapped *safeio.InputError, got %v", err)
	}
}

func TestMeasureIsIndependentOfWorkerCount(t *testing.T) {
	files := make(map[string]string)
	for i := range 24 {
		files[fmt.Sprintf("f%02d.rs", i)] = fmt.Sprintf("pub unsafe fn f%d() { unsafe { g(); } h(); }\n", i)
	}
	paths := writeSources(t, files)

	single, err := NewService(nil).Measure(context.Background(), paths, Options{Workers: 1})
	if err != nil {
		t.Fatalf("measure with one worker: %v", err)
	}
	for _, workers := range []int{2, 5, 0, 64} {
		got, err := NewService(nil).Measure(context.Background(), paths, Options{Workers: workers})
		if err != nil {
			t.Fatalf("measure with %d workers: %v", workers, err)
		}
		if got.Total != single.Total {
			t.Fatalf("workers=%d: expected %+v, got %+v", workers, single.Total, got.Total)
		}
	}
}

func TestMeasureFailPolicyAborts(t *testing.T) {
	paths := writeSources(t, map[string]string{
		"good.rs": "fn main() {}\n",
		"bad.rs":  "fn broken( {\n",
	})

	_, err := NewService(nil).Measure(context.Background(), paths, Options{Workers: 2, OnParseError: PolicyFail})
	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *FileError, got %T (%v)", err, err)
	}
	if !strings.HasSuffix(fileErr.Path, "bad.rs") {
		t.Fatalf("expected failure on bad.rs, got %s", fileErr.Path)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected wrapped *ParseError, got %v", err)
	}
}

func TestMeasureSkipPolicyContinues(t *testing.T) {
	paths := writeSources(t, map[string]string{
		"good.rs":   "fn main() { unsafe { x(); } }\n",
		"bad.rs":    "fn broken( {\n",
		"binary.rs": "\xff\xfe",
	})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	result, err := NewService(logger).Measure(context.Background(), paths, Options{OnParseError: PolicySkip})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if result.Total.TotalFiles != 1 || result.Total.UnsafeBlocks != 1 {
		t.Fatalf("expected only good.rs to be counted, got %+v", result.Total)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected 2 skipped files, got %v", result.Skipped)
	}
	if !strings.Contains(logs.String(), "skipped file") || !strings.Contains(logs.String(), "evaluated file") {
		t.Fatalf("expected skip and evaluation logs, got %q", logs.String())
	}
}

func TestMeasureSkipPolicyStillFailsOnOtherErrors(t *testing.T) {
	service := NewService(nil)
	boom := errors.New("boom")
	service.ReadFile = func(string) (string, error) { return "", boom }

	_, err := service.Measure(context.Background(), []string{"a.rs"}, Options{OnParseError: PolicySkip})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMeasureHonorsCancelledContext(t *testing.T) {
	paths := writeSources(t, map[string]string{"a.rs": "fn a() {}\n", "b.rs": "fn b() {}\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(nil).Measure(ctx, paths, Options{Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMeasureNoFiles(t *testing.T) {
	result, err := NewService(nil).Measure(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if !result.Total.IsZero() {
		t.Fatalf("expected zero total, got %+v", result.Total)
	}
}

func TestParsePolicy(t *testing.T) {
	if policy, err := ParsePolicy(" Skip "); err != nil || policy != PolicySkip {
		t.Fatalf("expected skip, got %q (%v)", policy, err)
	}
	if policy, err := ParsePolicy(""); err != nil || policy != PolicyFail {
		t.Fatalf("expected fail default, got %q (%v)", policy, err)
	}
	if _, err := ParsePolicy("retry"); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestResolveWorkers(t *testing.T) {
	if got := resolveWorkers(8, 3); got != 3 {
		t.Fatalf("expected workers capped at file count, got %d", got)
	}
	if got := resolveWorkers(4, 0); got != 1 {
		t.Fatalf("expected at least one worker, got %d", got)
	}
	if got := resolveWorkers(0, 1000); got < 1 {
		t.Fatalf("expected GOMAXPROCS default, got %d", got)
	}
}
