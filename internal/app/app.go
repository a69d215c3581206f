package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ben-ranford/unsafety/internal/analysis"
	"github.com/ben-ranford/unsafety/internal/logging"
	"github.com/ben-ranford/unsafety/internal/report"
	"github.com/ben-ranford/unsafety/internal/safeio"
	"github.com/ben-ranford/unsafety/internal/stats"
	"github.com/ben-ranford/unsafety/internal/workspace"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

var (
	ErrUnknownMode        = errors.New("unknown mode")
	ErrThresholdExceeded  = errors.New("unsafety threshold exceeded")
	ErrNothingToAggregate = errors.New("no stats records to aggregate")
)

type App struct {
	NewMeasurer func(logger *slog.Logger) analysis.Measurer
	Formatter   report.Formatter
	LogOutput   io.Writer
}

func New(logOutput io.Writer) *App {
	if logOutput == nil {
		logOutput = os.Stderr
	}
	return &App{
		NewMeasurer: func(logger *slog.Logger) analysis.Measurer {
			return analysis.NewService(logger)
		},
		Formatter: report.NewFormatter(),
		LogOutput: logOutput,
	}
}

func (a *App) Execute(ctx context.Context, req Request) (string, error) {
	switch req.Mode {
	case ModeMeasure:
		return a.executeMeasure(ctx, req)
	case ModeAggregate:
		return a.executeAggregate(req)
	case ModeVersion:
		return "unsafety " + Version + "\n", nil
	default:
		return "", ErrUnknownMode
	}
}

func (a *App) logger(req Request) *slog.Logger {
	return logging.New(logging.Config{
		Level:  req.Log.Level,
		Format: req.Log.Format,
		Output: a.LogOutput,
	})
}

func (a *App) executeMeasure(ctx context.Context, req Request) (string, error) {
	logger := a.logger(req)
	settings := req.Measure.Settings

	discovery, err := discover(req.Measure)
	if err != nil {
		return "", err
	}
	for _, warning := range discovery.Warnings {
		logger.Warn("discovery", "detail", warning)
	}
	logger.Debug("discovered files", "root", discovery.Root, "count", len(discovery.Files))

	policy, err := analysis.ParsePolicy(settings.OnParseError)
	if err != nil {
		return "", err
	}
	result, err := a.NewMeasurer(logger).Measure(ctx, discovery.Files, analysis.Options{
		Workers:      settings.Workers,
		OnParseError: policy,
	})
	if err != nil {
		return "", err
	}
	if len(result.Skipped) > 0 {
		logger.Warn("skipped files", "count", len(result.Skipped))
	}

	formatted, err := a.Formatter.Format(result.Total, req.Format)
	if err != nil {
		return "", err
	}
	if err := validateThresholds(result.Total, req.Measure); err != nil {
		return formatted, err
	}
	return formatted, nil
}

func discover(req MeasureRequest) (workspace.Discovery, error) {
	if req.SingleFile {
		return workspace.DiscoverFile(req.Path)
	}
	return workspace.Discover(req.Path, workspace.Options{
		FollowSymlinks: req.Settings.FollowSymlinks,
		Include:        req.Include,
		Exclude:        req.Exclude,
	})
}

func validateThresholds(total stats.Stats, req MeasureRequest) error {
	if req.Settings.ScoreExceeded(total.UnsafeScore) {
		return fmt.Errorf("%w: unsafe_score %d is above max_unsafe_score %d", ErrThresholdExceeded, total.UnsafeScore, req.Settings.MaxUnsafeScore)
	}
	if req.Settings.OtherExceeded(total.UnsafeOther) {
		return fmt.Errorf("%w: unsafe_other %d is above max_unsafe_other %d", ErrThresholdExceeded, total.UnsafeOther, req.Settings.MaxUnsafeOther)
	}
	return nil
}

// executeAggregate merges previously rendered JSON records.
func (a *App) executeAggregate(req Request) (string, error) {
	if len(req.Aggregate.Paths) == 0 {
		return "", ErrNothingToAggregate
	}
	logger := a.logger(req)
	records := make([]stats.Stats, 0, len(req.Aggregate.Paths))
	for _, path := range req.Aggregate.Paths {
		record, err := loadRecord(path)
		if err != nil {
			return "", err
		}
		logger.Debug("loaded stats record", "path", path, "stats", record)
		records = append(records, record)
	}
	return a.Formatter.Format(stats.Sum(records...), req.Format)
}

func loadRecord(path string) (stats.Stats, error) {
	data, err := safeio.ReadFile(path)
	if err != nil {
		return stats.Stats{}, &safeio.InputError{Path: path, Err: err}
	}
	record, err := report.Decode(bytes.NewReader(data))
	if err != nil {
		return stats.Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}
