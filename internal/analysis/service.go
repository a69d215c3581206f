package analysis

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ben-ranford/unsafety/internal/logging"
	"github.com/ben-ranford/unsafety/internal/safeio"
	"github.com/ben-ranford/unsafety/internal/stats"
)

type Measurer interface {
	Measure(ctx context.Context, files []string, opts Options) (Result, error)
}

type Service struct {
	Logger   *slog.Logger
	ReadFile func(path string) (string, error)
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		Logger:   logger,
		ReadFile: safeio.ReadText,
	}
}

// partial is one worker's private share of the run, folded after all
// workers have stopped.
type partial struct {
	total   stats.Stats
	skipped []FileError
}

// Measure evaluates files on a bounded worker pool. Each worker sums into its
// own partial; partials are reduced once every worker has returned. Under
// PolicyFail the first unreadable or unparsable file cancels the run.
func (s *Service) Measure(ctx context.Context, files []string, opts Options) (Result, error) {
	workers := resolveWorkers(opts.Workers, len(files))
	group, groupCtx := errgroup.WithContext(ctx)

	paths := make(chan string)
	partials := make(chan partial, workers)

	group.Go(func() error {
		defer close(paths)
		for _, path := range files {
			select {
			case paths <- path:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	for range workers {
		group.Go(func() error {
			own := partial{}
			for path := range paths {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				record, err := s.evaluate(groupCtx, path)
				if err != nil {
					if opts.OnParseError == PolicySkip && isPerFileError(err) {
						s.Logger.Warn("skipped file", "path", path, "error", err)
						own.skipped = append(own.skipped, FileError{Path: path, Err: err})
						continue
					}
					return &FileError{Path: path, Err: err}
				}
				s.Logger.Debug("evaluated file", "path", path, "stats", record)
				own.total.Add(record)
			}
			partials <- own
			return nil
		})
	}

	err := group.Wait()
	close(partials)
	if err != nil {
		return Result{}, err
	}
	return reduce(partials), nil
}

func (s *Service) evaluate(ctx context.Context, path string) (stats.Stats, error) {
	text, err := s.ReadFile(path)
	if err != nil {
		return stats.Stats{}, err
	}
	return Evaluate(ctx, text)
}

func reduce(partials <-chan partial) Result {
	var (
		totals []stats.Stats
		result Result
	)
	for p := range partials {
		totals = append(totals, p.total)
		result.Skipped = append(result.Skipped, p.skipped...)
	}
	result.Total = stats.Sum(totals...)

	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Path < result.Skipped[j].Path
	})
	return result
}

func isPerFileError(err error) bool {
	var parseErr *ParseError
	var inputErr *safeio.InputError
	return errors.As(err, &parseErr) || errors.As(err, &inputErr)
}

func resolveWorkers(requested, files int) int {
	workers := requested
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > files {
		workers = files
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
