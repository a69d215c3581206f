package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ben-ranford/unsafety/internal/app"
	"github.com/ben-ranford/unsafety/internal/config"
	"github.com/ben-ranford/unsafety/internal/logging"
	"github.com/ben-ranford/unsafety/internal/report"
)

var (
	ErrHelpRequested  = errors.New("help requested")
	ErrMissingCommand = errors.New("missing command")
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose   bool
	logFormat string
}

type measureFlags struct {
	file           bool
	format         string
	configPath     string
	workers        int
	onParseError   string
	followSymlinks bool
	include        []string
	exclude        []string
	maxUnsafeScore int64
	maxUnsafeOther int64
}

type aggregateFlags struct {
	format string
}

// parser collects the request built by whichever subcommand cobra runs.
type parser struct {
	req    app.Request
	parsed bool
	global globalFlags
}

func ParseArgs(args []string) (app.Request, error) {
	p := &parser{req: app.DefaultRequest()}
	if len(args) == 0 {
		return p.req, ErrMissingCommand
	}

	root := p.newRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		return p.req, err
	}
	if !p.parsed {
		return p.req, ErrHelpRequested
	}
	return p.req, nil
}

func (p *parser) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "unsafety",
		Short:         "Measure unsafe Rust usage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&p.global.verbose, "verbose", "v", false, "log per-file stats to stderr")
	rootCmd.PersistentFlags().StringVar(&p.global.logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(p.newMeasureCmd())
	rootCmd.AddCommand(p.newAggregateCmd())
	rootCmd.AddCommand(p.newVersionCmd())
	return rootCmd
}

func (p *parser) newMeasureCmd() *cobra.Command {
	defaults := config.Defaults()
	flags := measureFlags{
		format:         string(report.FormatJSON),
		workers:        defaults.Workers,
		onParseError:   defaults.OnParseError,
		followSymlinks: defaults.FollowSymlinks,
		maxUnsafeScore: defaults.MaxUnsafeScore,
		maxUnsafeOther: defaults.MaxUnsafeOther,
	}

	measureCmd := &cobra.Command{
		Use:   "measure <project_root>",
		Short: "Measure the Rust sources of a project, or one file with --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := p.buildMeasureRequest(cmd, flags, args[0])
			if err != nil {
				return err
			}
			p.req = req
			p.parsed = true
			return nil
		},
	}

	measureCmd.Flags().BoolVarP(&flags.file, "file", "f", false, "treat the argument as a single source file")
	measureCmd.Flags().StringVar(&flags.format, "format", flags.format, "output format: json, yaml or table")
	measureCmd.Flags().StringVar(&flags.configPath, "config", "", "config file path")
	measureCmd.Flags().IntVar(&flags.workers, "workers", flags.workers, "parallel workers (0 uses GOMAXPROCS)")
	measureCmd.Flags().StringVar(&flags.onParseError, "on-parse-error", flags.onParseError, "fail or skip files that do not parse")
	measureCmd.Flags().BoolVar(&flags.followSymlinks, "follow-symlinks", flags.followSymlinks, "follow symbolic links during discovery")
	measureCmd.Flags().StringArrayVar(&flags.include, "include", nil, "only measure files matching this glob (repeatable)")
	measureCmd.Flags().StringArrayVar(&flags.exclude, "exclude", nil, "skip files matching this glob (repeatable)")
	measureCmd.Flags().Int64Var(&flags.maxUnsafeScore, "max-unsafe-score", flags.maxUnsafeScore, "exit 3 when unsafe_score is above this value (-1 disables)")
	measureCmd.Flags().Int64Var(&flags.maxUnsafeOther, "max-unsafe-other", flags.maxUnsafeOther, "exit 3 when unsafe_other is above this value (-1 disables)")
	return measureCmd
}

func (p *parser) buildMeasureRequest(cmd *cobra.Command, flags measureFlags, target string) (app.Request, error) {
	req := app.DefaultRequest()
	if err := p.applyCommon(&req, flags.format); err != nil {
		return req, err
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return req, fmt.Errorf("project root must not be empty")
	}
	configRoot := target
	if flags.file {
		configRoot = filepath.Dir(target)
	}

	loaded, err := config.Load(configRoot, flags.configPath)
	if err != nil {
		return req, err
	}

	changed := cmd.Flags().Changed
	cliOverrides := config.Overrides{}
	if changed("workers") {
		cliOverrides.Workers = &flags.workers
	}
	if changed("on-parse-error") {
		policy := strings.ToLower(strings.TrimSpace(flags.onParseError))
		cliOverrides.OnParseError = &policy
	}
	if changed("follow-symlinks") {
		cliOverrides.FollowSymlinks = &flags.followSymlinks
	}
	if changed("max-unsafe-score") {
		cliOverrides.MaxUnsafeScore = &flags.maxUnsafeScore
	}
	if changed("max-unsafe-other") {
		cliOverrides.MaxUnsafeOther = &flags.maxUnsafeOther
	}
	if err := cliOverrides.Validate(); err != nil {
		return req, err
	}
	resolved := cliOverrides.Apply(loaded.Resolved)
	if err := resolved.Validate(); err != nil {
		return req, err
	}

	scope := config.MergeScope(loaded.Scope, config.PathScope{Include: flags.include, Exclude: flags.exclude})
	req.Mode = app.ModeMeasure
	req.Measure = app.MeasureRequest{
		Path:       target,
		SingleFile: flags.file,
		ConfigPath: loaded.ConfigPath,
		Include:    scope.Include,
		Exclude:    scope.Exclude,
		Settings:   resolved,
	}
	return req, nil
}

func (p *parser) newAggregateCmd() *cobra.Command {
	flags := aggregateFlags{format: string(report.FormatJSON)}
	aggregateCmd := &cobra.Command{
		Use:   "aggregate <stats.json>...",
		Short: "Merge stats records written by measure --format json",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := app.DefaultRequest()
			if err := p.applyCommon(&req, flags.format); err != nil {
				return err
			}
			req.Mode = app.ModeAggregate
			req.Aggregate = app.AggregateRequest{Paths: append([]string{}, args...)}
			p.req = req
			p.parsed = true
			return nil
		},
	}
	aggregateCmd.Flags().StringVar(&flags.format, "format", flags.format, "output format: json, yaml or table")
	return aggregateCmd
}

func (p *parser) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p.req = app.DefaultRequest()
			p.req.Mode = app.ModeVersion
			p.parsed = true
			return nil
		},
	}
}

// applyCommon resolves the output format and the shared logging flags.
func (p *parser) applyCommon(req *app.Request, format string) error {
	parsedFormat, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	logFormat, err := logging.ParseFormat(p.global.logFormat)
	if err != nil {
		return err
	}
	req.Format = parsedFormat
	req.Log.Format = logFormat
	if p.global.verbose {
		req.Log.Level = logging.LevelDebug
	}
	return nil
}
