package cli

const usage = `Usage:
  unsafety measure <project_root> [--format json|yaml|table] [--config PATH] [--workers N] [--on-parse-error fail|skip]
  unsafety measure --file <path> [--format json|yaml|table]
  unsafety aggregate <stats.json>... [--format json|yaml|table]
  unsafety version

Options:
  -f, --file                 Measure a single file instead of <project_root>/src
  --format json|yaml|table   Output format (default: json)
  --config PATH              Config file (default: .unsafety.yml, .unsafety.yaml or unsafety.json in the root)
  --workers N                Parallel workers, 0 uses GOMAXPROCS (default: 0)
  --on-parse-error fail|skip Abort on the first unparsable file or skip it (default: fail)
  --follow-symlinks          Follow symbolic links during discovery (default: true)
  --include GLOB             Only measure matching project-relative paths (repeatable)
  --exclude GLOB             Skip matching project-relative paths (repeatable)
  --max-unsafe-score N       Exit 3 when unsafe_score is above N (default: -1, disabled)
  --max-unsafe-other N       Exit 3 when unsafe_other is above N (default: -1, disabled)
  -v, --verbose              Log per-file stats to stderr
  --log-format text|json     Log format (default: text)
  -h, --help                 Show this help text

Exit codes:
  0 success, 1 runtime error, 2 usage error, 3 threshold exceeded
`

func Usage() string {
	return usage
}
