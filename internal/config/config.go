package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ben-ranford/unsafety/internal/safeio"
)

const (
	readConfigFileErrFmt = "read config file %s: %w"
	parseConfigErrFmt    = "parse config file %s: %w"
)

// FileNames are the config files looked up in the project root, in order.
var FileNames = []string{".unsafety.yml", ".unsafety.yaml", "unsafety.json"}

type LoadResult struct {
	Overrides  Overrides
	Resolved   Values
	Scope      PathScope
	ConfigPath string
}

type PathScope struct {
	Include []string
	Exclude []string
}

// Load resolves the config for repoPath. An explicit path wins over the
// default file names and must exist; with no config file Load returns the
// defaults.
func Load(repoPath, explicitPath string) (LoadResult, error) {
	repoAbs, err := filepath.Abs(repoPath)
	if err != nil {
		return LoadResult{}, fmt.Errorf("resolve repo path: %w", err)
	}
	explicitPath = strings.TrimSpace(explicitPath)

	configPath, found, err := resolveConfigPath(repoAbs, explicitPath)
	if err != nil {
		return LoadResult{}, err
	}
	if !found {
		return LoadResult{Resolved: Defaults()}, nil
	}

	data, err := readConfigFile(repoAbs, configPath, explicitPath != "")
	if err != nil {
		return LoadResult{}, fmt.Errorf(readConfigFileErrFmt, configPath, err)
	}
	cfg, err := parseConfig(configPath, data)
	if err != nil {
		return LoadResult{}, fmt.Errorf(parseConfigErrFmt, configPath, err)
	}

	overrides := cfg.toOverrides()
	if err := overrides.Validate(); err != nil {
		return LoadResult{}, fmt.Errorf(parseConfigErrFmt, configPath, err)
	}
	resolved := overrides.Apply(Defaults())
	if err := resolved.Validate(); err != nil {
		return LoadResult{}, fmt.Errorf(parseConfigErrFmt, configPath, err)
	}

	return LoadResult{
		Overrides:  overrides,
		Resolved:   resolved,
		Scope:      cfg.Scope.toPathScope(),
		ConfigPath: configPath,
	}, nil
}

func resolveConfigPath(repoPath, explicitPath string) (string, bool, error) {
	if explicitPath != "" {
		candidate := explicitPath
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(repoPath, candidate)
		}
		candidate = filepath.Clean(candidate)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file not found: %s", candidate)
			}
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
		return candidate, true, nil
	}

	for _, name := range FileNames {
		candidate := filepath.Join(repoPath, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !os.IsNotExist(err) {
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
	}
	return "", false, nil
}

func readConfigFile(repoPath, path string, explicitProvided bool) ([]byte, error) {
	if !explicitProvided || isPathUnderRoot(repoPath, path) {
		return safeio.ReadFileUnder(repoPath, path)
	}
	return safeio.ReadFile(path)
}

func parseConfig(path string, data []byte) (rawConfig, error) {
	var cfg rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return rawConfig{}, fmt.Errorf("invalid JSON config: %w", err)
		}
		if decoder.More() {
			return rawConfig{}, fmt.Errorf("invalid JSON config: multiple JSON values")
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return rawConfig{}, fmt.Errorf("invalid YAML config: %w", err)
		}
	}
	return cfg, nil
}

type rawConfig struct {
	OnParseError   *string       `yaml:"on_parse_error" json:"on_parse_error"`
	Workers        *int          `yaml:"workers" json:"workers"`
	FollowSymlinks *bool         `yaml:"follow_symlinks" json:"follow_symlinks"`
	Scope          rawScope      `yaml:"scope" json:"scope"`
	Thresholds     rawThresholds `yaml:"thresholds" json:"thresholds"`
}

type rawScope struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

type rawThresholds struct {
	MaxUnsafeScore *int64 `yaml:"max_unsafe_score" json:"max_unsafe_score"`
	MaxUnsafeOther *int64 `yaml:"max_unsafe_other" json:"max_unsafe_other"`
}

func (c *rawConfig) toOverrides() Overrides {
	var policy *string
	if c.OnParseError != nil {
		normalized := strings.ToLower(strings.TrimSpace(*c.OnParseError))
		policy = &normalized
	}
	return Overrides{
		OnParseError:   policy,
		Workers:        c.Workers,
		FollowSymlinks: c.FollowSymlinks,
		MaxUnsafeScore: c.Thresholds.MaxUnsafeScore,
		MaxUnsafeOther: c.Thresholds.MaxUnsafeOther,
	}
}

func (s rawScope) toPathScope() PathScope {
	return PathScope{
		Include: normalizePathPatterns(s.Include),
		Exclude: normalizePathPatterns(s.Exclude),
	}
}

func normalizePathPatterns(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(patterns))
	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

// MergeScope replaces each side of base that higher sets.
func MergeScope(base, higher PathScope) PathScope {
	merged := base
	if len(higher.Include) > 0 {
		merged.Include = append([]string{}, higher.Include...)
	}
	if len(higher.Exclude) > 0 {
		merged.Exclude = append([]string{}, higher.Exclude...)
	}
	return merged
}

func isPathUnderRoot(rootPath, targetPath string) bool {
	relative, err := filepath.Rel(rootPath, targetPath)
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(os.PathSeparator))
}
