package workspace

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const maxScopeDiagnostics = 5

type compiledPattern struct {
	pattern string
	regex   *regexp.Regexp
}

// pathScope filters project-relative slash paths by include and exclude
// globs. "**/" spans directories, "*" and "?" stay within one segment.
type pathScope struct {
	include        []compiledPattern
	exclude        []compiledPattern
	includeMatches map[string]int
	excludeMatches map[string]int
	diagnostics    []string
	kept           int
	total          int
}

func newPathScope(includePatterns, excludePatterns []string) (*pathScope, error) {
	include, err := compileGlobPatterns(normalizePatterns(includePatterns))
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobPatterns(normalizePatterns(excludePatterns))
	if err != nil {
		return nil, err
	}
	return &pathScope{
		include:        include,
		exclude:        exclude,
		includeMatches: make(map[string]int, len(include)),
		excludeMatches: make(map[string]int, len(exclude)),
		diagnostics:    make([]string, 0, maxScopeDiagnostics),
	}, nil
}

func (s *pathScope) active() bool {
	return len(s.include) > 0 || len(s.exclude) > 0
}

func (s *pathScope) keep(slashed string) bool {
	s.total++
	includeMatched, includePattern := matchFirstCompiledPattern(slashed, s.include)
	excludeMatched, excludePattern := matchFirstCompiledPattern(slashed, s.exclude)
	if includeMatched {
		s.includeMatches[includePattern]++
	}
	if excludeMatched {
		s.excludeMatches[excludePattern]++
	}

	switch {
	case excludeMatched:
		s.recordSkip(slashed, "matched exclude pattern "+excludePattern)
		return false
	case len(s.include) > 0 && !includeMatched:
		s.recordSkip(slashed, "did not match include patterns")
		return false
	}
	s.kept++
	return true
}

func (s *pathScope) recordSkip(slashed, reason string) {
	if len(s.diagnostics) >= maxScopeDiagnostics {
		return
	}
	s.diagnostics = append(s.diagnostics, slashed+" ("+reason+")")
}

func (s *pathScope) warnings() []string {
	if !s.active() {
		return nil
	}
	warnings := []string{fmt.Sprintf("scope applied: kept %d/%d files", s.kept, s.total)}
	if len(s.include) > 0 {
		warnings = append(warnings, "scope include matches: "+formatPatternMatches(s.include, s.includeMatches))
	}
	if len(s.exclude) > 0 {
		warnings = append(warnings, "scope exclude matches: "+formatPatternMatches(s.exclude, s.excludeMatches))
	}
	for _, item := range s.diagnostics {
		warnings = append(warnings, "scope skipped file: "+item)
	}
	return warnings
}

func normalizePatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, filepath.ToSlash(trimmed))
	}
	return result
}

func compileGlobPatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		regex, err := regexp.Compile(globToRegexp(pattern))
		if err != nil {
			return nil, fmt.Errorf("compile scope pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, regex: regex})
	}
	return compiled, nil
}

func matchFirstCompiledPattern(path string, patterns []compiledPattern) (bool, string) {
	for _, pattern := range patterns {
		if pattern.regex.MatchString(path) {
			return true, pattern.pattern
		}
	}
	return false, ""
}

func globToRegexp(pattern string) string {
	var builder strings.Builder
	builder.Grow(len(pattern) * 2)
	builder.WriteString("^")
	for index := 0; index < len(pattern); index++ {
		char := pattern[index]
		switch {
		case char == '*':
			segment, next := asteriskSegment(pattern, index)
			builder.WriteString(segment)
			index = next
		case char == '?':
			builder.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\\`, rune(char)) {
				builder.WriteByte('\\')
			}
			builder.WriteByte(char)
		}
	}
	builder.WriteString("$")
	return builder.String()
}

func asteriskSegment(pattern string, index int) (string, int) {
	if index+1 < len(pattern) && pattern[index+1] == '*' {
		if index+2 < len(pattern) && pattern[index+2] == '/' {
			return "(?:.*/)?", index + 2
		}
		return ".*", index + 1
	}
	return "[^/]*", index
}

func formatPatternMatches(patterns []compiledPattern, matches map[string]int) string {
	parts := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		parts = append(parts, fmt.Sprintf("%s=%d", pattern.pattern, matches[pattern.pattern]))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
