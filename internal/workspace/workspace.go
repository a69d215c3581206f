package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ben-ranford/unsafety/internal/safeio"
)

const (
	cargoTomlName      = "Cargo.toml"
	sourceDirName      = "src"
	rustExt            = ".rs"
	DefaultMaxFileSize = 2 * 1024 * 1024
)

var (
	ErrNotDirectory = errors.New("project root is not a directory")
	ErrNotFile      = errors.New("path is not a regular file")
	ErrNoSources    = errors.New("no Rust source directory found")
)

type Options struct {
	FollowSymlinks bool
	Include        []string
	Exclude        []string
	MaxFileSize    int64
}

// Discovery is the ordered set of Rust files selected for a run.
type Discovery struct {
	Root     string
	Files    []string
	Warnings []string
}

type cargoManifest struct {
	Workspace *cargoWorkspace `toml:"workspace"`
}

type cargoWorkspace struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

func NormalizeRepoPath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	return filepath.Abs(path)
}

// DiscoverFile selects exactly one file, whatever its extension.
func DiscoverFile(path string) (Discovery, error) {
	abs, err := NormalizeRepoPath(path)
	if err != nil {
		return Discovery{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Discovery{}, err
	}
	if !info.Mode().IsRegular() {
		return Discovery{}, fmt.Errorf("%w: %s", ErrNotFile, abs)
	}
	return Discovery{Root: filepath.Dir(abs), Files: []string{abs}}, nil
}

// Discover lists the .rs files under <root>/src and under the src directory
// of every Cargo workspace member. Hidden entries are skipped; symlinks are
// followed when requested, with each real directory walked at most once.
func Discover(root string, opts Options) (Discovery, error) {
	rootAbs, err := NormalizeRepoPath(root)
	if err != nil {
		return Discovery{}, err
	}
	info, err := os.Stat(rootAbs)
	if err != nil {
		return Discovery{}, err
	}
	if !info.IsDir() {
		return Discovery{}, fmt.Errorf("%w: %s", ErrNotDirectory, rootAbs)
	}

	scope, err := newPathScope(opts.Include, opts.Exclude)
	if err != nil {
		return Discovery{}, err
	}
	sourceRoots, warnings, err := discoverSourceRoots(rootAbs)
	if err != nil {
		return Discovery{}, err
	}
	if len(sourceRoots) == 0 {
		return Discovery{}, fmt.Errorf("%w under %s", ErrNoSources, rootAbs)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	w := &walker{
		root:     rootAbs,
		follow:   opts.FollowSymlinks,
		maxSize:  maxSize,
		scope:    scope,
		visited:  make(map[string]struct{}),
		seen:     make(map[string]struct{}),
		warnings: warnings,
	}
	for _, sourceRoot := range sourceRoots {
		if err := w.walkTree(sourceRoot); err != nil {
			return Discovery{}, fmt.Errorf("walk %s: %w", sourceRoot, err)
		}
	}

	sort.Strings(w.files)
	return Discovery{
		Root:     rootAbs,
		Files:    w.files,
		Warnings: append(w.warnings, scope.warnings()...),
	}, nil
}

func discoverSourceRoots(rootAbs string) ([]string, []string, error) {
	roots := make([]string, 0, 1)
	warnings := make([]string, 0)
	if isDir(filepath.Join(rootAbs, sourceDirName)) {
		roots = append(roots, filepath.Join(rootAbs, sourceDirName))
	}

	manifestPath := filepath.Join(rootAbs, cargoTomlName)
	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		return roots, warnings, nil
	} else if err != nil {
		return nil, nil, err
	}

	manifest, err := parseCargoManifest(rootAbs, manifestPath)
	if err != nil {
		return nil, nil, err
	}
	if manifest.Workspace == nil {
		return roots, warnings, nil
	}

	excluded := make(map[string]struct{}, len(manifest.Workspace.Exclude))
	for _, pattern := range manifest.Workspace.Exclude {
		for _, member := range resolveWorkspaceMembers(rootAbs, pattern) {
			excluded[member] = struct{}{}
		}
	}
	for _, pattern := range manifest.Workspace.Members {
		members := resolveWorkspaceMembers(rootAbs, pattern)
		if len(members) == 0 {
			warnings = append(warnings, fmt.Sprintf("workspace member pattern %q did not resolve to a Cargo.toml", pattern))
		}
		for _, member := range members {
			if _, skip := excluded[member]; skip {
				continue
			}
			sourceRoot := filepath.Join(member, sourceDirName)
			if !isDir(sourceRoot) {
				warnings = append(warnings, fmt.Sprintf("workspace member %s has no %s directory", relativeTo(rootAbs, member), sourceDirName))
				continue
			}
			roots = append(roots, sourceRoot)
		}
	}
	return uniquePaths(roots), warnings, nil
}

func parseCargoManifest(rootAbs, manifestPath string) (cargoManifest, error) {
	content, err := safeio.ReadFileUnder(rootAbs, manifestPath)
	if err != nil {
		return cargoManifest{}, fmt.Errorf("read %s: %w", cargoTomlName, err)
	}
	var manifest cargoManifest
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return cargoManifest{}, fmt.Errorf("parse %s: %w", manifestPath, err)
	}
	return manifest, nil
}

func resolveWorkspaceMembers(rootAbs, pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(rootAbs, pattern))
	if err != nil {
		return nil
	}
	members := make([]string, 0, len(matches))
	for _, match := range matches {
		match = filepath.Clean(match)
		if !isDir(match) || !isSubPath(rootAbs, match) {
			continue
		}
		if _, err := os.Stat(filepath.Join(match, cargoTomlName)); err != nil {
			continue
		}
		members = append(members, match)
	}
	return uniquePaths(members)
}

type walker struct {
	root     string
	follow   bool
	maxSize  int64
	scope    *pathScope
	visited  map[string]struct{}
	seen     map[string]struct{}
	files    []string
	warnings []string
}

// walkTree walks the real directory behind displayRoot while reporting
// entries by their path under displayRoot.
func (w *walker) walkTree(displayRoot string) error {
	realRoot, err := filepath.EvalSymlinks(displayRoot)
	if err != nil {
		return err
	}
	if _, ok := w.visited[realRoot]; ok {
		return nil
	}

	return filepath.WalkDir(realRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(realRoot, path)
		if err != nil {
			return err
		}
		display := filepath.Join(displayRoot, rel)

		if path != realRoot && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if _, ok := w.visited[path]; ok {
				return filepath.SkipDir
			}
			w.visited[path] = struct{}{}
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return w.followLink(path, display)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		w.consider(path, display, display, info.Size())
		return nil
	})
}

func (w *walker) followLink(path, display string) error {
	if !w.follow {
		return nil
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.warnings = append(w.warnings, "skipped broken symlink "+relativeTo(w.root, display))
		return nil
	}
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.walkTree(display)
	}
	if info.Mode().IsRegular() {
		w.consider(target, display, target, info.Size())
	}
	return nil
}

// consider records readPath once per real file. Files reached through a
// symlinked file are read from their target.
func (w *walker) consider(realPath, display, readPath string, size int64) {
	if filepath.Ext(display) != rustExt {
		return
	}
	rel := relativeTo(w.root, display)
	if !w.scope.keep(rel) {
		return
	}
	if size > w.maxSize {
		w.warnings = append(w.warnings, fmt.Sprintf("skipped %s: %d bytes exceeds the %d byte limit", rel, size, w.maxSize))
		return
	}
	if _, ok := w.seen[realPath]; ok {
		return
	}
	w.seen[realPath] = struct{}{}
	w.files = append(w.files, readPath)
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isSubPath(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func uniquePaths(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = filepath.Clean(strings.TrimSpace(value))
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}
