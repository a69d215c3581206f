package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ben-ranford/unsafety/internal/testutil"
)

const (
	loadConfigErrFmt = "load config: %v"
	unsafetyYMLName  = ".unsafety.yml"
	unsafetyYAMLName = ".unsafety.yaml"
	unsafetyJSONName = "unsafety.json"
)

func TestLoadNoConfigFile(t *testing.T) {
	result, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.ConfigPath != "" {
		t.Fatalf("expected no config path, got %q", result.ConfigPath)
	}
	if result.Resolved != Defaults() {
		t.Fatalf("expected defaults, got %+v", result.Resolved)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	repo := t.TempDir()
	cfg := strings.Join([]string{
		"on_parse_error: Skip",
		"workers: 3",
		"follow_symlinks: false",
		"scope:",
		"  include: [\"src/**\", \"src/**\", \" \"]",
		"  exclude: [\"src/generated/**\"]",
		"thresholds:",
		"  max_unsafe_score: 100",
		"  max_unsafe_other: 0",
		"",
	}, "\n")
	testutil.MustWriteFile(t, filepath.Join(repo, unsafetyYMLName), cfg)

	result, err := Load(repo, "")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if !strings.HasSuffix(result.ConfigPath, unsafetyYMLName) {
		t.Fatalf("expected %s path, got %q", unsafetyYMLName, result.ConfigPath)
	}
	want := Values{
		OnParseError:   PolicySkip,
		Workers:        3,
		FollowSymlinks: false,
		MaxUnsafeScore: 100,
		MaxUnsafeOther: 0,
	}
	if result.Resolved != want {
		t.Fatalf("expected %+v, got %+v", want, result.Resolved)
	}
	if !reflect.DeepEqual(result.Scope.Include, []string{"src/**"}) {
		t.Fatalf("expected deduplicated include, got %v", result.Scope.Include)
	}
	if !reflect.DeepEqual(result.Scope.Exclude, []string{"src/generated/**"}) {
		t.Fatalf("unexpected exclude: %v", result.Scope.Exclude)
	}
}

func TestLoadJSONConfig(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, unsafetyJSONName), `{"workers": 2, "thresholds": {"max_unsafe_score": 7}}`)

	result, err := Load(repo, "")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.Resolved.Workers != 2 || result.Resolved.MaxUnsafeScore != 7 {
		t.Fatalf("unexpected values: %+v", result.Resolved)
	}
	if result.Resolved.MaxUnsafeOther != ThresholdDisabled {
		t.Fatalf("expected max_unsafe_other to stay disabled, got %d", result.Resolved.MaxUnsafeOther)
	}
}

func TestLoadPrefersYMLOverOtherNames(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, unsafetyYAMLName), "workers: 5\n")
	testutil.MustWriteFile(t, filepath.Join(repo, unsafetyJSONName), `{"workers": 6}`)

	result, err := Load(repo, "")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.Resolved.Workers != 5 {
		t.Fatalf("expected %s to win, got workers=%d", unsafetyYAMLName, result.Resolved.Workers)
	}
}

func TestLoadEmptyYAMLUsesDefaults(t *testing.T) {
	repo := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(repo, unsafetyYMLName), "")

	result, err := Load(repo, "")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.Resolved != Defaults() {
		t.Fatalf("expected defaults, got %+v", result.Resolved)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	repo := t.TempDir()
	outside := filepath.Join(t.TempDir(), "ci.yml")
	testutil.MustWriteFile(t, outside, "on_parse_error: skip\n")

	result, err := Load(repo, outside)
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.ConfigPath != outside || result.Resolved.OnParseError != PolicySkip {
		t.Fatalf("unexpected result: %+v", result)
	}

	testutil.MustWriteFile(t, filepath.Join(repo, "conf", "custom.yml"), "workers: 9\n")
	result, err = Load(repo, "conf/custom.yml")
	if err != nil {
		t.Fatalf(loadConfigErrFmt, err)
	}
	if result.Resolved.Workers != 9 {
		t.Fatalf("expected relative explicit path to resolve under repo, got %+v", result.Resolved)
	}

	if _, err := Load(repo, "missing.yml"); err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("expected missing explicit config error, got %v", err)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "unknown yaml key", file: unsafetyYMLName, content: "wrokers: 2\n", want: "invalid YAML config"},
		{name: "unknown json key", file: unsafetyJSONName, content: `{"wrokers": 2}`, want: "invalid JSON config"},
		{name: "multiple json values", file: unsafetyJSONName, content: `{"workers": 2}{"workers": 3}`, want: "multiple JSON values"},
		{name: "bad policy", file: unsafetyYMLName, content: "on_parse_error: ignore\n", want: "invalid on_parse_error"},
		{name: "negative workers", file: unsafetyYMLName, content: "workers: -1\n", want: "invalid workers"},
		{name: "threshold below disabled", file: unsafetyYMLName, content: "thresholds:\n  max_unsafe_score: -2\n", want: "max_unsafe_score"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(repo, tc.file), tc.content)
			_, err := Load(repo, "")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
			if !strings.Contains(err.Error(), "parse config file") {
				t.Fatalf("expected config path context, got %v", err)
			}
		})
	}
}

func TestMergeScope(t *testing.T) {
	base := PathScope{Include: []string{"src/**"}, Exclude: []string{"src/gen/**"}}
	merged := MergeScope(base, PathScope{Exclude: []string{"src/ffi/**"}})
	if !reflect.DeepEqual(merged.Include, []string{"src/**"}) {
		t.Fatalf("expected include kept, got %v", merged.Include)
	}
	if !reflect.DeepEqual(merged.Exclude, []string{"src/ffi/**"}) {
		t.Fatalf("expected exclude replaced, got %v", merged.Exclude)
	}
}
