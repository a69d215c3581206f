package config

import (
	"fmt"
	"strings"
)

const (
	PolicyFail = "fail"
	PolicySkip = "skip"

	// ThresholdDisabled turns a max_* gate off.
	ThresholdDisabled int64 = -1

	DefaultOnParseError   = PolicyFail
	DefaultWorkers        = 0
	DefaultFollowSymlinks = true
	DefaultMaxUnsafeScore = ThresholdDisabled
	DefaultMaxUnsafeOther = ThresholdDisabled
	maxWorkers            = 1024
)

var parseErrorPolicyValues = []string{PolicyFail, PolicySkip}

type Values struct {
	OnParseError   string
	Workers        int
	FollowSymlinks bool
	MaxUnsafeScore int64
	MaxUnsafeOther int64
}

type Overrides struct {
	OnParseError   *string
	Workers        *int
	FollowSymlinks *bool
	MaxUnsafeScore *int64
	MaxUnsafeOther *int64
}

func Defaults() Values {
	return Values{
		OnParseError:   DefaultOnParseError,
		Workers:        DefaultWorkers,
		FollowSymlinks: DefaultFollowSymlinks,
		MaxUnsafeScore: DefaultMaxUnsafeScore,
		MaxUnsafeOther: DefaultMaxUnsafeOther,
	}
}

func (v *Values) Validate() error {
	if err := validateParseErrorPolicy(v.OnParseError); err != nil {
		return err
	}
	if err := validateWorkers(v.Workers); err != nil {
		return err
	}
	if err := validateThreshold("max_unsafe_score", v.MaxUnsafeScore); err != nil {
		return err
	}
	return validateThreshold("max_unsafe_other", v.MaxUnsafeOther)
}

func (o *Overrides) Apply(base Values) Values {
	resolved := base
	if o.OnParseError != nil {
		resolved.OnParseError = *o.OnParseError
	}
	if o.Workers != nil {
		resolved.Workers = *o.Workers
	}
	if o.FollowSymlinks != nil {
		resolved.FollowSymlinks = *o.FollowSymlinks
	}
	if o.MaxUnsafeScore != nil {
		resolved.MaxUnsafeScore = *o.MaxUnsafeScore
	}
	if o.MaxUnsafeOther != nil {
		resolved.MaxUnsafeOther = *o.MaxUnsafeOther
	}
	return resolved
}

func (o *Overrides) Validate() error {
	if o.OnParseError != nil {
		if err := validateParseErrorPolicy(*o.OnParseError); err != nil {
			return err
		}
	}
	if o.Workers != nil {
		if err := validateWorkers(*o.Workers); err != nil {
			return err
		}
	}
	if o.MaxUnsafeScore != nil {
		if err := validateThreshold("max_unsafe_score", *o.MaxUnsafeScore); err != nil {
			return err
		}
	}
	if o.MaxUnsafeOther != nil {
		if err := validateThreshold("max_unsafe_other", *o.MaxUnsafeOther); err != nil {
			return err
		}
	}
	return nil
}

// ScoreExceeded reports whether score breaks the max_unsafe_score gate.
func (v Values) ScoreExceeded(score uint64) bool {
	return exceeds(v.MaxUnsafeScore, score)
}

// OtherExceeded reports whether other breaks the max_unsafe_other gate.
func (v Values) OtherExceeded(other uint64) bool {
	return exceeds(v.MaxUnsafeOther, other)
}

func exceeds(limit int64, value uint64) bool {
	if limit < 0 {
		return false
	}
	return value > uint64(limit)
}

func validateParseErrorPolicy(value string) error {
	for _, allowed := range parseErrorPolicyValues {
		if value == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid on_parse_error: %q (must be one of: %s)", value, strings.Join(parseErrorPolicyValues, ", "))
}

func validateWorkers(value int) error {
	if value < 0 || value > maxWorkers {
		return fmt.Errorf("invalid workers: %d (must be between 0 and %d)", value, maxWorkers)
	}
	return nil
}

func validateThreshold(name string, value int64) error {
	if value < ThresholdDisabled {
		return fmt.Errorf("invalid threshold %s: %d (must be >= 0, or -1 to disable)", name, value)
	}
	return nil
}
