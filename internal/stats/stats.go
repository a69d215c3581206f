package stats

import "log/slog"

// Stats is the per-file or aggregated unsafety measurement. The zero value is
// the identity element of Merge.
type Stats struct {
	TotalFiles             uint64 `json:"total_files" yaml:"total_files"`
	TotalLines             uint64 `json:"total_lines" yaml:"total_lines"`
	TotalTokens            uint64 `json:"total_tokens" yaml:"total_tokens"`
	TotalStatements        uint64 `json:"total_statements" yaml:"total_statements"`
	UnsafeStatements       uint64 `json:"unsafe_statements" yaml:"unsafe_statements"`
	UnsafeFns              uint64 `json:"unsafe_fns" yaml:"unsafe_fns"`
	UnsafePubFns           uint64 `json:"unsafe_pub_fns" yaml:"unsafe_pub_fns"`
	UnsafeBlocks           uint64 `json:"unsafe_blocks" yaml:"unsafe_blocks"`
	UnsafeImpls            uint64 `json:"unsafe_impls" yaml:"unsafe_impls"`
	UnsafeOther            uint64 `json:"unsafe_other" yaml:"unsafe_other"`
	UnsafeScore            uint64 `json:"unsafe_score" yaml:"unsafe_score"`
	UnsafeLinesLowFidelity uint64 `json:"unsafe_lines_low_fidelity" yaml:"unsafe_lines_low_fidelity"`
}

// Field pairs a serialized key with its value.
type Field struct {
	Name  string
	Value uint64
}

// Fields lists every counter in report order.
func (s Stats) Fields() []Field {
	return []Field{
		{Name: "total_files", Value: s.TotalFiles},
		{Name: "total_lines", Value: s.TotalLines},
		{Name: "total_tokens", Value: s.TotalTokens},
		{Name: "total_statements", Value: s.TotalStatements},
		{Name: "unsafe_statements", Value: s.UnsafeStatements},
		{Name: "unsafe_fns", Value: s.UnsafeFns},
		{Name: "unsafe_pub_fns", Value: s.UnsafePubFns},
		{Name: "unsafe_blocks", Value: s.UnsafeBlocks},
		{Name: "unsafe_impls", Value: s.UnsafeImpls},
		{Name: "unsafe_other", Value: s.UnsafeOther},
		{Name: "unsafe_score", Value: s.UnsafeScore},
		{Name: "unsafe_lines_low_fidelity", Value: s.UnsafeLinesLowFidelity},
	}
}

// Add folds other into s field by field.
func (s *Stats) Add(other Stats) {
	s.TotalFiles += other.TotalFiles
	s.TotalLines += other.TotalLines
	s.TotalTokens += other.TotalTokens
	s.TotalStatements += other.TotalStatements
	s.UnsafeStatements += other.UnsafeStatements
	s.UnsafeFns += other.UnsafeFns
	s.UnsafePubFns += other.UnsafePubFns
	s.UnsafeBlocks += other.UnsafeBlocks
	s.UnsafeImpls += other.UnsafeImpls
	s.UnsafeOther += other.UnsafeOther
	s.UnsafeScore += other.UnsafeScore
	s.UnsafeLinesLowFidelity += other.UnsafeLinesLowFidelity
}

// Merge returns the field-wise sum of a and b without touching either.
func Merge(a, b Stats) Stats {
	a.Add(b)
	return a
}

// Sum folds records starting from the zero value.
func Sum(records ...Stats) Stats {
	var total Stats
	for _, record := range records {
		total.Add(record)
	}
	return total
}

// IsZero reports whether every counter is zero.
func (s Stats) IsZero() bool {
	return s == Stats{}
}

func (s Stats) LogValue() slog.Value {
	fields := s.Fields()
	attrs := make([]slog.Attr, 0, len(fields))
	for _, field := range fields {
		attrs = append(attrs, slog.Uint64(field.Name, field.Value))
	}
	return slog.GroupValue(attrs...)
}
