package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ben-ranford/unsafety/internal/stats"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

var ErrUnknownFormat = errors.New("unknown format")

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatTable):
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, value)
	}
}

// Decode reads one JSON stats record as written by the json format.
// Unknown keys and trailing values are rejected.
func Decode(r io.Reader) (stats.Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return stats.Stats{}, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var record stats.Stats
	if err := decoder.Decode(&record); err != nil {
		return stats.Stats{}, fmt.Errorf("invalid stats record: %w", err)
	}
	if decoder.More() {
		return stats.Stats{}, fmt.Errorf("invalid stats record: multiple JSON values")
	}
	return record, nil
}
