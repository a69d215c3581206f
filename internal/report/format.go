package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ben-ranford/unsafety/internal/stats"
)

type Formatter struct{}

func NewFormatter() Formatter {
	return Formatter{}
}

func (f Formatter) Format(record stats.Stats, format Format) (string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return "", err
		}
		return string(payload) + "\n", nil
	case FormatYAML:
		var buffer bytes.Buffer
		encoder := yaml.NewEncoder(&buffer)
		encoder.SetIndent(2)
		if err := encoder.Encode(record); err != nil {
			return "", err
		}
		if err := encoder.Close(); err != nil {
			return "", err
		}
		return buffer.String(), nil
	case FormatTable:
		return formatTable(record), nil
	default:
		return "", ErrUnknownFormat
	}
}

func formatTable(record stats.Stats) string {
	var buffer bytes.Buffer
	writer := tabwriter.NewWriter(&buffer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "Metric\tValue")
	_, _ = fmt.Fprintln(writer, "------\t-----")
	for _, field := range record.Fields() {
		_, _ = fmt.Fprintf(writer, "%s\t%d\n", field.Name, field.Value)
	}
	_ = writer.Flush()
	appendScoreShare(&buffer, record)
	return buffer.String()
}

// appendScoreShare adds the unsafe share of statements when there are any.
func appendScoreShare(buffer *bytes.Buffer, record stats.Stats) {
	if record.TotalStatements == 0 {
		return
	}
	percent := float64(record.UnsafeStatements) / float64(record.TotalStatements) * 100
	_, _ = fmt.Fprintf(buffer, "\nUnsafe statements: %d/%d (%.1f%%)\n", record.UnsafeStatements, record.TotalStatements, percent)
}
