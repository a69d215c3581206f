package app

import (
	"github.com/ben-ranford/unsafety/internal/config"
	"github.com/ben-ranford/unsafety/internal/logging"
	"github.com/ben-ranford/unsafety/internal/report"
)

type Mode string

const (
	ModeMeasure   Mode = "measure"
	ModeAggregate Mode = "aggregate"
	ModeVersion   Mode = "version"
)

type Request struct {
	Mode      Mode
	Format    report.Format
	Log       LogRequest
	Measure   MeasureRequest
	Aggregate AggregateRequest
}

type LogRequest struct {
	Level  logging.Level
	Format logging.Format
}

type MeasureRequest struct {
	Path       string
	SingleFile bool
	ConfigPath string
	Include    []string
	Exclude    []string
	Settings   config.Values
}

type AggregateRequest struct {
	Paths []string
}

func DefaultRequest() Request {
	return Request{
		Mode:   ModeMeasure,
		Format: report.FormatJSON,
		Log: LogRequest{
			Level:  logging.LevelWarn,
			Format: logging.FormatText,
		},
		Measure: MeasureRequest{
			Path:     ".",
			Settings: config.Defaults(),
		},
	}
}
