package pipeline

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/sawpanic/pdthreshold/internal/chart"
	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/metrics"
	"github.com/sawpanic/pdthreshold/internal/report"
)

// DefaultSinks returns chart, metrics and console report sinks in that
// order, so the report can name the saved chart.
func DefaultSinks(cfg *config.Config, m *metrics.RunMetrics, logger zerolog.Logger, out io.Writer) []Sink {
	var sinks []Sink
	if !cfg.Chart.Disabled {
		sinks = append(sinks, chart.NewRenderer(cfg.Chart))
	}
	sinks = append(sinks,
		&metrics.Sink{Metrics: m, Textfile: cfg.Metrics.Textfile, Logger: logger},
		&report.Printer{Out: out, Format: cfg.Report.Format},
	)
	return sinks
}
