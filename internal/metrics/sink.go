package metrics

import (
	"github.com/rs/zerolog"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// Sink feeds run results into RunMetrics and, when Textfile is set,
// exports them for the node_exporter textfile collector.
type Sink struct {
	Metrics  *RunMetrics
	Textfile string
	Logger   zerolog.Logger
}

func (s *Sink) Name() string { return "metrics" }

func (s *Sink) Emit(res domain.Result) error {
	s.Metrics.Observe(res)

	low, high, err := s.Metrics.PublishedThresholds(res.Thresholds.Levels)
	if err != nil {
		return err
	}
	s.Logger.Info().
		Str("levels", res.Thresholds.Levels.Label()).
		Float64("low", low).
		Float64("high", high).
		Str("textfile", s.Textfile).
		Msg("Threshold gauges published")

	if s.Textfile == "" {
		return nil
	}
	return s.Metrics.WriteTextfile(s.Textfile)
}
