package metrics

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/sawpanic/pdthreshold/internal/domain"
	atomicio "github.com/sawpanic/pdthreshold/internal/io"
)

// PipelineStep names the stages of a threshold run
type PipelineStep string

const (
	StepSample    PipelineStep = "sample"
	StepEstimate  PipelineStep = "estimate"
	StepUpdate    PipelineStep = "update"
	StepThreshold PipelineStep = "threshold"
	StepEmit      PipelineStep = "emit"
)

// PipelineResult is the outcome label of a step
type PipelineResult string

const (
	ResultSuccess PipelineResult = "success"
	ResultError   PipelineResult = "error"
)

// RunMetrics holds the prometheus collectors describing one run. Each
// instance owns its registry so runs and tests never share state.
type RunMetrics struct {
	registry *prometheus.Registry

	StepDuration     *prometheus.HistogramVec
	BetaShape        *prometheus.GaugeVec
	Threshold        *prometheus.GaugeVec
	SampleSize       prometheus.Gauge
	MeanPD           prometheus.Gauge
	StdDevPD         prometheus.Gauge
	ExpectedDefaults prometheus.Gauge
	VarianceClamped  prometheus.Gauge
	LastRun          prometheus.Gauge
}

// NewRunMetrics creates and registers the run collectors
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdthreshold_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"step", "result"},
		),

		BetaShape: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pdthreshold_beta_shape",
				Help: "Beta shape parameters of the prior and posterior portfolio PD",
			},
			[]string{"distribution", "param"},
		),

		Threshold: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pdthreshold_posterior_threshold",
				Help: "Posterior PD quantile thresholds",
			},
			[]string{"bound", "level"},
		),

		SampleSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_sample_size",
			Help: "Number of loans in the PD sample",
		}),
		MeanPD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_mean_pd",
			Help: "Sample mean of loan-level PDs",
		}),
		StdDevPD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_stddev_pd",
			Help: "Standard deviation used for the moment fit",
		}),
		ExpectedDefaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_update_defaults",
			Help: "Default count fed to the conjugate update (expected or observed)",
		}),
		VarianceClamped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_variance_clamped",
			Help: "1 when the sample variance was clamped for the Beta fit",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdthreshold_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}

	m.registry.MustRegister(
		m.StepDuration,
		m.BetaShape,
		m.Threshold,
		m.SampleSize,
		m.MeanPD,
		m.StdDevPD,
		m.ExpectedDefaults,
		m.VarianceClamped,
		m.LastRun,
	)

	return m
}

// Registry exposes the underlying gatherer
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// StepTimer tracks execution time for a pipeline step
type StepTimer struct {
	metrics *RunMetrics
	logger  zerolog.Logger
	step    PipelineStep
	start   time.Time
}

// StartStepTimer begins timing a pipeline step; Stop reports to logger
func (m *RunMetrics) StartStepTimer(step PipelineStep, logger zerolog.Logger) *StepTimer {
	return &StepTimer{metrics: m, logger: logger, step: step, start: time.Now()}
}

// Stop records the step duration under result
func (st *StepTimer) Stop(result PipelineResult) {
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(string(st.step), string(result)).Observe(duration.Seconds())

	st.logger.Debug().
		Str("step", string(st.step)).
		Str("result", string(result)).
		Dur("duration", duration).
		Msg("Pipeline step completed")
}

// Observe sets every gauge from a completed run
func (m *RunMetrics) Observe(res domain.Result) {
	m.BetaShape.WithLabelValues("prior", "a").Set(res.Prior.A)
	m.BetaShape.WithLabelValues("prior", "b").Set(res.Prior.B)
	m.BetaShape.WithLabelValues("posterior", "a").Set(res.Posterior.A)
	m.BetaShape.WithLabelValues("posterior", "b").Set(res.Posterior.B)

	lv := res.Thresholds.Levels
	m.Threshold.WithLabelValues("low", levelLabel(lv.Low)).Set(res.Thresholds.Low)
	m.Threshold.WithLabelValues("high", levelLabel(lv.High)).Set(res.Thresholds.High)

	m.SampleSize.Set(float64(res.N))
	m.MeanPD.Set(res.MeanPD)
	m.StdDevPD.Set(res.StdDevPD)
	m.ExpectedDefaults.Set(res.Observation.Defaults)
	if res.Clamped {
		m.VarianceClamped.Set(1)
	} else {
		m.VarianceClamped.Set(0)
	}
	m.LastRun.Set(float64(res.GeneratedAt.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
// The file is replaced atomically so the collector never reads a partial
// scrape.
func (m *RunMetrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if err := atomicio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// PublishedThresholds reads the posterior threshold gauges for levels back
// from the registry.
func (m *RunMetrics) PublishedThresholds(levels domain.Levels) (low, high float64, err error) {
	families, err := m.registry.Gather()
	if err != nil {
		return 0, 0, fmt.Errorf("gather metrics: %w", err)
	}
	const name = "pdthreshold_posterior_threshold"
	low, ok := Lookup(families, name, map[string]string{"bound": "low", "level": levelLabel(levels.Low)})
	if !ok {
		return 0, 0, fmt.Errorf("%s{bound=low} not published", name)
	}
	high, ok = Lookup(families, name, map[string]string{"bound": "high", "level": levelLabel(levels.High)})
	if !ok {
		return 0, 0, fmt.Errorf("%s{bound=high} not published", name)
	}
	return low, high, nil
}

// Lookup returns the value of the gauge or counter named name whose labels
// include every pair in labels.
func Lookup(families []*dto.MetricFamily, name string, labels map[string]string) (float64, bool) {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !hasLabels(metric, labels) {
				continue
			}
			switch {
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue(), true
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func levelLabel(q float64) string {
	return strconv.FormatFloat(q, 'g', -1, 64)
}
