// Package pipeline wires the PD threshold stages together:
//
//	sample -> estimate (prior) -> update (posterior) -> threshold -> sinks
//
// Data flows strictly forward and every value is computed once per run.
// Sinks only consume the finished domain.Result.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/domain"
	"github.com/sawpanic/pdthreshold/internal/estimate"
	plog "github.com/sawpanic/pdthreshold/internal/log"
	"github.com/sawpanic/pdthreshold/internal/metrics"
	"github.com/sawpanic/pdthreshold/internal/sample"
	"github.com/sawpanic/pdthreshold/internal/threshold"
	"github.com/sawpanic/pdthreshold/internal/update"
)

// Sink consumes a finished run.
type Sink interface {
	Name() string
	Emit(res domain.Result) error
}

// artifactSink is a Sink that leaves a file behind.
type artifactSink interface {
	Sink
	Artifact() string
}

// Runner executes one threshold run from configuration.
type Runner struct {
	Config  *config.Config
	Metrics *metrics.RunMetrics
	Logger  zerolog.Logger
	RunID   string
	Now     func() time.Time
}

func NewRunner(cfg *config.Config, m *metrics.RunMetrics, logger zerolog.Logger) *Runner {
	return &Runner{
		Config:  cfg,
		Metrics: m,
		Logger:  logger,
		RunID:   uuid.NewString(),
		Now:     time.Now,
	}
}

// Run generates the sample, computes the prior, posterior and thresholds,
// then hands the result to each sink in order. Any failure aborts the run.
func (r *Runner) Run(sinks ...Sink) (domain.Result, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return domain.Result{}, fmt.Errorf("invalid config: %w", err)
	}

	gen := sample.Generator{Alpha: cfg.Sample.Alpha, Beta: cfg.Sample.Beta, Seed: cfg.Sample.Seed}
	var pds []float64
	if err := r.step(metrics.StepSample, func() (err error) {
		pds, err = gen.Draw(cfg.Sample.Size)
		return err
	}); err != nil {
		return domain.Result{}, err
	}

	fit, res, err := estimateWith(pds, cfg.Thresholds, cfg.Update.ObservedDefaults, r.step)
	if err != nil {
		return domain.Result{}, err
	}
	if fit.Clamped {
		r.Logger.Warn().
			Float64("sample_variance", fit.Sample.Variance).
			Float64("max_variance", fit.Sample.MaxVariance()).
			Msg("Sample variance outside Beta range, clamped")
	}
	r.Logger.Info().
		Int("n", res.N).
		Float64("mean_pd", res.MeanPD).
		Float64("a0", res.Prior.A).
		Float64("b0", res.Prior.B).
		Msg("Prior fitted")
	r.Logger.Info().
		Str("observation", string(res.Observation.Kind)).
		Float64("defaults", res.Observation.Defaults).
		Float64("a1", res.Posterior.A).
		Float64("b1", res.Posterior.B).
		Float64("low", res.Thresholds.Low).
		Float64("high", res.Thresholds.High).
		Msg("Posterior thresholds computed")

	res.RunID = r.RunID
	res.GeneratedAt = r.Now().UTC()

	if err := r.step(metrics.StepEmit, func() error {
		return r.emit(&res, sinks)
	}); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Runner) emit(res *domain.Result, sinks []Sink) error {
	for _, s := range sinks {
		if err := s.Emit(*res); err != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
		if a, ok := s.(artifactSink); ok {
			res.ChartPath = a.Artifact()
			r.Logger.Info().Str("sink", s.Name()).Str("path", a.Artifact()).Msg("Artifact written")
			continue
		}
		r.Logger.Debug().Str("sink", s.Name()).Msg("Sink emitted")
	}
	return nil
}

// stepFunc runs one stage of the estimation core.
type stepFunc func(step metrics.PipelineStep, fn func() error) error

func (r *Runner) step(step metrics.PipelineStep, fn func() error) error {
	done := plog.Stage(r.Logger, string(step))
	timer := r.Metrics.StartStepTimer(step, r.Logger)
	err := fn()
	done(err)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return fmt.Errorf("%s: %w", step, err)
	}
	timer.Stop(metrics.ResultSuccess)
	return nil
}

func direct(_ metrics.PipelineStep, fn func() error) error { return fn() }

// Estimate runs the pure estimation core on an existing PD sample: moment
// fit, conjugate update and threshold extraction. When observedDefaults is
// nil the update uses the expected count N * mean PD.
func Estimate(pds []float64, levels domain.Levels, observedDefaults *int) (domain.Result, error) {
	_, res, err := estimateWith(pds, levels, observedDefaults, direct)
	return res, err
}

// estimateWith runs estimate, update and threshold through step. Run passes
// its timed step, Estimate calls each stage directly.
func estimateWith(pds []float64, levels domain.Levels, observedDefaults *int, step stepFunc) (estimate.Fit, domain.Result, error) {
	var fit estimate.Fit
	if err := step(metrics.StepEstimate, func() (err error) {
		fit, err = estimate.FromSample(pds)
		return err
	}); err != nil {
		return fit, domain.Result{}, err
	}

	var (
		obs       domain.Observation
		posterior domain.BetaParams
	)
	if err := step(metrics.StepUpdate, func() (err error) {
		obs, err = observe(len(pds), fit.Moments.Mean, observedDefaults)
		if err != nil {
			return err
		}
		posterior, err = update.Apply(fit.Prior, obs)
		return err
	}); err != nil {
		return fit, domain.Result{}, err
	}

	var th domain.Thresholds
	if err := step(metrics.StepThreshold, func() (err error) {
		th, err = threshold.Extract(posterior, levels)
		return err
	}); err != nil {
		return fit, domain.Result{}, err
	}
	return fit, assemble(fit, obs, posterior, th), nil
}

func observe(n int, mean float64, observedDefaults *int) (domain.Observation, error) {
	if observedDefaults != nil {
		return update.ObservedCount(n, *observedDefaults)
	}
	return update.ExpectedObservation(n, mean)
}

func assemble(fit estimate.Fit, obs domain.Observation, posterior domain.BetaParams, th domain.Thresholds) domain.Result {
	return domain.Result{
		N:           obs.Trials,
		Prior:       fit.Prior,
		MeanPD:      fit.Moments.Mean,
		StdDevPD:    fit.StdDev,
		Clamped:     fit.Clamped,
		Observation: obs,
		Posterior:   posterior,
		Thresholds:  th,
	}
}
