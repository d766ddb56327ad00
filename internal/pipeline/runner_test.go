package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/domain"
	"github.com/sawpanic/pdthreshold/internal/metrics"
	"github.com/sawpanic/pdthreshold/internal/sample"
)

type recordingSink struct {
	name    string
	got     []domain.Result
	err     error
	journal *[]string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Emit(res domain.Result) error {
	s.got = append(s.got, res)
	if s.journal != nil {
		*s.journal = append(*s.journal, s.name)
	}
	return s.err
}

func testRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	r := NewRunner(cfg, metrics.NewRunMetrics(), zerolog.Nop())
	r.RunID = "test-run"
	r.Now = func() time.Time { return time.Date(2025, 12, 31, 18, 0, 0, 0, time.UTC) }
	return r
}

func TestRunner_DefaultScenario(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &recordingSink{name: "recorder"}

	res, err := testRunner(t, cfg).Run(sink)
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	assert.Equal(t, res, sink.got[0])

	assert.Equal(t, "test-run", res.RunID)
	assert.Equal(t, 6000, res.N)
	assert.False(t, res.Clamped)

	// D* = N * mean, posterior = prior + (D*, N - D*)
	assert.Equal(t, domain.ObservationExpected, res.Observation.Kind)
	assert.InDelta(t, 6000*res.MeanPD, res.Observation.Defaults, 1e-9)
	assert.InDelta(t, res.Prior.A+res.Observation.Defaults, res.Posterior.A, 1e-9)
	assert.InDelta(t, res.Prior.B+6000-res.Observation.Defaults, res.Posterior.B, 1e-9)

	// prior mean reproduces the sample mean
	assert.InDelta(t, res.MeanPD, res.Prior.Mean(), 1e-12)

	// band brackets the posterior mean and sits inside (0,1)
	assert.Greater(t, res.Thresholds.Low, 0.0)
	assert.Less(t, res.Thresholds.Low, res.Posterior.Mean())
	assert.Greater(t, res.Thresholds.High, res.Posterior.Mean())
	assert.Less(t, res.Thresholds.High, 1.0)
}

func TestRunner_MatchesEstimate(t *testing.T) {
	cfg := config.DefaultConfig()
	res, err := testRunner(t, cfg).Run()
	require.NoError(t, err)

	pds, err := sample.DefaultGenerator.Draw(cfg.Sample.Size)
	require.NoError(t, err)
	core, err := Estimate(pds, cfg.Thresholds, nil)
	require.NoError(t, err)

	core.RunID, core.GeneratedAt = res.RunID, res.GeneratedAt
	assert.Equal(t, core, res)
}

func TestRunner_ObservedDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	observed := 90
	cfg.Update.ObservedDefaults = &observed

	res, err := testRunner(t, cfg).Run()
	require.NoError(t, err)

	assert.Equal(t, domain.ObservationObserved, res.Observation.Kind)
	assert.Equal(t, 90.0, res.Observation.Defaults)
	assert.Equal(t, res.Prior.A+90, res.Posterior.A)
	assert.Equal(t, res.Prior.B+5910, res.Posterior.B)
	assert.Greater(t, res.Posterior.Mean(), 0.0145)
}

func TestRunner_SinkOrderAndFailure(t *testing.T) {
	var journal []string
	first := &recordingSink{name: "first", journal: &journal}
	broken := &recordingSink{name: "broken", journal: &journal, err: errors.New("disk full")}
	last := &recordingSink{name: "last", journal: &journal}

	_, err := testRunner(t, config.DefaultConfig()).Run(first, broken, last)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink broken: disk full")
	assert.Equal(t, []string{"first", "broken"}, journal)
	assert.Empty(t, last.got)
}

func TestRunner_FailedStepIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := testRunner(t, config.DefaultConfig())
	r.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

	_, err := r.Run(&recordingSink{name: "broken", err: errors.New("disk full")})
	require.Error(t, err)

	var failed, timed bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "stage failed" && entry["stage"] == "emit" {
			failed = true
			assert.Contains(t, entry["error"], "disk full")
		}
		if entry["step"] == "emit" && entry["result"] == "error" {
			timed = true
		}
	}
	assert.True(t, failed, "emit failure logged with elapsed time")
	assert.True(t, timed, "step timer logged through the runner logger")
}

func TestRunner_ZeroObservedDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	zero := 0
	cfg.Update.ObservedDefaults = &zero

	res, err := testRunner(t, cfg).Run()
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Observation.Defaults)
	assert.Equal(t, res.Prior.A, res.Posterior.A)
	assert.Equal(t, res.Prior.B+6000, res.Posterior.B)
	assert.Greater(t, res.Thresholds.Low, 0.0)
	assert.Less(t, res.Thresholds.Low, res.Thresholds.High)
}

func TestEstimate_ZeroDefaultsOnClampedPriorFails(t *testing.T) {
	// constant sample: variance clamps, prior shapes collapse to ~0.0025
	zero := 0
	_, err := Estimate([]float64{0.25, 0.25, 0.25}, domain.Levels{Low: 0.01, High: 0.99}, &zero)
	assert.ErrorIs(t, err, domain.ErrDegenerateThreshold)

	res, err := Estimate([]float64{0.25, 0.25, 0.25}, domain.Levels{Low: 0.01, High: 0.99}, nil)
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Greater(t, res.Thresholds.Low, 0.0)
	assert.Less(t, res.Thresholds.High, 1.0)
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Thresholds = domain.Levels{Low: 0.9, High: 0.1}

	_, err := testRunner(t, cfg).Run()
	assert.ErrorIs(t, err, domain.ErrInvalidLevels)
}

func TestRunner_RecordsStepMetrics(t *testing.T) {
	r := testRunner(t, config.DefaultConfig())
	_, err := r.Run()
	require.NoError(t, err)

	// sample, estimate, update, threshold, emit
	assert.Equal(t, 5, testutil.CollectAndCount(r.Metrics.StepDuration))
}

func TestRunner_DefaultSinksEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Sample.Size = 800
	cfg.Chart = config.ChartConfig{
		Path:     filepath.Join(dir, "images", "risk", "thresholds.png"),
		XMax:     0.04,
		Points:   300,
		WidthIn:  5,
		HeightIn: 3,
		DPI:      40,
	}
	cfg.Report.Format = config.FormatJSON
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics", "pdthreshold.prom")

	r := testRunner(t, cfg)
	var out bytes.Buffer
	res, err := r.Run(DefaultSinks(cfg, r.Metrics, zerolog.Nop(), &out)...)
	require.NoError(t, err)

	assert.Equal(t, cfg.Chart.Path, res.ChartPath)
	assert.FileExists(t, cfg.Chart.Path)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "pdthreshold_sample_size 800")

	var printed domain.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, cfg.Chart.Path, printed.ChartPath)
	assert.Equal(t, res.Thresholds, printed.Thresholds)
}

func TestDefaultSinks_ChartDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Chart.Disabled = true

	sinks := DefaultSinks(cfg, metrics.NewRunMetrics(), zerolog.Nop(), &bytes.Buffer{})
	require.Len(t, sinks, 2)
	assert.Equal(t, "metrics", sinks[0].Name())
	assert.Equal(t, "report", sinks[1].Name())
}

func TestEstimate_Errors(t *testing.T) {
	_, err := Estimate(nil, domain.Levels{Low: 0.01, High: 0.99}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptySample)

	_, err = Estimate([]float64{0, 0}, domain.Levels{Low: 0.01, High: 0.99}, nil)
	assert.ErrorIs(t, err, domain.ErrDegenerateMean)

	tooMany := 3
	_, err = Estimate([]float64{0.01, 0.02}, domain.Levels{Low: 0.01, High: 0.99}, &tooMany)
	assert.ErrorIs(t, err, domain.ErrInvalidObservation)
}
