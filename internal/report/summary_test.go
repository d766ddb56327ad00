package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

func sampleResult() domain.Result {
	return domain.Result{
		RunID:       "0b9f",
		GeneratedAt: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		N:           6000,
		Prior:       domain.BetaParams{A: 1.2344, B: 118.7654},
		MeanPD:      0.010312,
		StdDevPD:    0.0091,
		Observation: domain.Observation{Kind: domain.ObservationExpected, Trials: 6000, Defaults: 61.872},
		Posterior:   domain.BetaParams{A: 63.1064, B: 6056.8934},
		Thresholds: domain.Thresholds{
			Levels: domain.Levels{Low: 0.01, High: 0.99},
			Low:    0.0077123,
			High:   0.0134567,
		},
		ChartPath: "out/chart.png",
	}
}

func TestText_FixedPrecision(t *testing.T) {
	out := Text(sampleResult())

	assert.Contains(t, out, "CECL PD Threshold Demo Summary")
	assert.Contains(t, out, "N loans               : 6000\n")
	assert.Contains(t, out, "Prior a0, b0          : 1.234, 118.765\n")
	assert.Contains(t, out, "Mean PD               : 0.010312\n")
	assert.Contains(t, out, "Expected defaults D*  : 61.87\n")
	assert.Contains(t, out, "Posterior a1, b1      : 63.106, 6056.893\n")
	assert.Contains(t, out, "Posterior 1% PD       : 0.007712\n")
	assert.Contains(t, out, "Posterior 99% PD      : 0.013457\n")
	assert.Contains(t, out, "Saved chart → out/chart.png")
	assert.NotContains(t, out, "clamped")
}

func TestText_ObservedAndClamped(t *testing.T) {
	res := sampleResult()
	res.Observation = domain.Observation{Kind: domain.ObservationObserved, Trials: 6000, Defaults: 55}
	res.Clamped = true
	res.ChartPath = ""
	res.Thresholds.Levels = domain.Levels{Low: 0.025, High: 0.975}

	out := Text(res)
	assert.Contains(t, out, "Observed defaults D   : 55\n")
	assert.Contains(t, out, "Posterior 2.5% PD     : ")
	assert.Contains(t, out, "Posterior 97.5% PD    : ")
	assert.Contains(t, out, "clamped")
	assert.NotContains(t, out, "Saved chart")
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, Format: "json"}
	require.NoError(t, p.Emit(sampleResult()))

	var got domain.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult(), got)
}

func TestPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, Format: "text"}
	require.NoError(t, p.Emit(sampleResult()))
	assert.Equal(t, Text(sampleResult()), buf.String())
	assert.Equal(t, "report", p.Name())
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestPrinter_Errors(t *testing.T) {
	err := (&Printer{Out: failWriter{}, Format: "text"}).Emit(sampleResult())
	assert.ErrorContains(t, err, "write report")

	err = (&Printer{Out: &bytes.Buffer{}, Format: "xml"}).Emit(sampleResult())
	assert.ErrorContains(t, err, "unknown report format")
}
