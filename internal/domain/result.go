package domain

import (
	"fmt"
	"time"
)

// Levels are the lower and upper probability levels at which the
// posterior quantiles are read.
type Levels struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Validate reports ErrInvalidLevels unless 0 < Low < High < 1.
func (l Levels) Validate() error {
	if !(l.Low > 0) || !(l.High < 1) || !(l.Low < l.High) {
		return fmt.Errorf("levels (%g, %g): %w", l.Low, l.High, ErrInvalidLevels)
	}
	return nil
}

// Label renders the band as "1%–99%".
func (l Levels) Label() string {
	return fmt.Sprintf("%s%%–%s%%", PercentLabel(l.Low), PercentLabel(l.High))
}

// PercentLabel renders a probability level as a percentage, 0.025 -> "2.5".
func PercentLabel(q float64) string {
	return fmt.Sprintf("%.4g", q*100)
}

// Thresholds are posterior quantiles at Levels.
type Thresholds struct {
	Levels Levels  `json:"levels"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
}

// ObservationKind tells whether the default count fed to the update was
// derived from the mean PD or supplied as an actual count.
type ObservationKind string

const (
	ObservationExpected ObservationKind = "expected"
	ObservationObserved ObservationKind = "observed"
)

// Observation is the pseudo-observation driving the conjugate update:
// Defaults out of Trials loans. For the expected kind Defaults is the
// continuous count N * mean PD.
type Observation struct {
	Kind     ObservationKind `json:"kind"`
	Trials   int             `json:"trials"`
	Defaults float64         `json:"defaults"`
}

// Survivors returns Trials - Defaults.
func (o Observation) Survivors() float64 {
	return float64(o.Trials) - o.Defaults
}

// Result is the data contract between the estimation core and every
// renderer or sink. Sinks consume it and never reach back into the core.
type Result struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	N           int         `json:"n"`
	Prior       BetaParams  `json:"prior"`
	MeanPD      float64     `json:"mean_pd"`
	StdDevPD    float64     `json:"stddev_pd"`
	Clamped     bool        `json:"variance_clamped"`
	Observation Observation `json:"observation"`
	Posterior   BetaParams  `json:"posterior"`
	Thresholds  Thresholds  `json:"thresholds"`

	// ChartPath is filled in once the chart sink has written the image.
	ChartPath string `json:"chart_path,omitempty"`
}
