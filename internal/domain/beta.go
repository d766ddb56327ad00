package domain

import (
	"fmt"
	"math"
)

// BetaParams holds the shape parameters of a Beta distribution over a
// portfolio-level PD. The same type carries both prior and posterior belief.
type BetaParams struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
}

// Validate reports ErrInvalidShape unless both shapes are finite and positive.
func (p BetaParams) Validate() error {
	if !(p.A > 0) || !(p.B > 0) || math.IsInf(p.A, 0) || math.IsInf(p.B, 0) {
		return fmt.Errorf("beta(%g, %g): %w", p.A, p.B, ErrInvalidShape)
	}
	return nil
}

// Mean returns a/(a+b).
func (p BetaParams) Mean() float64 {
	return p.A / (p.A + p.B)
}

// Variance returns ab / ((a+b)^2 (a+b+1)).
func (p BetaParams) Variance() float64 {
	s := p.A + p.B
	return p.A * p.B / (s * s * (s + 1))
}

func (p BetaParams) StdDev() float64 {
	return math.Sqrt(p.Variance())
}

func (p BetaParams) String() string {
	return fmt.Sprintf("Beta(%.3f, %.3f)", p.A, p.B)
}

// Moments is the (mean, variance) pair of a PD sample.
type Moments struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// MaxVariance is mu*(1-mu), the supremum of the variance of any
// distribution on [0,1] with this mean.
func (m Moments) MaxVariance() float64 {
	return m.Mean * (1 - m.Mean)
}
