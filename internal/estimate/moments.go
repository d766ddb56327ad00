// Package estimate fits a Beta distribution to a loan-level PD sample by
// the method of moments. The fitted distribution serves as the prior for
// the portfolio-level PD.
package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// ClampFactor scales the theoretical maximum variance mu*(1-mu) when the
// sample variance is degenerate (<= 0) or too large for a Beta fit.
const ClampFactor = 0.99

// Fit is the outcome of a moment-matching fit.
type Fit struct {
	Prior   domain.BetaParams
	Moments domain.Moments // variance after clamping
	StdDev  float64        // sqrt of the clamped variance
	Clamped bool           // sample variance was replaced by ClampFactor*max
	Sample  domain.Moments // raw sample moments before clamping
}

// FromSample computes Beta(a, b) whose mean and variance match the sample.
//
// The variance is the unbiased (N-1) estimator. A sample of one value has
// no spread and is treated as variance 0, which triggers the clamp.
func FromSample(pds []float64) (Fit, error) {
	m, err := MomentsOf(pds)
	if err != nil {
		return Fit{}, err
	}

	prior, clamped, err := ShapeFromMoments(m.Mean, m.Variance)
	if err != nil {
		return Fit{}, err
	}

	used := m
	if clamped {
		used.Variance = ClampFactor * m.MaxVariance()
	}

	return Fit{
		Prior:   prior,
		Moments: used,
		StdDev:  math.Sqrt(used.Variance),
		Clamped: clamped,
		Sample:  m,
	}, nil
}

// MomentsOf returns the sample mean and unbiased sample variance after
// checking every value is a PD in [0,1).
func MomentsOf(pds []float64) (domain.Moments, error) {
	if len(pds) == 0 {
		return domain.Moments{}, domain.ErrEmptySample
	}
	for i, p := range pds {
		if math.IsNaN(p) || p < 0 || p >= 1 {
			return domain.Moments{}, fmt.Errorf("pd[%d] = %g: %w", i, p, domain.ErrInvalidPD)
		}
	}

	if len(pds) == 1 {
		return domain.Moments{Mean: pds[0]}, nil
	}

	mean, variance := stat.MeanVariance(pds, nil)
	return domain.Moments{Mean: mean, Variance: variance}, nil
}

// ShapeFromMoments inverts the Beta moment equations:
//
//	k = mu(1-mu)/var - 1,  a = mu*k,  b = (1-mu)*k
//
// A variance outside (0, mu(1-mu)) is replaced by ClampFactor*mu(1-mu) and
// clamped is reported true. The ratio a/b always equals mu/(1-mu).
func ShapeFromMoments(mu, variance float64) (params domain.BetaParams, clamped bool, err error) {
	if !(mu > 0 && mu < 1) {
		return domain.BetaParams{}, false, fmt.Errorf("mean %g: %w", mu, domain.ErrDegenerateMean)
	}

	maxVar := mu * (1 - mu)
	if !(variance > 0) || variance >= maxVar {
		variance = ClampFactor * maxVar
		clamped = true
	}

	k := maxVar/variance - 1
	params = domain.BetaParams{A: mu * k, B: (1 - mu) * k}
	return params, clamped, nil
}
