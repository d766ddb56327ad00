// Package update combines a Beta prior with a default-count observation
// using the Beta-Binomial conjugate rule
//
//	a1 = a0 + D
//	b1 = b0 + (N - D)
//
// By default D is the expected count N * mean PD, a continuous
// pseudo-count. That makes the result a point-estimate pseudo-Bayesian
// update: the observation is implied by the same forecasts that built the
// prior, not drawn from N independent Bernoulli outcomes, so the posterior
// concentrates without any default events having been seen.
package update

import (
	"fmt"
	"math"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// ExpectedObservation builds the pseudo-observation D* = n * meanPD.
func ExpectedObservation(n int, meanPD float64) (domain.Observation, error) {
	if n <= 0 || math.IsNaN(meanPD) || meanPD < 0 || meanPD > 1 {
		return domain.Observation{}, fmt.Errorf("n=%d mean=%g: %w", n, meanPD, domain.ErrInvalidObservation)
	}
	return domain.Observation{
		Kind:     domain.ObservationExpected,
		Trials:   n,
		Defaults: float64(n) * meanPD,
	}, nil
}

// ObservedCount builds an observation from an actual default count.
func ObservedCount(n, defaults int) (domain.Observation, error) {
	if n <= 0 || defaults < 0 || defaults > n {
		return domain.Observation{}, fmt.Errorf("n=%d defaults=%d: %w", n, defaults, domain.ErrInvalidObservation)
	}
	return domain.Observation{
		Kind:     domain.ObservationObserved,
		Trials:   n,
		Defaults: float64(defaults),
	}, nil
}

// Apply returns the posterior shape parameters for prior updated by obs.
func Apply(prior domain.BetaParams, obs domain.Observation) (domain.BetaParams, error) {
	if err := prior.Validate(); err != nil {
		return domain.BetaParams{}, fmt.Errorf("prior: %w", err)
	}
	if obs.Trials <= 0 || obs.Defaults < 0 || obs.Defaults > float64(obs.Trials) {
		return domain.BetaParams{}, fmt.Errorf("observation %+v: %w", obs, domain.ErrInvalidObservation)
	}

	return domain.BetaParams{
		A: prior.A + obs.Defaults,
		B: prior.B + obs.Survivors(),
	}, nil
}
