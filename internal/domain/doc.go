// Package domain holds the value types shared by the PD threshold pipeline:
// Beta shape parameters, sample moments, quantile levels and thresholds,
// the update observation, and the Result handed to reporting sinks.
//
// Everything here is immutable once built; the estimation packages create
// new values rather than mutating inputs.
package domain
