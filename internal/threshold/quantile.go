package threshold

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// DefaultLevels are the 1% and 99% forecast bounds.
var DefaultLevels = domain.Levels{Low: 0.01, High: 0.99}

// Extract returns the posterior inverse-CDF values at levels.Low and
// levels.High. Both lie in (0,1) and Low < High, otherwise an error is
// returned: a posterior with a tiny shape (a clamped prior updated with zero
// defaults, say) puts the low quantile below the smallest float64.
func Extract(posterior domain.BetaParams, levels domain.Levels) (domain.Thresholds, error) {
	if err := posterior.Validate(); err != nil {
		return domain.Thresholds{}, err
	}
	if err := levels.Validate(); err != nil {
		return domain.Thresholds{}, err
	}

	d := distuv.Beta{Alpha: posterior.A, Beta: posterior.B}
	t := domain.Thresholds{
		Levels: levels,
		Low:    d.Quantile(levels.Low),
		High:   d.Quantile(levels.High),
	}
	if !(t.Low > 0) || !(t.High < 1) {
		return domain.Thresholds{}, fmt.Errorf("quantiles of %s are %g and %g: %w", posterior, t.Low, t.High, domain.ErrDegenerateThreshold)
	}
	if !(t.Low < t.High) {
		return domain.Thresholds{}, fmt.Errorf("quantiles of %s not ordered: %g >= %g", posterior, t.Low, t.High)
	}
	return t, nil
}
