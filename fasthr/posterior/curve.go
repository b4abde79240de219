package posterior

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/integrate"
)

// ErrInvalidProbability indicates a quantile or interval mass outside (0, 1).
var ErrInvalidProbability = errors.New("probability must be in (0, 1)")

// Curve is a posterior CDF of the hardness ratio sampled on a grid: HR is strictly
// increasing spanning [-1, 1] and CDF is non-decreasing from 0 to 1. Curves are plain
// values; the estimator does not retain them.
type Curve struct {
	HR  []float64
	CDF []float64
}

// Quantile returns the HR value at cumulative probability p by linear interpolation.
func (c *Curve) Quantile(p float64) (float64, error) {
	if p <= 0 || p >= 1 {
		return 0, ErrInvalidProbability
	}
	return c.quantile(p), nil
}

// Median returns the posterior median HR.
func (c *Curve) Median() float64 {
	return c.quantile(0.5)
}

// Interval returns the central credible interval containing the given posterior mass,
// e.g. Interval(0.68) for the 16th-84th percentile range.
func (c *Curve) Interval(mass float64) (float64, float64, error) {
	if mass <= 0 || mass >= 1 {
		return 0, 0, ErrInvalidProbability
	}
	lo := c.quantile((1 - mass) / 2)
	hi := c.quantile(1 - (1-mass)/2)
	return lo, hi, nil
}

// Mean returns the posterior mean HR, integrating by parts over the curve:
// E[HR] = 1 - integral of the CDF over [-1, 1].
func (c *Curve) Mean() float64 {
	return 1 - integrate.Trapezoidal(c.HR, c.CDF)
}

func (c *Curve) quantile(p float64) float64 {
	if p <= c.CDF[0] {
		return c.HR[0]
	}
	for i := 1; i < len(c.CDF); i++ {
		if c.CDF[i] >= p {
			if c.CDF[i] == c.CDF[i-1] {
				return c.HR[i]
			}
			t := (p - c.CDF[i-1]) / (c.CDF[i] - c.CDF[i-1])
			return c.HR[i-1] + t*(c.HR[i]-c.HR[i-1])
		}
	}
	return c.HR[len(c.HR)-1]
}
