package posterior

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func simpleCurve() *Curve {
	return &Curve{
		HR:  []float64{-1, 0, 1},
		CDF: []float64{0, 0.5, 1},
	}
}

func TestCurve_Quantile(t *testing.T) {
	c := simpleCurve()

	v, err := c.Quantile(0.5)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, v)

	v, err = c.Quantile(0.25)
	assert.Nil(t, err)
	assert.Equal(t, -0.5, v)

	v, err = c.Quantile(0.75)
	assert.Nil(t, err)
	assert.Equal(t, 0.5, v)
}

func TestCurve_Quantile_err(t *testing.T) {
	c := simpleCurve()
	for _, p := range []float64{-0.5, 0, 1, 1.5} {
		_, err := c.Quantile(p)
		assert.Equal(t, ErrInvalidProbability, err)
	}
}

func TestCurve_Quantile_flatSegment(t *testing.T) {
	// a flat stretch of the CDF has no mass; the quantile lands before it
	c := &Curve{
		HR:  []float64{-1, -0.5, 0.5, 1},
		CDF: []float64{0, 0.5, 0.5, 1},
	}
	v, err := c.Quantile(0.5)
	assert.Nil(t, err)
	assert.Equal(t, -0.5, v)
}

func TestCurve_Median(t *testing.T) {
	assert.Equal(t, 0.0, simpleCurve().Median())
}

func TestCurve_Interval(t *testing.T) {
	c := simpleCurve()
	lo, hi, err := c.Interval(0.5)
	assert.Nil(t, err)
	assert.Equal(t, -0.5, lo)
	assert.Equal(t, 0.5, hi)

	for _, mass := range []float64{-1, 0, 1, 2} {
		_, _, err = c.Interval(mass)
		assert.Equal(t, ErrInvalidProbability, err)
	}
}

func TestCurve_Mean(t *testing.T) {
	// symmetric CDF about HR = 0 has zero mean
	assert.InDelta(t, 0, simpleCurve().Mean(), 1e-15)

	// all mass at the soft end
	c := &Curve{
		HR:  []float64{-1, -0.5, 0, 0.5, 1},
		CDF: []float64{0, 1, 1, 1, 1},
	}
	assert.InDelta(t, -0.75, c.Mean(), 1e-15)
}
