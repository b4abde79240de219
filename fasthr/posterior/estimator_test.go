package posterior

import (
	"math"
	"testing"

	"github.com/astrostat/fasthr/fasthr/table"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"
)

func flatPriors() Priors {
	return Priors{Psi1Soft: 1, Psi2Soft: 0, Psi1Hard: 1, Psi2Hard: 0}
}

func buildTable(t *testing.T, nMax, mMax, gridSize int, priors Priors) *table.Table {
	tab, err := table.Build(table.Params{
		NMax:     nMax,
		MMax:     mMax,
		Psi1Soft: priors.Psi1Soft,
		Psi1Hard: priors.Psi1Hard,
		YGrid:    table.UniformGrid(gridSize),
	})
	assert.Nil(t, err)
	return tab
}

func TestNewEstimator_err(t *testing.T) {
	ok := Observation{Soft: 3, Hard: 2, SoftExposure: 1, HardExposure: 1}

	cases := []struct {
		obs    Observation
		priors Priors
		opts   []Option
		want   error
	}{
		{Observation{Soft: -1, Hard: 2, SoftExposure: 1, HardExposure: 1}, flatPriors(), nil,
			ErrInvalidCounts},
		{Observation{Soft: 3, Hard: -2, SoftExposure: 1, HardExposure: 1}, flatPriors(), nil,
			ErrInvalidCounts},
		{Observation{Soft: 3, Hard: 2, SoftExposure: 0, HardExposure: 1}, flatPriors(), nil,
			ErrInvalidExposure},
		{Observation{Soft: 3, Hard: 2, SoftExposure: 1, HardExposure: -1}, flatPriors(), nil,
			ErrInvalidExposure},
		{ok, Priors{Psi1Soft: 0, Psi1Hard: 1}, nil, ErrInvalidPriors},
		{ok, Priors{Psi1Soft: 1, Psi1Hard: 1, Psi2Soft: -0.1}, nil, ErrInvalidPriors},
		{ok, flatPriors(), []Option{WithFixedBackground(FixedBackground{XiSoft: -1})},
			ErrInvalidBackground},
		{ok, flatPriors(), []Option{WithUnfixedBackground(UnfixedBackground{
			BSoft: -1, Psi3Soft: 1, Psi3Hard: 1, RatioSoft: 1, RatioHard: 1})},
			ErrInvalidCounts},
		{ok, flatPriors(), []Option{WithUnfixedBackground(UnfixedBackground{
			BSoft: 1, Psi3Soft: 1, Psi3Hard: 1, RatioSoft: 0, RatioHard: 1})},
			ErrInvalidExposure},
		{ok, flatPriors(), []Option{WithUnfixedBackground(UnfixedBackground{
			BSoft: 1, Psi3Soft: 0, Psi3Hard: 1, RatioSoft: 1, RatioHard: 1})},
			ErrInvalidPriors},
	}
	for _, c := range cases {
		est, err := NewEstimator(c.obs, c.priors, c.opts...)
		assert.Equal(t, c.want, err)
		assert.Nil(t, est)
	}
}

func TestEstimator_Init_err(t *testing.T) {
	obs := Observation{Soft: 3, Hard: 2, SoftExposure: 1, HardExposure: 1}

	// no background supplied at all
	est, err := NewEstimator(obs, flatPriors())
	assert.Nil(t, err)
	assert.Equal(t, ErrFixedBackgroundMissing, est.Init(Fixed))
	assert.Equal(t, ErrUnfixedBackgroundMissing, est.Init(Unfixed))
	assert.Equal(t, ErrUnknownMode, est.Init(Mode("gibberish")))
	assert.Equal(t, Mode(""), est.Mode())

	// fixed supplied, unfixed requested
	est, err = NewEstimator(obs, flatPriors(), WithFixedBackground(FixedBackground{}))
	assert.Nil(t, err)
	assert.Equal(t, ErrUnfixedBackgroundMissing, est.Init(Unfixed))
	assert.Nil(t, est.Init(Fixed))
	assert.Equal(t, Fixed, est.Mode())
}

func TestEstimator_CDF_err(t *testing.T) {
	obs := Observation{Soft: 10, Hard: 6, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 10, 6, 11, flatPriors())

	est, err := NewEstimator(obs, flatPriors(), WithFixedBackground(FixedBackground{}))
	assert.Nil(t, err)

	// CDF before Init
	curve, err := est.CDF(tab)
	assert.Equal(t, ErrNotInitialized, err)
	assert.Nil(t, curve)

	assert.Nil(t, est.Init(Fixed))

	// counts beyond table bounds
	small := buildTable(t, 9, 6, 11, flatPriors())
	curve, err = est.CDF(small)
	assert.Equal(t, ErrCountsExceedTable, err)
	assert.Nil(t, curve)

	// table built with different prior shapes
	other := buildTable(t, 10, 6, 11, Priors{Psi1Soft: 2, Psi1Hard: 1})
	curve, err = est.CDF(other)
	assert.Equal(t, ErrPriorMismatch, err)
	assert.Nil(t, curve)

	curve, err = est.CDF(tab)
	assert.Nil(t, err)
	assert.NotNil(t, curve)
}

func TestEstimator_CDF_noBackgroundMatchesBeta(t *testing.T) {
	// with xi = 0 the posterior of y is exactly Beta(H+psi1H, S+psi1S)
	obs := Observation{Soft: 7, Hard: 4, SoftExposure: 1, HardExposure: 1}
	priors := flatPriors()
	tab := buildTable(t, 7, 4, 101, priors)

	est, err := NewEstimator(obs, priors, WithFixedBackground(FixedBackground{}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))
	curve, err := est.CDF(tab)
	assert.Nil(t, err)

	dist := distuv.Beta{
		Alpha: float64(obs.Hard) + priors.Psi1Hard,
		Beta:  float64(obs.Soft) + priors.Psi1Soft,
	}
	for i, y := range tab.YGrid() {
		assert.InDelta(t, dist.CDF(y), curve.CDF[i], 1e-12)
	}
}

func TestEstimator_CDF_fixedScenario(t *testing.T) {
	// S=20, H=15, equal unit exposures, flat priors, fixed background of 10 counts per
	// band: median HR ~ -0.29 with roughly symmetric +/-0.35 errors
	obs := Observation{Soft: 20, Hard: 15, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 20, 15, 1001, flatPriors())

	est, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 10, XiHard: 10}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))
	curve, err := est.CDF(tab)
	assert.Nil(t, err)

	median := curve.Median()
	lo, hi, err := curve.Interval(0.68)
	assert.Nil(t, err)
	assert.InDelta(t, -0.2871, median, 1e-3)
	assert.InDelta(t, -0.6315, lo, 1e-3)
	assert.InDelta(t, 0.0707, hi, 1e-3)
	assert.InDelta(t, -0.2753, curve.Mean(), 1e-3)
}

func TestEstimator_CDF_monotoneAndBounded(t *testing.T) {
	obs := Observation{Soft: 20, Hard: 15, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 20, 15, 201, flatPriors())

	est, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 10, XiHard: 10}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))
	curve, err := est.CDF(tab)
	assert.Nil(t, err)

	assert.Equal(t, 0.0, curve.CDF[0])
	assert.Equal(t, 1.0, curve.CDF[len(curve.CDF)-1])
	assert.Equal(t, -1.0, curve.HR[0])
	assert.Equal(t, 1.0, curve.HR[len(curve.HR)-1])
	for i := 1; i < len(curve.CDF); i++ {
		assert.False(t, math.IsNaN(curve.CDF[i]))
		assert.True(t, curve.CDF[i] >= curve.CDF[i-1])
		assert.True(t, curve.HR[i] > curve.HR[i-1])
	}
}

func TestEstimator_CDF_symmetric(t *testing.T) {
	// identical bands must give a posterior symmetric about HR = 0
	obs := Observation{Soft: 10, Hard: 10, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 10, 10, 1001, flatPriors())

	est, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 5, XiHard: 5}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))
	curve, err := est.CDF(tab)
	assert.Nil(t, err)

	assert.InDelta(t, 0, curve.Median(), 1e-9)
	assert.InDelta(t, 0, curve.Mean(), 1e-9)
}

func TestEstimator_CDF_headroomInvariant(t *testing.T) {
	// extra table headroom above the observed counts must not change the result
	obs := Observation{Soft: 8, Hard: 5, SoftExposure: 1, HardExposure: 1}
	exact := buildTable(t, 8, 5, 51, flatPriors())
	roomy := buildTable(t, 14, 11, 51, flatPriors())

	est, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 3, XiHard: 2}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))

	curve1, err := est.CDF(exact)
	assert.Nil(t, err)
	curve2, err := est.CDF(roomy)
	assert.Nil(t, err)
	assert.Equal(t, curve1.CDF, curve2.CDF)
	assert.Equal(t, curve1.HR, curve2.HR)
}

func TestEstimator_CDF_subsampledTable(t *testing.T) {
	// a subsampled table gives the same CDF values at the surviving grid points
	obs := Observation{Soft: 6, Hard: 4, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 6, 4, 101, flatPriors())
	sub, err := tab.Subsample(51)
	assert.Nil(t, err)

	est, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 2, XiHard: 2}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))

	fine, err := est.CDF(tab)
	assert.Nil(t, err)
	coarse, err := est.CDF(sub)
	assert.Nil(t, err)
	for i := 0; i < 51; i++ {
		assert.InDelta(t, fine.CDF[i*2], coarse.CDF[i], 1e-14)
	}
}

func TestEstimator_CDF_unfixedConvergesToFixed(t *testing.T) {
	// a very well-measured background must reproduce the fixed-background posterior:
	// 10000 counts over 1000x the source-region equivalent exposure pins the expected
	// source-region background at 10 counts per band
	obs := Observation{Soft: 20, Hard: 15, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 20, 15, 1001, flatPriors())

	fixedEst, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 10, XiHard: 10}))
	assert.Nil(t, err)
	assert.Nil(t, fixedEst.Init(Fixed))
	fixedCurve, err := fixedEst.CDF(tab)
	assert.Nil(t, err)

	unfixedEst, err := NewEstimator(obs, flatPriors(),
		WithUnfixedBackground(UnfixedBackground{
			BSoft: 10000, BHard: 10000,
			Psi3Soft: 1, Psi4Soft: 0, Psi3Hard: 1, Psi4Hard: 0,
			RatioSoft: 0.001, RatioHard: 0.001,
		}))
	assert.Nil(t, err)
	assert.Nil(t, unfixedEst.Init(Unfixed))
	unfixedCurve, err := unfixedEst.CDF(tab)
	assert.Nil(t, err)

	assert.InDelta(t, fixedCurve.Median(), unfixedCurve.Median(), 5e-3)
	fLo, fHi, err := fixedCurve.Interval(0.68)
	assert.Nil(t, err)
	uLo, uHi, err := unfixedCurve.Interval(0.68)
	assert.Nil(t, err)
	assert.InDelta(t, fLo, uLo, 5e-3)
	assert.InDelta(t, fHi, uHi, 5e-3)
}

func TestEstimator_CDF_unfixedWiderThanFixed(t *testing.T) {
	// a weakly measured background leaves extra posterior uncertainty in HR
	obs := Observation{Soft: 20, Hard: 15, SoftExposure: 1, HardExposure: 1}
	tab := buildTable(t, 20, 15, 501, flatPriors())

	fixedEst, err := NewEstimator(obs, flatPriors(),
		WithFixedBackground(FixedBackground{XiSoft: 10, XiHard: 10}))
	assert.Nil(t, err)
	assert.Nil(t, fixedEst.Init(Fixed))
	fixedCurve, err := fixedEst.CDF(tab)
	assert.Nil(t, err)

	unfixedEst, err := NewEstimator(obs, flatPriors(),
		WithUnfixedBackground(UnfixedBackground{
			BSoft: 10, BHard: 10,
			Psi3Soft: 1, Psi4Soft: 0, Psi3Hard: 1, Psi4Hard: 0,
			RatioSoft: 1, RatioHard: 1,
		}))
	assert.Nil(t, err)
	assert.Nil(t, unfixedEst.Init(Unfixed))
	unfixedCurve, err := unfixedEst.CDF(tab)
	assert.Nil(t, err)

	fLo, fHi, err := fixedCurve.Interval(0.68)
	assert.Nil(t, err)
	uLo, uHi, err := unfixedCurve.Interval(0.68)
	assert.Nil(t, err)
	assert.True(t, uHi-uLo > fHi-fLo)
}

func TestEstimator_CDF_unequalExposures(t *testing.T) {
	// unequal effective exposures skew the y-to-HR map but keep the curve well formed
	obs := Observation{Soft: 12, Hard: 9, SoftExposure: 2.5, HardExposure: 0.8}
	priors := Priors{Psi1Soft: 1, Psi2Soft: 0.2, Psi1Hard: 1, Psi2Hard: 0}
	tab := buildTable(t, 12, 9, 201, priors)

	est, err := NewEstimator(obs, priors,
		WithFixedBackground(FixedBackground{XiSoft: 4, XiHard: 3}))
	assert.Nil(t, err)
	assert.Nil(t, est.Init(Fixed))
	curve, err := est.CDF(tab)
	assert.Nil(t, err)

	assert.Equal(t, -1.0, curve.HR[0])
	assert.Equal(t, 1.0, curve.HR[len(curve.HR)-1])
	for i := 1; i < len(curve.HR); i++ {
		assert.True(t, curve.HR[i] > curve.HR[i-1])
		assert.True(t, curve.CDF[i] >= curve.CDF[i-1])
		assert.False(t, math.IsNaN(curve.CDF[i]))
	}
}

func TestNormalizeLogWeights(t *testing.T) {
	w := normalizeLogWeights([]float64{math.Inf(-1), 0, math.Log(3)})
	assert.Equal(t, 0.0, w[0])
	assert.InDelta(t, 0.25, w[1], 1e-15)
	assert.InDelta(t, 0.75, w[2], 1e-15)
}

func TestFixedLogWeights_zeroBackground(t *testing.T) {
	lnW := fixedLogWeights(4, 1.5, 0, 1, 0)
	for j := 0; j < 4; j++ {
		assert.True(t, math.IsInf(lnW[j], -1))
	}
	assert.False(t, math.IsInf(lnW[4], -1))
}
