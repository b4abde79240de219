// Package posterior computes the Bayesian posterior distribution of the X-ray hardness
// ratio HR = (lambdaH - lambdaS) / (lambdaH + lambdaS) for a source observed under Poisson
// statistics with conjugate Gamma priors on the band rates.
//
// The exact marginal posterior of each band rate is a finite Gamma mixture (one component
// per possible split of the observed counts between source and background). In the
// transformed variable y = aH*lambdaH / (aS*lambdaS + aH*lambdaH), where aS and aH are the
// effective exposures, each component pair (j, k) has posterior CDF I_y(k+psi1H, j+psi1S),
// the regularized incomplete beta function pre-tabulated by the table package. The HR
// posterior CDF is the weight-mixture of those table rows; after tabulation no special
// function is evaluated at all.
package posterior

import (
	"math"

	"github.com/astrostat/fasthr/fasthr/table"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCounts indicates a negative source- or background-region count.
	ErrInvalidCounts = errors.New("counts must be non-negative")

	// ErrInvalidExposure indicates a non-positive exposure or exposure ratio.
	ErrInvalidExposure = errors.New("exposures must be positive")

	// ErrInvalidPriors indicates a non-positive prior shape or a negative pseudo-exposure.
	ErrInvalidPriors = errors.New("prior shapes must be positive and pseudo-exposures non-negative")

	// ErrInvalidBackground indicates a negative expected background count.
	ErrInvalidBackground = errors.New("expected background counts must be non-negative")

	// ErrFixedBackgroundMissing indicates Init(Fixed) without fixed-background parameters.
	ErrFixedBackgroundMissing = errors.New("fixed background parameters were not supplied")

	// ErrUnfixedBackgroundMissing indicates Init(Unfixed) without an auxiliary observation.
	ErrUnfixedBackgroundMissing = errors.New("unfixed background parameters were not supplied")

	// ErrUnknownMode indicates a mode other than Fixed or Unfixed.
	ErrUnknownMode = errors.New("unknown background mode")

	// ErrNotInitialized indicates CDF called before Init.
	ErrNotInitialized = errors.New("estimator has no initialized background mode")

	// ErrCountsExceedTable indicates observed counts beyond the table's bounds.
	ErrCountsExceedTable = errors.New("observed counts exceed table count bounds")

	// ErrPriorMismatch indicates a table built with different prior shape parameters.
	ErrPriorMismatch = errors.New("table prior shape parameters do not match estimator priors")
)

// Estimator computes the HR posterior for a single source. It is used in two phases:
// Init(mode) validates and precomputes everything that does not depend on a table, and
// CDF(table) evaluates the posterior on the table's grid. Init may be called once and CDF
// repeatedly with different (grid-compatible) tables.
type Estimator struct {
	obs     Observation
	priors  Priors
	fixed   *FixedBackground
	unfixed *UnfixedBackground

	mode        Mode
	softWeights []float64
	hardWeights []float64
	aSoft       float64
	aHard       float64
}

// Option configures an Estimator at construction.
type Option func(*Estimator)

// WithFixedBackground supplies exactly known background counts, enabling Init(Fixed).
func WithFixedBackground(bg FixedBackground) Option {
	return func(e *Estimator) { e.fixed = &bg }
}

// WithUnfixedBackground supplies an auxiliary background observation, enabling Init(Unfixed).
func WithUnfixedBackground(bg UnfixedBackground) Option {
	return func(e *Estimator) { e.unfixed = &bg }
}

// NewEstimator creates an Estimator for one source, validating all supplied parameters.
func NewEstimator(obs Observation, priors Priors, opts ...Option) (*Estimator, error) {
	e := &Estimator{obs: obs, priors: priors}
	for _, opt := range opts {
		opt(e)
	}
	if obs.Soft < 0 || obs.Hard < 0 {
		return nil, ErrInvalidCounts
	}
	if obs.SoftExposure <= 0 || obs.HardExposure <= 0 {
		return nil, ErrInvalidExposure
	}
	if priors.Psi1Soft <= 0 || priors.Psi1Hard <= 0 || priors.Psi2Soft < 0 || priors.Psi2Hard < 0 {
		return nil, ErrInvalidPriors
	}
	if e.fixed != nil && (e.fixed.XiSoft < 0 || e.fixed.XiHard < 0) {
		return nil, ErrInvalidBackground
	}
	if e.unfixed != nil {
		if e.unfixed.BSoft < 0 || e.unfixed.BHard < 0 {
			return nil, ErrInvalidCounts
		}
		if e.unfixed.RatioSoft <= 0 || e.unfixed.RatioHard <= 0 {
			return nil, ErrInvalidExposure
		}
		if e.unfixed.Psi3Soft <= 0 || e.unfixed.Psi3Hard <= 0 ||
			e.unfixed.Psi4Soft < 0 || e.unfixed.Psi4Hard < 0 {
			return nil, ErrInvalidPriors
		}
	}
	return e, nil
}

// Init selects the background-handling branch and precomputes the posterior mixture weights
// for it. The weights depend only on the counts, exposures, priors, and background model,
// never on a table or grid.
func (e *Estimator) Init(mode Mode) error {
	switch mode {
	case Fixed:
		if e.fixed == nil {
			return ErrFixedBackgroundMissing
		}
		e.softWeights = normalizeLogWeights(fixedLogWeights(
			e.obs.Soft, e.obs.SoftExposure, e.fixed.XiSoft, e.priors.Psi1Soft, e.priors.Psi2Soft))
		e.hardWeights = normalizeLogWeights(fixedLogWeights(
			e.obs.Hard, e.obs.HardExposure, e.fixed.XiHard, e.priors.Psi1Hard, e.priors.Psi2Hard))
	case Unfixed:
		if e.unfixed == nil {
			return ErrUnfixedBackgroundMissing
		}
		e.softWeights = normalizeLogWeights(unfixedLogWeights(
			e.obs.Soft, e.unfixed.BSoft, e.obs.SoftExposure, e.priors.Psi1Soft, e.priors.Psi2Soft,
			e.unfixed.Psi3Soft, e.unfixed.Psi4Soft, e.unfixed.RatioSoft))
		e.hardWeights = normalizeLogWeights(unfixedLogWeights(
			e.obs.Hard, e.unfixed.BHard, e.obs.HardExposure, e.priors.Psi1Hard, e.priors.Psi2Hard,
			e.unfixed.Psi3Hard, e.unfixed.Psi4Hard, e.unfixed.RatioHard))
	default:
		return ErrUnknownMode
	}
	e.aSoft = e.obs.SoftExposure * (1 + e.priors.Psi2Soft)
	e.aHard = e.obs.HardExposure * (1 + e.priors.Psi2Hard)
	e.mode = mode
	return nil
}

// Mode returns the initialized background mode, or the empty string before Init.
func (e *Estimator) Mode() Mode { return e.mode }

// CDF evaluates the posterior CDF of HR on the given table's grid. The table must have been
// built with the estimator's prior shape parameters and with count bounds of at least the
// observed counts; both are checked. The table's grid is used as-is: callers reusing one
// estimator across tables are responsible for keeping the grids they compare compatible.
func (e *Estimator) CDF(t *table.Table) (*Curve, error) {
	if e.mode == "" {
		return nil, ErrNotInitialized
	}
	if e.obs.Soft > t.NMax() || e.obs.Hard > t.MMax() {
		return nil, ErrCountsExceedTable
	}
	if t.Psi1Soft() != e.priors.Psi1Soft || t.Psi1Hard() != e.priors.Psi1Hard {
		return nil, ErrPriorMismatch
	}

	grid := t.YGrid()
	cdf := make([]float64, len(grid))
	for j, wj := range e.softWeights {
		if wj == 0 {
			continue
		}
		for k, wk := range e.hardWeights {
			w := wj * wk
			if w == 0 {
				continue
			}
			// -Inf entries (y = 0, or underflow at extreme shapes) exponentiate
			// to an exact zero contribution.
			for i, lnI := range t.Row(j, k) {
				cdf[i] += w * math.Exp(lnI)
			}
		}
	}
	// each row is non-decreasing in y, but rounding in the sums can wiggle by an ulp
	for i := 1; i < len(cdf); i++ {
		if cdf[i] < cdf[i-1] {
			cdf[i] = cdf[i-1]
		}
	}
	// weights sum to 1 and I_1 = 1, so the last value is 1 up to rounding; pin it there
	norm := cdf[len(cdf)-1]
	for i := range cdf {
		cdf[i] /= norm
	}

	q := e.aSoft / e.aHard
	hr := make([]float64, len(grid))
	for i, y := range grid {
		hr[i] = (q*y - (1 - y)) / (q*y + (1 - y))
	}
	return &Curve{HR: hr, CDF: cdf}, nil
}

// fixedLogWeights returns the unnormalized log mixture weights for one band when the
// expected background counts xi are exactly known: component j attributes j of the observed
// counts to the source and the rest to the background.
func fixedLogWeights(counts int, exposure, xi, psi1, psi2 float64) []float64 {
	a := exposure * (1 + psi2)
	lnW := make([]float64, counts+1)
	for j := range lnW {
		jf := float64(j)
		v := lnChoose(counts, j) + jf*math.Log(exposure) + lnGamma(jf+psi1) - (jf+psi1)*math.Log(a)
		if xi == 0 {
			// no background: only the all-source split survives
			if j < counts {
				v = math.Inf(-1)
			}
		} else {
			v += float64(counts-j) * math.Log(xi)
		}
		lnW[j] = v
	}
	return lnW
}

// unfixedLogWeights returns the unnormalized log mixture weights for one band when the
// background rate is inferred from bg counts observed over 1/ratio of the band's equivalent
// exposure. Marginalizing the Gamma posterior of the background rate replaces the Poisson
// factor of the fixed case with a heavier-tailed negative-binomial one.
func unfixedLogWeights(counts, bg int, exposure, psi1, psi2, psi3, psi4, ratio float64) []float64 {
	a := exposure * (1 + psi2)
	bgExposure := exposure / ratio
	rate := exposure + bgExposure*(1+psi4)
	lnW := make([]float64, counts+1)
	for j := range lnW {
		jf := float64(j)
		rest := float64(counts - j)
		lnW[j] = lnChoose(counts, j) +
			jf*math.Log(exposure) + lnGamma(jf+psi1) - (jf+psi1)*math.Log(a) +
			rest*math.Log(exposure) + lnGamma(rest+float64(bg)+psi3) -
			(rest+float64(bg)+psi3)*math.Log(rate)
	}
	return lnW
}

// normalizeLogWeights exponentiates log weights after subtracting their maximum and
// normalizes the result to sum to 1. -Inf log weights map to exact zeros.
func normalizeLogWeights(lnW []float64) []float64 {
	max := math.Inf(-1)
	for _, v := range lnW {
		if v > max {
			max = v
		}
	}
	w := make([]float64, len(lnW))
	sum := 0.0
	for i, v := range lnW {
		w[i] = math.Exp(v - max)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func lnGamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func lnChoose(n, k int) float64 {
	return lnGamma(float64(n)+1) - lnGamma(float64(k)+1) - lnGamma(float64(n-k)+1)
}
