package posterior

// Mode selects which background-handling branch an Estimator uses.
type Mode string

const (
	// Fixed treats the background rate as exactly known.
	Fixed Mode = "fixed"

	// Unfixed infers the background rate from an auxiliary background-region observation.
	Unfixed Mode = "unfixed"
)

// Observation holds one source's counts and exposures in the soft and hard bands. Counts are
// from the source region and include any background contribution.
type Observation struct {
	// Soft is the soft-band source-region count.
	Soft int

	// Hard is the hard-band source-region count.
	Hard int

	// SoftExposure is the soft-band exposure (time and/or area), strictly positive.
	SoftExposure float64

	// HardExposure is the hard-band exposure, strictly positive.
	HardExposure float64
}

// Priors holds the conjugate Gamma prior parameters for the intrinsic soft- and hard-band
// rates: p(lambda) ~ lambda^(psi1-1) * exp(-psi2 * exposure * lambda). Psi1 is the shape,
// psi2 a pseudo-exposure in units of the band's actual exposure.
type Priors struct {
	Psi1Soft float64
	Psi2Soft float64
	Psi1Hard float64
	Psi2Hard float64
}

// FixedBackground supplies an exactly known background as the expected background counts in
// the source region.
type FixedBackground struct {
	XiSoft float64
	XiHard float64
}

// UnfixedBackground supplies an auxiliary background-region observation from which the
// background rate itself is inferred: counts, a conjugate Gamma prior on the background
// rate, and the ratio of source-region to background-region equivalent exposure.
type UnfixedBackground struct {
	BSoft int
	BHard int

	Psi3Soft float64
	Psi4Soft float64
	Psi3Hard float64
	Psi4Hard float64

	RatioSoft float64
	RatioHard float64
}
