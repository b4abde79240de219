// Package table pre-tabulates the log normalizing integral used by the hardness ratio
// posterior. The integral is the regularized incomplete beta function I_y(m+psi1H, n+psi1S),
// whose log is stored for every pair of count bounds (n, m) and every point of a grid over
// the transformed hardness variable y in [0, 1]. Building the table is the only expensive
// step; posterior evaluation afterwards is pure lookup.
package table

import (
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

var (
	// ErrInvalidBounds indicates a negative count bound.
	ErrInvalidBounds = errors.New("count bounds must be non-negative")

	// ErrInvalidShape indicates a non-positive prior shape parameter.
	ErrInvalidShape = errors.New("prior shape parameters must be positive")

	// ErrInvalidGrid indicates a grid that does not increase strictly from 0 to 1.
	ErrInvalidGrid = errors.New("grid must increase strictly from 0 to 1")

	// ErrInvalidSubsampleSize indicates a subsample size outside [2, len(grid)].
	ErrInvalidSubsampleSize = errors.New("subsample size must be in [2, len(grid)]")
)

// Params defines the identity of a table: the inclusive count bounds it supports, the prior
// shape parameters baked into the tabulated function, and the y-grid it is evaluated on.
// Two tables built from equal Params are identical.
type Params struct {
	// NMax is the inclusive upper bound on soft-band counts.
	NMax int

	// MMax is the inclusive upper bound on hard-band counts.
	MMax int

	// Psi1Soft is the soft-band prior shape parameter.
	Psi1Soft float64

	// Psi1Hard is the hard-band prior shape parameter.
	Psi1Hard float64

	// YGrid is the ordered grid over the transformed hardness variable, covering [0, 1]
	// inclusive of both endpoints.
	YGrid []float64

	// Workers is the number of goroutines tabulating cells. Zero means runtime.NumCPU().
	// It has no effect on the result.
	Workers int
}

// Validate checks the parameters, returning the first violation found.
func (p Params) Validate() error {
	if p.NMax < 0 || p.MMax < 0 {
		return ErrInvalidBounds
	}
	if p.Psi1Soft <= 0 || p.Psi1Hard <= 0 {
		return ErrInvalidShape
	}
	return validateGrid(p.YGrid)
}

func validateGrid(grid []float64) error {
	if len(grid) < 2 || grid[0] != 0 || grid[len(grid)-1] != 1 {
		return ErrInvalidGrid
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			return ErrInvalidGrid
		}
	}
	return nil
}

// UniformGrid returns a uniformly spaced grid of the given size covering [0, 1].
func UniformGrid(size int) []float64 {
	return floats.Span(make([]float64, size), 0, 1)
}

// Table holds ln I_y(m+Psi1Hard, n+Psi1Soft) for every (n, m, y-index). It is immutable
// after Build and safe for concurrent readers. Entries at y = 0 are -Inf, since the
// incomplete beta function is exactly zero there; this is an expected value, not an error,
// and it survives persistence.
type Table struct {
	params Params
	lnI    [][][]float64
}

// Build tabulates ln I_y(m+Psi1Hard, n+Psi1Soft) for all (n, m) cell pairs and grid points.
// Cells are independent, so tabulation fans out across params.Workers goroutines, each
// writing its own rows.
func Build(params Params) (*Table, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		params: cloneParams(params),
		lnI:    make([][][]float64, params.NMax+1),
	}
	for n := range t.lnI {
		t.lnI[n] = make([][]float64, params.MMax+1)
	}

	nWorkers := params.Workers
	if nWorkers == 0 {
		nWorkers = runtime.NumCPU()
	}
	cells := make(chan [2]int, nWorkers)
	wg := new(sync.WaitGroup)
	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func(wg *sync.WaitGroup) {
			defer wg.Done()
			for cell := range cells {
				n, m := cell[0], cell[1]
				t.lnI[n][m] = tabulateRow(n, m, t.params)
			}
		}(wg)
	}
	for n := 0; n <= params.NMax; n++ {
		for m := 0; m <= params.MMax; m++ {
			cells <- [2]int{n, m}
		}
	}
	close(cells)
	wg.Wait()
	return t, nil
}

// tabulateRow evaluates the incomplete beta function along the grid for one (n, m) cell.
// math.Log(0) is a quiet -Inf, so the y = 0 endpoint needs no special casing.
func tabulateRow(n, m int, params Params) []float64 {
	a := float64(m) + params.Psi1Hard
	b := float64(n) + params.Psi1Soft
	row := make([]float64, len(params.YGrid))
	for i, y := range params.YGrid {
		row[i] = math.Log(mathext.RegIncBeta(a, b, y))
	}
	return row
}

// Params returns a copy of the parameters the table was built with.
func (t *Table) Params() Params {
	return cloneParams(t.params)
}

// NMax returns the inclusive upper bound on soft-band counts.
func (t *Table) NMax() int { return t.params.NMax }

// MMax returns the inclusive upper bound on hard-band counts.
func (t *Table) MMax() int { return t.params.MMax }

// Psi1Soft returns the soft-band prior shape parameter.
func (t *Table) Psi1Soft() float64 { return t.params.Psi1Soft }

// Psi1Hard returns the hard-band prior shape parameter.
func (t *Table) Psi1Hard() float64 { return t.params.Psi1Hard }

// GridSize returns the number of y-grid points.
func (t *Table) GridSize() int { return len(t.params.YGrid) }

// YGrid returns the y-grid. The returned slice must not be modified.
func (t *Table) YGrid() []float64 { return t.params.YGrid }

// Row returns the ln I values along the grid for count pair (n, m). The returned slice
// must not be modified.
func (t *Table) Row(n, m int) []float64 { return t.lnI[n][m] }

// Subsample derives a coarser table by selecting size index-even grid points (always
// retaining the first and last) and the matching entries of every row, without recomputing
// any incomplete beta values. The receiver is not modified.
func (t *Table) Subsample(size int) (*Table, error) {
	nGrid := len(t.params.YGrid)
	if size < 2 || size > nGrid {
		return nil, ErrInvalidSubsampleSize
	}
	idxs := make([]int, size)
	for i := range idxs {
		idxs[i] = int(math.Round(float64(i) * float64(nGrid-1) / float64(size-1)))
	}

	sub := &Table{
		params: t.params,
		lnI:    make([][][]float64, t.params.NMax+1),
	}
	sub.params.YGrid = make([]float64, size)
	for i, idx := range idxs {
		sub.params.YGrid[i] = t.params.YGrid[idx]
	}
	for n := range sub.lnI {
		sub.lnI[n] = make([][]float64, t.params.MMax+1)
		for m := range sub.lnI[n] {
			row := make([]float64, size)
			for i, idx := range idxs {
				row[i] = t.lnI[n][m][idx]
			}
			sub.lnI[n][m] = row
		}
	}
	return sub, nil
}

func cloneParams(p Params) Params {
	c := p
	c.YGrid = make([]float64, len(p.YGrid))
	copy(c.YGrid, p.YGrid)
	c.Workers = 0
	return c
}
