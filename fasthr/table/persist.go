package table

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Tables persist as a flat binary layout: a fixed header, the y-grid as one array of
// float64 bit patterns, and the ln I rows in (n, m) order. Raw IEEE-754 bits round-trip the
// -Inf entries exactly.

const (
	persistMagic   = uint32(0x46485254) // "FHRT"
	persistVersion = uint32(1)
)

var (
	// ErrBadTableFormat indicates bytes that do not parse as a persisted table.
	ErrBadTableFormat = errors.New("malformed table data")
)

type persistHeader struct {
	Magic    uint32
	Version  uint32
	NMax     int64
	MMax     int64
	GridSize int64
	Psi1Soft float64
	Psi1Hard float64
}

// WriteTo writes the table to w. It implements io.WriterTo.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{inner: w}
	header := persistHeader{
		Magic:    persistMagic,
		Version:  persistVersion,
		NMax:     int64(t.params.NMax),
		MMax:     int64(t.params.MMax),
		GridSize: int64(len(t.params.YGrid)),
		Psi1Soft: t.params.Psi1Soft,
		Psi1Hard: t.params.Psi1Hard,
	}
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, t.params.YGrid); err != nil {
		return cw.n, err
	}
	for n := 0; n <= t.params.NMax; n++ {
		for m := 0; m <= t.params.MMax; m++ {
			if err := binary.Write(cw, binary.LittleEndian, t.lnI[n][m]); err != nil {
				return cw.n, err
			}
		}
	}
	return cw.n, nil
}

// Read reads a table previously written with WriteTo.
func Read(r io.Reader) (*Table, error) {
	var header persistHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(ErrBadTableFormat, err.Error())
	}
	if header.Magic != persistMagic || header.Version != persistVersion {
		return nil, ErrBadTableFormat
	}
	if header.NMax < 0 || header.MMax < 0 || header.GridSize < 2 {
		return nil, ErrBadTableFormat
	}
	t := &Table{
		params: Params{
			NMax:     int(header.NMax),
			MMax:     int(header.MMax),
			Psi1Soft: header.Psi1Soft,
			Psi1Hard: header.Psi1Hard,
			YGrid:    make([]float64, header.GridSize),
		},
	}
	if err := binary.Read(r, binary.LittleEndian, t.params.YGrid); err != nil {
		return nil, errors.Wrap(ErrBadTableFormat, err.Error())
	}
	if err := validateGrid(t.params.YGrid); err != nil {
		return nil, ErrBadTableFormat
	}
	t.lnI = make([][][]float64, t.params.NMax+1)
	for n := range t.lnI {
		t.lnI[n] = make([][]float64, t.params.MMax+1)
		for m := range t.lnI[n] {
			row := make([]float64, header.GridSize)
			if err := binary.Read(r, binary.LittleEndian, row); err != nil {
				return nil, errors.Wrap(ErrBadTableFormat, err.Error())
			}
			t.lnI[n][m] = row
		}
	}
	return t, nil
}

type countingWriter struct {
	inner io.Writer
	n     int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.inner.Write(p)
	cw.n += int64(n)
	return n, err
}
