package chroma

import (
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
)

// Vector holds one non-negative energy per pitch class, C first.
type Vector [pitchclass.Count]float64

// Argmax returns the pitch class with the largest energy. Ties resolve to
// the lowest index, so an all-zero vector yields C.
func (v Vector) Argmax() pitchclass.Class {
	return pitchclass.Class(floats.MaxIdx(v[:]))
}

// Max returns the largest energy.
func (v Vector) Max() float64 {
	return floats.Max(v[:])
}

// Sum returns the total energy.
func (v Vector) Sum() float64 {
	return floats.Sum(v[:])
}

// Energy returns the energy of pitch class c.
func (v Vector) Energy(c pitchclass.Class) float64 {
	return v[c]
}

// Slice returns the energies as a new slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, len(v))
	copy(out, v[:])
	return out
}

// Map returns the energies keyed by pitch class name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v))
	for i, name := range pitchclass.Names() {
		out[name] = v[i]
	}
	return out
}

// Mean averages frames element-wise. It returns the zero vector for no
// frames.
func Mean(frames []Vector) Vector {
	var out Vector
	if len(frames) == 0 {
		return out
	}
	for _, f := range frames {
		floats.Add(out[:], f[:])
	}
	floats.Scale(1/float64(len(frames)), out[:])
	return out
}
