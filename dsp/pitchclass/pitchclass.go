// Package pitchclass names the twelve equal-tempered pitch classes and the
// cyclic arithmetic between them.
package pitchclass

import (
	"errors"
	"fmt"
	"strings"
)

// Count is the number of pitch classes in an octave.
const Count = 12

// Class is a pitch class index in [0, 12): C=0, C#=1, ..., B=11.
type Class int

// The twelve pitch classes in chromatic order.
const (
	C Class = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// ErrUnknown is returned by Parse for names outside the twelve sharps-based
// pitch class names.
var ErrUnknown = errors.New("pitchclass: unknown pitch class")

var names = [Count]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Names returns the canonical pitch class names in chromatic order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// All returns every pitch class in chromatic order.
func All() []Class {
	out := make([]Class, Count)
	for i := range out {
		out[i] = Class(i)
	}
	return out
}

// Parse resolves a pitch class name. Matching is case-insensitive and
// ignores surrounding whitespace; flats are not accepted.
func Parse(name string) (Class, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range names {
		if n == candidate {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// FromIndex wraps any integer onto the pitch class circle.
func FromIndex(i int) Class {
	return Class(mod(i, Count))
}

// Valid reports whether c lies in [0, 12).
func (c Class) Valid() bool {
	return c >= 0 && c < Count
}

// String returns the canonical name, or "Class(n)" for invalid values.
func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return names[c]
}

// Add moves c by n semitones around the circle.
func (c Class) Add(n int) Class {
	return FromIndex(int(c) + n)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(c))
	}
	return []byte(names[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Distance returns the literal index difference to - from, in [-11, 11].
// B to C is -11.
func Distance(from, to Class) int {
	return int(to) - int(from)
}

// NearestDistance returns the shortest signed distance from from to to,
// wrapped into [-6, 6). A tritone resolves downwards.
func NearestDistance(from, to Class) int {
	return mod(Distance(from, to)+6, Count) - 6
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
