package chroma

import (
	"testing"

	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
)

func TestArgmaxTieBreaksLow(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want pitchclass.Class
	}{
		{"zero", Vector{}, pitchclass.C},
		{"single", Vector{9: 1}, pitchclass.A},
		{"tie", Vector{4: 2, 7: 2, 11: 1}, pitchclass.E},
		{"tie with C", Vector{0: 3, 11: 3}, pitchclass.C},
	}
	for _, tc := range tests {
		if got := tc.v.Argmax(); got != tc.want {
			t.Fatalf("%s: Argmax() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMean(t *testing.T) {
	got := Mean([]Vector{{0: 1, 1: 2}, {0: 3, 5: 4}})
	want := Vector{0: 2, 1: 1, 5: 2}
	if got != want {
		t.Fatalf("Mean() = %v, want %v", got, want)
	}
	if Mean(nil) != (Vector{}) {
		t.Fatal("Mean(nil) should be zero")
	}
}

func TestVectorMap(t *testing.T) {
	m := Vector{pitchclass.GSharp: 0.5}.Map()
	if len(m) != 12 || m["G#"] != 0.5 || m["C"] != 0 {
		t.Fatalf("Map() = %v", m)
	}
}
