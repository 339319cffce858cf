package resample

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-keytune/dsp/window"
)

// filterBank is a windowed-sinc low-pass split into up polyphase branches.
// delay is the group delay of the prototype on the upsampled grid.
type filterBank struct {
	phases [][]float64
	delay  int
}

func newFilterBank(up, down int, p Profile) (*filterBank, error) {
	if p.TapsPerPhase <= 0 {
		return nil, fmt.Errorf("resample: taps per phase must be > 0, got %d", p.TapsPerPhase)
	}

	// Odd length keeps the group delay on an integer sample.
	length := p.TapsPerPhase*up | 1
	cutoff := p.CutoffScale * 0.5 / float64(max(up, down))
	if !(cutoff > 0 && cutoff < 0.5) {
		return nil, fmt.Errorf("resample: cutoff %.6f out of range", cutoff)
	}

	win, err := window.Kaiser(length, p.KaiserBeta)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	mid := (length - 1) / 2
	proto := make([]float64, length)
	var dc float64
	for i := range proto {
		proto[i] = 2 * cutoff * sinc(2*cutoff*float64(i-mid)) * win[i]
		dc += proto[i]
	}
	if dc == 0 {
		return nil, fmt.Errorf("resample: degenerate filter for %d/%d", up, down)
	}

	// Unity passband gain after zero-stuffing by up.
	gain := float64(up) / dc
	phases := make([][]float64, up)
	for i, h := range proto {
		phases[i%up] = append(phases[i%up], h*gain)
	}

	return &filterBank{phases: phases, delay: mid}, nil
}

// approximateRatio returns the last continued-fraction convergent of v whose
// denominator does not exceed maxDen.
func approximateRatio(v float64, maxDen int) (num, den int) {
	if maxDen <= 0 {
		maxDen = 4096
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 1, 1
	}

	// Convergents h/k, seeded with 1/0 and floor(v)/1.
	hPrev, kPrev := 1, 0
	h, k := int(math.Floor(v)), 1
	x := v
	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
		a := int(math.Floor(x))
		kNext := a*k + kPrev
		if kNext > maxDen {
			break
		}
		h, hPrev = a*h+hPrev, h
		k, kPrev = kNext, k
	}

	if h <= 0 {
		// v is below 1/maxDen.
		return 1, maxDen
	}
	g := gcd(h, k)
	return h / g, k / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	if a == 0 {
		return 1
	}
	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}
