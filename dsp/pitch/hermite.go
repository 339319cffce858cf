package pitch

import "math"

// hermite4 computes cubic 4-point interpolation from x0 to x1 using the
// neighbours xm1 and x2.
func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// resampleHermite stretches or squeezes input to exactly outLen samples.
func resampleHermite(input []float64, outLen int) []float64 {
	if outLen <= 0 || len(input) == 0 {
		return nil
	}

	out := make([]float64, outLen)
	if len(input) == 1 {
		for i := range out {
			out[i] = input[0]
		}
		return out
	}
	if outLen == 1 {
		out[0] = input[0]
		return out
	}

	step := float64(len(input)-1) / float64(outLen-1)
	pos := 0.0
	for i := range out {
		out[i] = sampleHermite(input, pos)
		pos += step
	}
	return out
}

func sampleHermite(input []float64, pos float64) float64 {
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	return hermite4(frac,
		sampleClamp(input, idx-1),
		sampleClamp(input, idx),
		sampleClamp(input, idx+1),
		sampleClamp(input, idx+2),
	)
}

func sampleZero(x []float64, idx int) float64 {
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx]
}

func sampleClamp(x []float64, idx int) float64 {
	if len(x) == 0 {
		return 0
	}
	if idx < 0 {
		return x[0]
	}
	if idx >= len(x) {
		return x[len(x)-1]
	}
	return x[idx]
}
