package spectrum_test

import (
	"fmt"

	"github.com/cwbudde/algo-keytune/dsp/spectrum"
)

func ExampleMagnitude() {
	bins := []complex128{1 + 0i, 0 + 1i, -1 + 0i}
	mag := spectrum.Magnitude(bins)
	fmt.Printf("%.1f %.1f %.1f\n", mag[0], mag[1], mag[2])
	// Output:
	// 1.0 1.0 1.0
}

func ExampleSTFT_BinHz() {
	s, _ := spectrum.NewSTFT(4096, 1024, spectrum.WithZeroPad(2))
	fmt.Println(s.FFTSize(), s.Bins(), s.BinHz(8192, 44100))
	// Output:
	// 8192 4097 44100
}
