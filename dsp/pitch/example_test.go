package pitch_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-keytune/dsp/pitch"
)

func ExampleNew() {
	const sampleRate = 44100
	in := make([]float64, sampleRate)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
	}

	shifter, err := pitch.New(pitch.EngineSpectral, sampleRate)
	if err != nil {
		panic(err)
	}
	out, err := shifter.Shift(in, 3)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(out) == len(in))
	// Output:
	// true
}
