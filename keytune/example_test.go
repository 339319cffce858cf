package keytune_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/keytune"
)

func ExampleKeyTuner() {
	const sampleRate = 44100
	samples := make([]float64, 2*sampleRate)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
	}
	clip := buffer.New(samples, sampleRate)

	kt, err := keytune.New(keytune.WithTransposition(keytune.TranspositionNearest))
	if err != nil {
		panic(err)
	}

	result, err := kt.Analyze(clip)
	if err != nil {
		panic(err)
	}
	fmt.Println("key:", result.Key)

	_, shift, err := kt.Retune(clip, &result, "c")
	if err != nil {
		panic(err)
	}
	fmt.Printf("shift: %.0f semitones\n", shift)
	// Output:
	// key: A
	// shift: 3 semitones
}
