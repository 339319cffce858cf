package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-keytune/dsp/core"
	"github.com/cwbudde/algo-keytune/dsp/resample"
	"github.com/cwbudde/algo-keytune/dsp/window"
)

const (
	defaultFrameSize   = 1024
	defaultAnalysisHop = 256
	minFrameSize       = 64
	normFloor          = 1e-12

	// binShiftThreshold is the largest |ratio - 1| handled by moving bins
	// directly. Beyond it the time-stretch path is used.
	binShiftThreshold = 0.15

	// resampleMaxDen bounds the denominator of the rational approximation
	// of the pitch ratio in the time-stretch path.
	resampleMaxDen = 512
)

// Spectral shifts pitch with a phase vocoder.
//
// Ratios within 15% of unity shift STFT bins directly with per-bin phase
// accumulation. Larger ratios time-stretch with identity phase locking
// (Laroche & Dolson 1999) using a synthesis hop of round(hop*ratio), then
// resample by the exact ratio, so the realised pitch does not depend on
// hop quantisation.
//
// Spectral keeps FFT scratch state and is not safe for concurrent use.
type Spectral struct {
	sampleRate  float64
	frameSize   int
	analysisHop int

	windowType      window.Type
	resampleQuality resample.Quality

	plan   *algofft.Plan[complex128]
	coeffs []float64
	omega  []float64

	prevPhase []float64
	sumPhase  []float64

	analysis  []complex128
	synthesis []complex128
	timeFrame []complex128

	magnitudes  []float64
	instFreqs   []float64
	shiftedMag  []float64
	shiftedFreq []float64
	peakBins    []int
}

// NewSpectral creates a phase-vocoder shifter with a 1024-sample Hann
// frame and a 256-sample analysis hop.
func NewSpectral(sampleRate float64) (*Spectral, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("pitch: spectral sample rate must be positive and finite: %f", sampleRate)
	}

	s := &Spectral{
		sampleRate:      sampleRate,
		frameSize:       defaultFrameSize,
		analysisHop:     defaultAnalysisHop,
		windowType:      window.TypeHann,
		resampleQuality: resample.QualityBalanced,
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// SampleRate returns the sample rate in Hz.
func (s *Spectral) SampleRate() float64 { return s.sampleRate }

// FrameSize returns the FFT frame size.
func (s *Spectral) FrameSize() int { return s.frameSize }

// AnalysisHop returns the analysis hop size in samples.
func (s *Spectral) AnalysisHop() int { return s.analysisHop }

// SynthesisHop returns the synthesis hop used for ratio.
func (s *Spectral) SynthesisHop(ratio float64) int {
	if useBinShift(ratio) {
		return s.analysisHop
	}
	return max(int(math.Round(float64(s.analysisHop)*ratio)), 1)
}

// WindowType returns the STFT window type.
func (s *Spectral) WindowType() window.Type { return s.windowType }

// ResampleQuality returns the quality of the time-stretch resampler.
func (s *Spectral) ResampleQuality() resample.Quality { return s.resampleQuality }

// SetFrameSize updates the FFT frame size. size must be a power of two and
// >= 64. The analysis hop is reduced to a quarter frame if it no longer
// fits.
func (s *Spectral) SetFrameSize(size int) error {
	if size < minFrameSize || !isPowerOf2(size) {
		return fmt.Errorf("pitch: spectral frame size must be power-of-two and >= %d: %d", minFrameSize, size)
	}
	s.frameSize = size
	if s.analysisHop >= s.frameSize {
		s.analysisHop = max(s.frameSize/4, 1)
	}
	return s.rebuild()
}

// SetAnalysisHop updates the analysis hop size in samples.
func (s *Spectral) SetAnalysisHop(hop int) error {
	if hop <= 0 || hop >= s.frameSize {
		return fmt.Errorf("pitch: spectral analysis hop must be in [1, %d): %d", s.frameSize, hop)
	}
	s.analysisHop = hop
	return nil
}

// SetWindowType updates the STFT window shape.
func (s *Spectral) SetWindowType(t window.Type) error {
	s.windowType = t
	return s.rebuild()
}

// SetResampleQuality updates the time-stretch resampler quality.
func (s *Spectral) SetResampleQuality(q resample.Quality) {
	s.resampleQuality = q
}

// Shift returns samples shifted by semitones.
func (s *Spectral) Shift(samples []float64, semitones float64) ([]float64, error) {
	ratio, err := RatioForSemitones(semitones)
	if err != nil {
		return nil, err
	}
	return s.ShiftRatio(samples, ratio)
}

// ShiftRatio returns samples shifted by a frequency ratio in [0.25, 4].
func (s *Spectral) ShiftRatio(samples []float64, ratio float64) ([]float64, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return []float64{}, nil
	}
	if isIdentity(ratio) {
		return copyOf(samples), nil
	}
	if useBinShift(ratio) {
		return s.binShift(samples, ratio)
	}
	return s.stretchAndResample(samples, ratio)
}

func useBinShift(ratio float64) bool {
	return math.Abs(ratio-1) <= binShiftThreshold
}

// binShift moves each frame's bins by ratio with linear interpolation.
// Analysis and synthesis hops are equal, so no phase locking is needed.
func (s *Spectral) binShift(input []float64, ratio float64) ([]float64, error) {
	s.resetPhase()

	hop := s.analysisHop
	frameCount := 1 + (len(input)-1)/hop
	ola := newOverlapAdd((frameCount-1)*hop + s.frameSize)

	half := s.frameSize / 2
	hopF := float64(hop)

	for frame := range frameCount {
		pos := frame * hop
		if err := s.analyze(input, pos, hopF); err != nil {
			return nil, err
		}

		for k := 0; k <= half; k++ {
			srcK := float64(k) / ratio
			if srcK >= float64(half) {
				s.shiftedMag[k] = 0
				s.shiftedFreq[k] = s.omega[k]
				continue
			}
			lo := int(srcK)
			frac := srcK - float64(lo)
			hi := min(lo+1, half)
			s.shiftedMag[k] = s.magnitudes[lo]*(1-frac) + s.magnitudes[hi]*frac
			s.shiftedFreq[k] = (s.instFreqs[lo]*(1-frac) + s.instFreqs[hi]*frac) * ratio
		}

		for k := 0; k <= half; k++ {
			s.sumPhase[k] += s.shiftedFreq[k] * hopF
			s.synthesis[k] = polar(s.shiftedMag[k], s.sumPhase[k])
		}

		if err := s.synthesize(ola, pos); err != nil {
			return nil, err
		}
	}

	return fitLength(ola.normalized(), len(input)), nil
}

// stretchAndResample time-stretches by the quantised hop ratio, then
// resamples by the exact pitch ratio.
func (s *Spectral) stretchAndResample(input []float64, ratio float64) ([]float64, error) {
	s.resetPhase()

	synthesisHop := s.SynthesisHop(ratio)
	frameCount := 1 + (len(input)-1)/s.analysisHop
	ola := newOverlapAdd((frameCount-1)*synthesisHop + s.frameSize)

	half := s.frameSize / 2
	synthesisHopF := float64(synthesisHop)

	for frame := range frameCount {
		if err := s.analyze(input, frame*s.analysisHop, float64(s.analysisHop)); err != nil {
			return nil, err
		}
		s.lockPhases(half, synthesisHopF)
		if err := s.synthesize(ola, frame*synthesisHop); err != nil {
			return nil, err
		}
	}

	stretched := ola.normalized()

	r, err := resample.NewForRates(ratio, 1,
		resample.WithQuality(s.resampleQuality),
		resample.WithMaxDenominator(resampleMaxDen),
	)
	if err != nil {
		return nil, fmt.Errorf("pitch: spectral resampler: %w", err)
	}
	return fitLength(r.Convert(stretched), len(input)), nil
}

// lockPhases advances peak phases by their instantaneous frequency and
// ties every other bin to its nearest peak (identity phase locking).
func (s *Spectral) lockPhases(half int, hop float64) {
	s.peakBins = s.peakBins[:0]
	for k := 1; k < half; k++ {
		if s.magnitudes[k] >= s.magnitudes[k-1] && s.magnitudes[k] > s.magnitudes[k+1] {
			s.peakBins = append(s.peakBins, k)
		}
	}

	if len(s.peakBins) == 0 {
		for k := 0; k <= half; k++ {
			s.sumPhase[k] += s.instFreqs[k] * hop
			s.synthesis[k] = polar(s.magnitudes[k], s.sumPhase[k])
		}
		return
	}

	for _, pk := range s.peakBins {
		s.sumPhase[pk] += s.instFreqs[pk] * hop
	}

	peakIdx := 0
	for k := 0; k <= half; k++ {
		for peakIdx+1 < len(s.peakBins) &&
			absInt(s.peakBins[peakIdx+1]-k) < absInt(s.peakBins[peakIdx]-k) {
			peakIdx++
		}
		pk := s.peakBins[peakIdx]
		if k != pk {
			s.sumPhase[k] = s.sumPhase[pk] + (s.prevPhase[k] - s.prevPhase[pk])
		}
		s.synthesis[k] = polar(s.magnitudes[k], s.sumPhase[k])
	}
}

// analyze windows the frame at pos, transforms it and fills magnitudes
// and instantaneous frequencies for a hop of hopF samples.
func (s *Spectral) analyze(input []float64, pos int, hopF float64) error {
	for i := range s.frameSize {
		s.analysis[i] = complex(sampleZero(input, pos+i)*s.coeffs[i], 0)
	}
	if err := s.plan.Forward(s.analysis, s.analysis); err != nil {
		return fmt.Errorf("pitch: spectral forward FFT failed: %w", err)
	}

	half := s.frameSize / 2
	for k := 0; k <= half; k++ {
		re, im := real(s.analysis[k]), imag(s.analysis[k])
		s.magnitudes[k] = math.Hypot(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - s.prevPhase[k] - s.omega[k]*hopF)
		s.instFreqs[k] = s.omega[k] + delta/hopF
		s.prevPhase[k] = phase
	}
	return nil
}

// synthesize mirrors the one-sided synthesis spectrum, inverts it and
// overlap-adds the windowed frame at pos.
func (s *Spectral) synthesize(ola *overlapAdd, pos int) error {
	half := s.frameSize / 2
	s.synthesis[0] = complex(real(s.synthesis[0]), 0)
	s.synthesis[half] = complex(real(s.synthesis[half]), 0)
	for k := 1; k < half; k++ {
		v := s.synthesis[k]
		s.synthesis[s.frameSize-k] = complex(real(v), -imag(v))
	}

	if err := s.plan.Inverse(s.timeFrame, s.synthesis); err != nil {
		return fmt.Errorf("pitch: spectral inverse FFT failed: %w", err)
	}

	for i, w := range s.coeffs {
		ola.add(pos+i, real(s.timeFrame[i])*w, w*w)
	}
	return nil
}

func (s *Spectral) resetPhase() {
	clear(s.prevPhase)
	clear(s.sumPhase)
}

func (s *Spectral) rebuild() error {
	if s.frameSize < minFrameSize || !isPowerOf2(s.frameSize) {
		return fmt.Errorf("pitch: spectral frame size must be power-of-two and >= %d: %d", minFrameSize, s.frameSize)
	}

	plan, err := algofft.NewPlan64(s.frameSize)
	if err != nil {
		return fmt.Errorf("pitch: spectral FFT plan: %w", err)
	}
	s.plan = plan

	coeffs := window.Generate(s.windowType, s.frameSize, window.WithPeriodic())
	if len(coeffs) != s.frameSize {
		return fmt.Errorf("pitch: spectral window generation failed for size %d", s.frameSize)
	}
	s.coeffs = coeffs

	bins := s.frameSize/2 + 1
	s.omega = make([]float64, bins)
	for k := range bins {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(s.frameSize)
	}

	s.prevPhase = make([]float64, bins)
	s.sumPhase = make([]float64, bins)
	s.analysis = make([]complex128, s.frameSize)
	s.synthesis = make([]complex128, s.frameSize)
	s.timeFrame = make([]complex128, s.frameSize)

	s.magnitudes = make([]float64, bins)
	s.instFreqs = make([]float64, bins)
	s.shiftedMag = make([]float64, bins)
	s.shiftedFreq = make([]float64, bins)
	s.peakBins = make([]int, 0, bins)
	return nil
}

// overlapAdd accumulates windowed frames and their squared-window
// normalisation.
type overlapAdd struct {
	out  []float64
	norm []float64
}

func newOverlapAdd(n int) *overlapAdd {
	return &overlapAdd{out: make([]float64, n), norm: make([]float64, n)}
}

func (o *overlapAdd) add(i int, v, w2 float64) {
	o.out[i] += v
	o.norm[i] += w2
}

func (o *overlapAdd) normalized() []float64 {
	for i := range o.out {
		if o.norm[i] > normFloor {
			o.out[i] /= o.norm[i]
		}
	}
	return o.out
}

func polar(mag, phase float64) complex128 {
	return complex(mag*math.Cos(phase), mag*math.Sin(phase))
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

func isPowerOf2(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
