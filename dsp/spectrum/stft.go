package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/dsp/window"
)

// Scale selects what an STFT frame callback receives per bin.
type Scale int

const (
	// ScaleMagnitude yields |X[k]|.
	ScaleMagnitude Scale = iota
	// ScalePower yields |X[k]|^2.
	ScalePower
)

// STFTOption configures an STFT.
type STFTOption func(*stftConfig)

type stftConfig struct {
	windowType window.Type
	zeroPad    int
	scale      Scale
}

// WithWindow selects the analysis window. Default is periodic Hann.
func WithWindow(t window.Type) STFTOption {
	return func(c *stftConfig) { c.windowType = t }
}

// WithZeroPad sets the FFT length to factor times the frame size. factor
// must be a power of two; default 1.
func WithZeroPad(factor int) STFTOption {
	return func(c *stftConfig) { c.zeroPad = factor }
}

// WithScale selects magnitude or power bins. Default magnitude.
func WithScale(s Scale) STFTOption {
	return func(c *stftConfig) { c.scale = s }
}

// STFT frames a signal with a fixed frame size and hop and hands each
// frame's one-sided spectrum to a callback. Frames are centred: frame t
// covers samples [t*hop - frameSize/2, t*hop + frameSize/2), zero padded
// outside the signal.
//
// An STFT owns FFT scratch state and is not safe for concurrent use.
type STFT struct {
	frameSize int
	hop       int
	fftSize   int
	scale     Scale

	plan   *algofft.Plan[complex128]
	coeffs []float64
	pool   *buffer.Pool

	spec []complex128
	bins []float64
}

// NewSTFT builds an STFT. frameSize must be a power of two and hop must
// lie in [1, frameSize].
func NewSTFT(frameSize, hop int, opts ...STFTOption) (*STFT, error) {
	cfg := stftConfig{windowType: window.TypeHann, zeroPad: 1, scale: ScaleMagnitude}
	for _, o := range opts {
		o(&cfg)
	}
	if frameSize < 4 || !isPowerOf2(frameSize) {
		return nil, fmt.Errorf("spectrum: frame size must be a power of two >= 4: %d", frameSize)
	}
	if hop <= 0 || hop > frameSize {
		return nil, fmt.Errorf("spectrum: hop must be in [1, %d]: %d", frameSize, hop)
	}
	if cfg.zeroPad < 1 || !isPowerOf2(cfg.zeroPad) {
		return nil, fmt.Errorf("spectrum: zero-pad factor must be a power of two >= 1: %d", cfg.zeroPad)
	}

	fftSize := frameSize * cfg.zeroPad
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	coeffs := window.Generate(cfg.windowType, frameSize, window.WithPeriodic())
	if len(coeffs) != frameSize {
		return nil, fmt.Errorf("spectrum: window generation failed for size %d", frameSize)
	}

	return &STFT{
		frameSize: frameSize,
		hop:       hop,
		fftSize:   fftSize,
		scale:     cfg.scale,
		plan:      plan,
		coeffs:    coeffs,
		pool:      buffer.NewPool(),
		spec:      make([]complex128, fftSize),
		bins:      make([]float64, fftSize/2+1),
	}, nil
}

// FrameSize returns the analysis frame length in samples.
func (s *STFT) FrameSize() int { return s.frameSize }

// Hop returns the hop size in samples.
func (s *STFT) Hop() int { return s.hop }

// FFTSize returns the transform length including zero padding.
func (s *STFT) FFTSize() int { return s.fftSize }

// Bins returns the number of one-sided bins per frame.
func (s *STFT) Bins() int { return s.fftSize/2 + 1 }

// BinHz returns the centre frequency of bin k.
func (s *STFT) BinHz(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(s.fftSize)
}

// Frames returns the number of frames produced for a signal of n samples.
func (s *STFT) Frames(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 + n/s.hop
}

// Each calls fn for every frame of signal with the one-sided bins. The
// bins slice is reused between calls; fn must copy what it keeps. A
// non-nil error from fn stops the walk and is returned.
func (s *STFT) Each(signal []float64, fn func(frame int, bins []float64) error) error {
	frames := s.Frames(len(signal))
	scratch := s.pool.Get(s.frameSize)
	defer s.pool.Put(scratch)

	half := s.frameSize / 2
	for t := range frames {
		scratch.Load(signal, t*s.hop-half)

		if err := window.ApplyInto(scratch.Samples(), scratch.Samples(), s.coeffs); err != nil {
			return fmt.Errorf("spectrum: %w", err)
		}
		clear(s.spec)
		for i, v := range scratch.Samples() {
			s.spec[i] = complex(v, 0)
		}
		if err := s.plan.Forward(s.spec, s.spec); err != nil {
			return fmt.Errorf("spectrum: forward FFT failed: %w", err)
		}

		if s.scale == ScalePower {
			PowerInto(s.bins, s.spec)
		} else {
			MagnitudeInto(s.bins, s.spec)
		}

		if err := fn(t, s.bins); err != nil {
			return err
		}
	}
	return nil
}

// Spectrogram returns a copy of every frame's bins, indexed [frame][bin].
func (s *STFT) Spectrogram(signal []float64) ([][]float64, error) {
	out := make([][]float64, 0, s.Frames(len(signal)))
	err := s.Each(signal, func(_ int, bins []float64) error {
		row := make([]float64, len(bins))
		copy(row, bins)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isPowerOf2(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}
