package audioio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/gabriel-vasile/mimetype"

	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/keytune"
)

const streamChunk = 16384

// Info describes a decoded file.
type Info struct {
	ContentType string        `json:"content_type"`
	SampleRate  int           `json:"sample_rate"`
	Channels    int           `json:"channels"`
	Precision   int           `json:"precision"`
	Frames      int           `json:"frames"`
	Duration    time.Duration `json:"duration"`
}

type decoder struct {
	contentType string
	decode      func(data []byte) (beep.StreamSeekCloser, beep.Format, error)
	// gain corrects the full-scale level of the decoded samples; nil means 1.
	gain func(beep.Format) float64
}

var decoders = []decoder{
	{"audio/wav", func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(bytes.NewReader(data))
	}, wavGain},
	{"audio/mpeg", func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	}, nil},
	{"audio/flac", func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(bytes.NewReader(data))
	}, nil},
	{"audio/ogg", func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	}, nil},
}

// wavGain undoes the beep wav decoder scaling signed PCM by 2^bits-1
// instead of 2^(bits-1), which halves 16- and 24-bit files. 8-bit PCM is
// already full scale.
func wavGain(f beep.Format) float64 {
	switch f.Precision {
	case 2:
		return (1<<16 - 1) / float64(1<<15)
	case 3:
		return (1<<24 - 1) / float64(1<<23)
	default:
		return 1
	}
}

// SupportedContentTypes lists the content types Decode accepts.
func SupportedContentTypes() []string {
	out := make([]string, len(decoders))
	for i, d := range decoders {
		out[i] = d.contentType
	}
	return out
}

// Detect returns the sniffed content type of data.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

// Decode decodes an audio file into a mono buffer. Failures are
// keytune.KindDecode errors; a file without samples is
// keytune.KindInvalidAudio.
func Decode(data []byte, mode ChannelMode) (buffer.Buffer, Info, error) {
	if !mode.valid() {
		return buffer.Buffer{}, Info{}, fmt.Errorf("audioio: unknown channel mode %d", int(mode))
	}
	if len(data) == 0 {
		return buffer.Buffer{}, Info{}, keytune.NewError(keytune.KindDecode, "empty file", nil)
	}

	mime := mimetype.Detect(data)
	var dec *decoder
	for i := range decoders {
		if mime.Is(decoders[i].contentType) {
			dec = &decoders[i]
			break
		}
	}
	if dec == nil {
		return buffer.Buffer{}, Info{}, keytune.NewError(keytune.KindDecode,
			fmt.Sprintf("unsupported content type %s", mime.String()), nil)
	}

	stream, format, err := dec.decode(data)
	if err != nil {
		return buffer.Buffer{}, Info{}, keytune.NewError(keytune.KindDecode,
			fmt.Sprintf("cannot decode %s", dec.contentType), err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stream.Close()

	samples, err := readMono(stream, mode)
	if err != nil {
		return buffer.Buffer{}, Info{}, keytune.NewError(keytune.KindDecode,
			fmt.Sprintf("cannot read %s samples", dec.contentType), err)
	}

	if dec.gain != nil {
		if g := dec.gain(format); g != 1 {
			for i := range samples {
				samples[i] *= g
			}
		}
	}

	rate := int(format.SampleRate)
	info := Info{
		ContentType: dec.contentType,
		SampleRate:  rate,
		Channels:    format.NumChannels,
		Precision:   format.Precision,
		Frames:      len(samples),
	}
	if rate > 0 {
		info.Duration = format.SampleRate.D(len(samples))
	}

	buf := buffer.Wrap(samples, rate)
	if err := buf.Validate(); err != nil {
		return buffer.Buffer{}, Info{}, keytune.NewError(keytune.KindInvalidAudio, "decoded audio is unusable", err)
	}
	return buf, info, nil
}

func readMono(stream beep.StreamSeekCloser, mode ChannelMode) ([]float64, error) {
	out := make([]float64, 0, max(stream.Len(), 0))
	frames := make([][2]float64, streamChunk)
	for {
		n, ok := stream.Stream(frames)
		for _, f := range frames[:n] {
			out = append(out, mode.mono(f))
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := stream.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
