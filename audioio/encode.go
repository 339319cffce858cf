package audioio

import (
	"errors"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/dsp/core"
)

// WAVContentType is the content type written by EncodeWAV.
const WAVContentType = "audio/wav"

// EncodeWAV writes buf as 16-bit PCM mono WAV. Samples are clipped to
// [-1, 1].
func EncodeWAV(w io.Writer, buf buffer.Buffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("audioio: cannot encode: %w", err)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.SampleRate()),
		NumChannels: 1,
		Precision:   2,
	}

	if ws, ok := w.(io.WriteSeeker); ok {
		if err := wav.Encode(ws, monoStreamer(buf), format); err != nil {
			return fmt.Errorf("audioio: wav encode: %w", err)
		}
		return nil
	}

	var mem memFile
	if err := wav.Encode(&mem, monoStreamer(buf), format); err != nil {
		return fmt.Errorf("audioio: wav encode: %w", err)
	}
	_, err := w.Write(mem.data)
	return err
}

// EncodeWAVBytes returns buf encoded as WAV.
func EncodeWAVBytes(buf buffer.Buffer) ([]byte, error) {
	var mem memFile
	if err := EncodeWAV(&mem, buf); err != nil {
		return nil, err
	}
	return mem.data, nil
}

func monoStreamer(buf buffer.Buffer) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(frames [][2]float64) (int, bool) {
		if pos >= buf.Len() {
			return 0, false
		}
		n := min(len(frames), buf.Len()-pos)
		for i := range n {
			v := core.Clamp(buf.At(pos+i), -1, 1)
			frames[i] = [2]float64{v, v}
		}
		pos += n
		return n, true
	})
}

// memFile is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		if end > cap(m.data) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	n := copy(m.data[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("audioio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("audioio: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
