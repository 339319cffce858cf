package audioio

import (
	"fmt"
	"strings"
)

// ChannelMode selects how stereo frames are reduced to mono.
type ChannelMode int

const (
	// ChannelMix averages left and right.
	ChannelMix ChannelMode = iota
	// ChannelLeft keeps the left channel.
	ChannelLeft
	// ChannelRight keeps the right channel.
	ChannelRight
)

func (m ChannelMode) String() string {
	switch m {
	case ChannelMix:
		return "mix"
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

// ParseChannelMode resolves "mix", "left" or "right"; empty means mix.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mix", "mono":
		return ChannelMix, nil
	case "left", "l":
		return ChannelLeft, nil
	case "right", "r":
		return ChannelRight, nil
	default:
		return 0, fmt.Errorf("audioio: unknown channel mode %q", s)
	}
}

func (m ChannelMode) valid() bool {
	return m >= ChannelMix && m <= ChannelRight
}

func (m ChannelMode) mono(frame [2]float64) float64 {
	switch m {
	case ChannelLeft:
		return frame[0]
	case ChannelRight:
		return frame[1]
	default:
		return 0.5 * (frame[0] + frame[1])
	}
}
