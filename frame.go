package rftrx

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// manchesterBits is the width a protocol 6 code is rendered in before each
// bit is doubled into a 64 bit frame.
const manchesterBits = 32

// EncodeBits renders code MSB first, zero padded to bitLength. Protocol 6
// renders 32 bits and replaces every 0 with "01" and every 1 with "10".
func EncodeBits(code uint64, protocol, bitLength int) (string, error) {
	if _, err := LookupProtocol(protocol); err != nil {
		return "", err
	}
	width := bitLength
	if protocol == Manchester {
		width = manchesterBits
	}
	if width < 1 || width > 64 {
		return "", fmt.Errorf("%w: bit length %d outside 1..64", ErrInvalidConfig, width)
	}
	if width < 64 && code>>uint(width) != 0 {
		return "", fmt.Errorf("%w: %d needs more than %d bits", ErrCodeTooWide, code, width)
	}

	raw := strconv.FormatUint(code, 2)
	raw = strings.Repeat("0", width-len(raw)) + raw
	if protocol != Manchester {
		return raw, nil
	}

	var sb strings.Builder
	sb.Grow(2 * width)
	for _, b := range raw {
		if b == '0' {
			sb.WriteString("01")
		} else {
			sb.WriteString("10")
		}
	}
	return sb.String(), nil
}

// waveform lays out a whole transmission of pattern: repeat frames, each
// closed by a sync, protocol 6 frames also opened by one.
func waveform(protocol int, p Protocol, pulse time.Duration, pattern string, repeat int) ([]TimePair, error) {
	perFrame := len(pattern) + 1
	if protocol == Manchester {
		perFrame++
	}
	out := make([]TimePair, 0, perFrame*repeat)
	sync, zero, one := p.Sync(pulse), p.Zero(pulse), p.One(pulse)
	for r := 0; r < repeat; r++ {
		if protocol == Manchester {
			out = append(out, sync)
		}
		for i := 0; i < len(pattern); i++ {
			switch pattern[i] {
			case '0':
				out = append(out, zero)
			case '1':
				out = append(out, one)
			default:
				return nil, fmt.Errorf("%w: %q at %d", ErrInvalidPattern, pattern[i], i)
			}
		}
		out = append(out, sync)
	}
	return out, nil
}

// Code is a single frame as it goes over the air. It implements
// FrameMarshaller so frames can be inspected or replayed without a Device.
type Code struct {
	Value     uint64
	Protocol  int
	BitLength int
	// PulseLength overrides the protocol pulse length when non-zero.
	PulseLength time.Duration
}

// MarshalFrame returns one repetition of the frame, or nil if the code
// cannot be encoded.
func (c Code) MarshalFrame() []TimePair {
	p, err := LookupProtocol(c.Protocol)
	if err != nil {
		return nil
	}
	pattern, err := EncodeBits(c.Value, c.Protocol, c.BitLength)
	if err != nil {
		return nil
	}
	pulse := c.PulseLength
	if pulse <= 0 {
		pulse = p.PulseLength
	}
	pairs, err := waveform(c.Protocol, p, pulse, pattern, 1)
	if err != nil {
		return nil
	}
	return pairs
}
