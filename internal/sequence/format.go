// Package sequence is a frame-sequence interpreter: a program is a list of
// pre-rendered frames played back one per step.
package sequence

import (
	"encoding/binary"
	"errors"
	"fmt"

	"nifri2/strip-control/internal/animation"
)

// Layout: "SEQ1", u16 pixels per frame, u16 frame count, u8 flags,
// u8 bytes per pixel, then the frames. Integers are little endian.
const (
	magic      = "SEQ1"
	headerSize = 10

	FlagLoop = 1 << 0
)

var ErrFormat = errors.New("bad sequence program")

// Sequence is a decoded program.
type Sequence struct {
	Pixels int
	Loop   bool
	Frames []animation.Frame
}

// Decode parses a program, checking that the payload length matches the
// header exactly.
func Decode(data []byte) (*Sequence, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: data too short", ErrFormat)
	}
	if string(data[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, data[:4])
	}

	pixels := int(binary.LittleEndian.Uint16(data[4:6]))
	frameCount := int(binary.LittleEndian.Uint16(data[6:8]))
	flags := data[8]
	bpp := int(data[9])

	if pixels == 0 || pixels > animation.MaxLEDQuantity {
		return nil, fmt.Errorf("%w: %d pixels per frame", ErrFormat, pixels)
	}
	if frameCount == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrFormat)
	}
	if bpp != 3 && bpp != 4 {
		return nil, fmt.Errorf("%w: %d bytes per pixel", ErrFormat, bpp)
	}

	bytesPerFrame := pixels * bpp
	expectedSize := headerSize + frameCount*bytesPerFrame
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrFormat, expectedSize, len(data))
	}

	seq := &Sequence{
		Pixels: pixels,
		Loop:   flags&FlagLoop != 0,
		Frames: make([]animation.Frame, frameCount),
	}
	for i := 0; i < frameCount; i++ {
		raw := data[headerSize+i*bytesPerFrame:][:bytesPerFrame]
		frame := make(animation.Frame, pixels)
		for p := range frame {
			px := raw[p*bpp:]
			frame[p] = animation.Pixel{R: px[0], G: px[1], B: px[2]}
			if bpp == 4 {
				frame[p].W = px[3]
			}
		}
		seq.Frames[i] = frame
	}
	return seq, nil
}

// Encode renders frames in the sequence format. All frames must have the
// same length. White values are kept only when rgbw is set.
func Encode(frames []animation.Frame, loop, rgbw bool) ([]byte, error) {
	if len(frames) == 0 || len(frames) > 0xFFFF {
		return nil, fmt.Errorf("%w: %d frames", ErrFormat, len(frames))
	}
	pixels := len(frames[0])
	if pixels == 0 || pixels > animation.MaxLEDQuantity {
		return nil, fmt.Errorf("%w: %d pixels per frame", ErrFormat, pixels)
	}
	bpp := 3
	if rgbw {
		bpp = 4
	}

	out := make([]byte, headerSize, headerSize+len(frames)*pixels*bpp)
	copy(out, magic)
	binary.LittleEndian.PutUint16(out[4:], uint16(pixels))
	binary.LittleEndian.PutUint16(out[6:], uint16(len(frames)))
	if loop {
		out[8] = FlagLoop
	}
	out[9] = byte(bpp)

	for i, f := range frames {
		if len(f) != pixels {
			return nil, fmt.Errorf("%w: frame %d has %d pixels, want %d", ErrFormat, i, len(f), pixels)
		}
		for _, p := range f {
			out = append(out, p.R, p.G, p.B)
			if rgbw {
				out = append(out, p.W)
			}
		}
	}
	return out, nil
}
