// Package ledstrip turns animation frames into the colors a WS2812 or
// SK6812 strip driver sends.
package ledstrip

import (
	"fmt"
	"image/color"
	"time"

	"nifri2/strip-control/internal/animation"
)

// Order is the wire color order of the strip.
type Order int

const (
	GRB Order = iota
	GRBW
)

func (o Order) String() string {
	switch o {
	case GRB:
		return "grb"
	case GRBW:
		return "grbw"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

func ParseOrder(s string) (Order, error) {
	switch s {
	case "grb", "":
		return GRB, nil
	case "grbw":
		return GRBW, nil
	default:
		return 0, fmt.Errorf("unknown color order %q", s)
	}
}

// ResetDelay is how long the data line must stay low before the strip
// latches a frame.
const ResetDelay = 300 * time.Microsecond

// ColorWriter sends colors down the data line in the strip's wire order.
// ws2812.Device implements it; for GRBW strips the alpha channel carries
// the white LED.
type ColorWriter interface {
	WriteColors([]color.RGBA) error
}

// Strip converts frames and writes them to w. It implements
// animation.PixelWriter.
type Strip struct {
	w     ColorWriter
	order Order
	latch time.Duration
	buf   []color.RGBA
}

func New(w ColorWriter, order Order, latch time.Duration) *Strip {
	return &Strip{w: w, order: order, latch: latch}
}

func (s *Strip) Write(f animation.Frame) error {
	buf := s.buf[:0]
	for _, p := range f {
		c := color.RGBA{R: p.R, G: p.G, B: p.B}
		if s.order == GRBW {
			c.A = p.W
		}
		buf = append(buf, c)
	}
	s.buf = buf

	if err := s.w.WriteColors(buf); err != nil {
		return fmt.Errorf("ledstrip: %w", err)
	}
	if s.latch > 0 {
		time.Sleep(s.latch)
	}
	return nil
}
