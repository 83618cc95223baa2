//go:build tinygo

package ledstrip

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// NewWS2812 configures pin and returns a strip driving it. GRBW strips use
// the SK6812 timing, which sends a fourth byte per pixel.
func NewWS2812(pin machine.Pin, order Order) *Strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dev := ws2812.NewWS2812(pin)
	if order == GRBW {
		dev = ws2812.NewSK6812(pin)
	}
	return New(dev, order, ResetDelay)
}
