package animation

import (
	"errors"
	"fmt"
	"time"
)

// Supported ranges. The smallest frame interval (MaxFPS) must stay well
// above the coordinator's idle sleep.
const (
	MaxLEDQuantity = 1024
	MaxFPS         = 120
)

var ErrInvalidConfig = errors.New("invalid animation config")

// Config is the complete playback configuration. The coordinator always
// holds a valid one.
type Config struct {
	LEDQuantity int   `json:"led_quantity" toml:"led_quantity"`
	TargetFPS   int   `json:"target_fps" toml:"target_fps"`
	Brightness  uint8 `json:"brightness" toml:"brightness"`
	// White drives the auxiliary channel of RGBW strips.
	White uint8 `json:"white" toml:"white"`
}

func DefaultConfig() Config {
	return Config{
		LEDQuantity: 60,
		TargetFPS:   60,
		Brightness:  255,
		White:       0,
	}
}

func (c Config) Validate() error {
	if err := validLEDQuantity(c.LEDQuantity); err != nil {
		return err
	}
	if err := validFPS(c.TargetFPS); err != nil {
		return err
	}
	return validBrightness(c.Brightness)
}

// FrameInterval is the time between two frames at TargetFPS.
func (c Config) FrameInterval() time.Duration {
	if c.TargetFPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.TargetFPS)
}

func validLEDQuantity(n int) error {
	if n < 1 || n > MaxLEDQuantity {
		return fmt.Errorf("%w: led_quantity %d out of range 1-%d", ErrInvalidConfig, n, MaxLEDQuantity)
	}
	return nil
}

func validFPS(n int) error {
	if n < 1 || n > MaxFPS {
		return fmt.Errorf("%w: target_fps %d out of range 1-%d", ErrInvalidConfig, n, MaxFPS)
	}
	return nil
}

func validBrightness(b uint8) error {
	if b == 0 {
		return fmt.Errorf("%w: brightness must be 1-255", ErrInvalidConfig)
	}
	return nil
}
