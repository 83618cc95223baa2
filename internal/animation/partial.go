package animation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownField = errors.New("unknown config field")

// Field is one optional member of a PartialConfig. It tells apart three
// cases: absent (keep the current value), null (reset to the default) and
// a value.
type Field[T any] struct {
	present bool
	reset   bool
	value   T
}

// Set returns a field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// Reset returns a field asking for the default value.
func Reset[T any]() Field[T] {
	return Field[T]{present: true, reset: true}
}

func (f Field[T]) Present() bool { return f.present }

func (f Field[T]) resolve(current, def T) T {
	switch {
	case !f.present:
		return current
	case f.reset:
		return def
	default:
		return f.value
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.reset = true
		return nil
	}
	f.reset = false
	return json.Unmarshal(data, &f.value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.reset {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// PartialConfig is a client-submitted delta over Config.
type PartialConfig struct {
	LEDQuantity Field[int]   `json:"led_quantity"`
	TargetFPS   Field[int]   `json:"target_fps"`
	Brightness  Field[uint8] `json:"brightness"`
	White       Field[uint8] `json:"white"`
}

// ParsePartialConfig decodes a JSON object, rejecting unknown fields and
// trailing data.
func ParsePartialConfig(data []byte) (PartialConfig, error) {
	var p PartialConfig

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return PartialConfig{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		return PartialConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if dec.More() {
		return PartialConfig{}, fmt.Errorf("%w: trailing data after object", ErrInvalidConfig)
	}
	if err := p.Validate(); err != nil {
		return PartialConfig{}, err
	}
	return p, nil
}

// Validate checks every present value on its own. Defaults are valid, so
// overlaying a validated delta on a valid Config yields a valid Config.
func (p PartialConfig) Validate() error {
	if p.LEDQuantity.present && !p.LEDQuantity.reset {
		if err := validLEDQuantity(p.LEDQuantity.value); err != nil {
			return err
		}
	}
	if p.TargetFPS.present && !p.TargetFPS.reset {
		if err := validFPS(p.TargetFPS.value); err != nil {
			return err
		}
	}
	if p.Brightness.present && !p.Brightness.reset {
		if err := validBrightness(p.Brightness.value); err != nil {
			return err
		}
	}
	return nil
}

// Overlay applies the delta field by field. A reset field takes its value
// from def, the configuration the device booted with.
func (p PartialConfig) Overlay(base, def Config) Config {
	return Config{
		LEDQuantity: p.LEDQuantity.resolve(base.LEDQuantity, def.LEDQuantity),
		TargetFPS:   p.TargetFPS.resolve(base.TargetFPS, def.TargetFPS),
		Brightness:  p.Brightness.resolve(base.Brightness, def.Brightness),
		White:       p.White.resolve(base.White, def.White),
	}
}
