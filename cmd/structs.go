package cmd

import (
	"fmt"
	"time"

	"nifri2/strip-control/internal/animation"
	"nifri2/strip-control/internal/wifi"
)

// Role selects what a board runs. A controller drives the strip and the
// radio; a bench board has no radio and only plays animations.
type Role int

const (
	Controller Role = 0x00 + iota
	Bench
)

func (r Role) String() string {
	switch r {
	case Controller:
		return "controller"
	case Bench:
		return "bench"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Duration wraps time.Duration so settings can say "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings is the static device configuration, read once at boot.
type Settings struct {
	Role        Role             `toml:"role"`
	LogLevel    string           `toml:"log_level"`
	AccessPoint wifi.AccessPoint `toml:"access_point"`
	WiFi        WiFiSettings     `toml:"wifi"`
	Animation   animation.Config `toml:"animation"`
	Strip       StripSettings    `toml:"strip"`
	Console     ConsoleSettings  `toml:"console"`
}

type WiFiSettings struct {
	ConnectTimeout    Duration `toml:"connect_timeout"`
	SettleDelay       Duration `toml:"settle_delay"`
	ReplyTimeout      Duration `toml:"reply_timeout"`
	ReconnectDelay    Duration `toml:"reconnect_delay"`
	ReconnectMaxDelay Duration `toml:"reconnect_max_delay"`
	ReconnectRetries  int      `toml:"reconnect_retries"`
}

type StripSettings struct {
	Order string `toml:"order"`
	// BootProgram starts a built-in rainbow so the strip shows life before
	// any client connects.
	BootProgram bool `toml:"boot_program"`
}

type ConsoleSettings struct {
	Enabled bool `toml:"enabled"`
}
