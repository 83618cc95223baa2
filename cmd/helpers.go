package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BurntSushi/toml"

	"nifri2/strip-control/internal/animation"
	"nifri2/strip-control/internal/ledstrip"
	"nifri2/strip-control/internal/sequence"
	"nifri2/strip-control/internal/wifi"
)

// ErrNoRadio is returned by every connection command on a bench board.
var ErrNoRadio = errors.New("this board has no radio")

func DefaultSettings() Settings {
	wo := wifi.DefaultOptions()
	rc := wifi.DefaultReconnectConfig()
	return Settings{
		Role:        Controller,
		LogLevel:    "info",
		AccessPoint: wo.AccessPoint,
		WiFi: WiFiSettings{
			ConnectTimeout:    Duration{wo.ConnectTimeout},
			SettleDelay:       Duration{wo.SettleDelay},
			ReplyTimeout:      Duration{wo.ReplyTimeout},
			ReconnectDelay:    Duration{rc.Delay},
			ReconnectMaxDelay: Duration{rc.MaxDelay},
			ReconnectRetries:  rc.MaxRetries,
		},
		Animation: animation.DefaultConfig(),
		Strip:     StripSettings{Order: ledstrip.GRB.String(), BootProgram: true},
		Console:   ConsoleSettings{Enabled: true},
	}
}

// LoadSettings overlays a TOML document on DefaultSettings. Keys the
// settings do not know about are an error, so a typo cannot silently fall
// back to a default.
func LoadSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("settings: unknown keys %v", undecoded)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

func (s Settings) Validate() error {
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	if _, err := ledstrip.ParseOrder(s.Strip.Order); err != nil {
		return err
	}
	if err := s.Animation.Validate(); err != nil {
		return err
	}

	ap := s.AccessPoint
	switch {
	case ap.SSID == "" || len(ap.SSID) > wifi.MaxSSIDLen:
		return fmt.Errorf("access_point.ssid must be 1-%d bytes", wifi.MaxSSIDLen)
	case ap.Pass != "" && (len(ap.Pass) < 8 || len(ap.Pass) > wifi.MaxPassLen):
		return fmt.Errorf("access_point.pass must be empty or 8-%d bytes", wifi.MaxPassLen)
	case ap.Channel < 1 || ap.Channel > 14:
		return fmt.Errorf("access_point.channel %d out of range 1-14", ap.Channel)
	}

	w := s.WiFi
	switch {
	case w.ConnectTimeout.Duration <= 0, w.ReplyTimeout.Duration <= 0, w.ReconnectDelay.Duration <= 0:
		return errors.New("wifi timeouts must be positive")
	case w.SettleDelay.Duration < 0:
		return errors.New("wifi.settle_delay must not be negative")
	case w.ReconnectMaxDelay.Duration < w.ReconnectDelay.Duration:
		return errors.New("wifi.reconnect_max_delay is shorter than wifi.reconnect_delay")
	case w.ReconnectRetries < 0:
		return errors.New("wifi.reconnect_retries must not be negative")
	}
	return nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// NewLogger returns a text logger at the configured level. Settings are
// validated before this is called, so a bad level falls back to info.
func NewLogger(w io.Writer, s Settings) *slog.Logger {
	level, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (s Settings) ManagerOptions(logger *slog.Logger) wifi.Options {
	return wifi.Options{
		AccessPoint:    s.AccessPoint,
		ConnectTimeout: s.WiFi.ConnectTimeout.Duration,
		SettleDelay:    s.WiFi.SettleDelay.Duration,
		ReplyTimeout:   s.WiFi.ReplyTimeout.Duration,
		Logger:         logger,
	}
}

func (s Settings) ReconnectConfig() wifi.ReconnectConfig {
	return wifi.ReconnectConfig{
		Delay:      s.WiFi.ReconnectDelay.Duration,
		MaxDelay:   s.WiFi.ReconnectMaxDelay.Duration,
		MaxRetries: s.WiFi.ReconnectRetries,
	}
}

// CoordinatorOptions resets config fields to the values from the settings
// file, not to the compiled-in defaults.
func (s Settings) CoordinatorOptions(logger *slog.Logger) animation.Options {
	return animation.Options{
		Defaults: s.Animation,
		Logger:   logger,
	}
}

const (
	bootFrames    = 64
	bootMaxPixels = 32
)

// BootProgram renders a looping rainbow in the sequence format. The
// pattern is at most bootMaxPixels wide; longer strips repeat it.
func BootProgram(pixels int) ([]byte, error) {
	width := min(max(pixels, 1), bootMaxPixels)
	frames := make([]animation.Frame, bootFrames)
	for f := range frames {
		frame := make(animation.Frame, width)
		for i := range frame {
			frame[i] = wheel(uint8(i*256/width + f*256/bootFrames))
		}
		frames[f] = frame
	}
	return sequence.Encode(frames, true, false)
}

func loadBootProgram(ctx context.Context, anim *animation.Client, pixels int, logger *slog.Logger) {
	data, err := BootProgram(pixels)
	if err != nil {
		logger.Warn("anim: could not build boot program", "error", err)
		return
	}
	info, err := anim.LoadProgram(ctx, data)
	if err != nil {
		logger.Warn("anim: could not load boot program", "error", err)
		return
	}
	logger.Info("anim: boot program running", "program_id", info.ID)
}

// wheel maps 0-255 onto a red, green, blue color circle.
func wheel(pos uint8) animation.Pixel {
	switch {
	case pos < 85:
		return animation.Pixel{R: 255 - pos*3, G: pos * 3}
	case pos < 170:
		pos -= 85
		return animation.Pixel{G: 255 - pos*3, B: pos * 3}
	default:
		pos -= 170
		return animation.Pixel{R: pos * 3, B: 255 - pos*3}
	}
}

// offlineWiFi stands in for the connection manager on bench boards.
type offlineWiFi struct{}

func (offlineWiFi) Scan(context.Context) ([]wifi.NetworkInfo, error) { return nil, ErrNoRadio }

func (offlineWiFi) TryConnect(context.Context, wifi.ConnectRequest) error { return ErrNoRadio }

func (offlineWiFi) Disconnect(context.Context) error { return ErrNoRadio }

func (offlineWiFi) Status(context.Context) (wifi.Status, error) { return wifi.Status{}, ErrNoRadio }

func (offlineWiFi) StoreCurrentCredentials(context.Context) error { return ErrNoRadio }

func (offlineWiFi) EraseCredentials(context.Context) error { return ErrNoRadio }

func ParseRole(r string) (Role, error) {
	switch r {
	case "controller", "":
		return Controller, nil
	case "bench":
		return Bench, nil
	default:
		return 0, fmt.Errorf("unknown role %q", r)
	}
}
