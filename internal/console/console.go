// Package console is the serial debug console. Each input line is one
// command; each command produces exactly one JSON reply line.
package console

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"nifri2/strip-control/internal/animation"
	"nifri2/strip-control/internal/wifi"
)

var ErrUsage = errors.New("usage")

// WiFi is the connection side of the control surface.
type WiFi interface {
	Scan(ctx context.Context) ([]wifi.NetworkInfo, error)
	TryConnect(ctx context.Context, req wifi.ConnectRequest) error
	Disconnect(ctx context.Context) error
	Status(ctx context.Context) (wifi.Status, error)
	StoreCurrentCredentials(ctx context.Context) error
	EraseCredentials(ctx context.Context) error
}

// Animation is the playback side of the control surface.
type Animation interface {
	UpdateConfigJSON(ctx context.Context, data []byte) (animation.Config, error)
	LoadProgram(ctx context.Context, data []byte) (animation.ProgramInfo, error)
	SetAuxChannel(ctx context.Context, value uint8) (animation.Config, error)
	State(ctx context.Context) (animation.PlaybackStatus, error)
}

// Reply is written as one JSON line per command.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func ok(data any) Reply { return Reply{OK: true, Data: data} }

func fail(err error) Reply { return Reply{Error: err.Error()} }

// WriteTo encodes r followed by a newline.
func (r Reply) WriteTo(w io.Writer) (int64, error) {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(fail(fmt.Errorf("encode reply: %w", err)))
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

type Console struct {
	wifi WiFi
	anim Animation
	log  *slog.Logger
}

func New(w WiFi, a Animation, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{wifi: w, anim: a, log: logger}
}

const help = "scan | connect [-store] [-channel N] <ssid> [pass] | disconnect | status | store | erase | " +
	"config <json> | program <hex> | white <0-255> | anim | help"

// Exec runs one command line. Empty lines yield an empty reply with
// ok=false and no error, which callers may skip.
func (c *Console) Exec(ctx context.Context, line string) Reply {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if name == "" {
		return Reply{}
	}
	c.log.Debug("console: command", "name", name)

	// config takes its argument verbatim; JSON does not survive shell
	// style splitting.
	if name == "config" {
		if rest == "" {
			return fail(fmt.Errorf("%w: config <json>", ErrUsage))
		}
		cfg, err := c.anim.UpdateConfigJSON(ctx, []byte(rest))
		if err != nil {
			return fail(err)
		}
		return ok(cfg)
	}

	args, err := shlex.Split(rest)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrUsage, err))
	}

	switch name {
	case "help":
		return ok(help)
	case "scan":
		nets, err := c.wifi.Scan(ctx)
		if err != nil {
			return fail(err)
		}
		return ok(nets)
	case "connect":
		return c.connect(ctx, args)
	case "disconnect":
		return errReply(c.wifi.Disconnect(ctx))
	case "status":
		st, err := c.wifi.Status(ctx)
		if err != nil {
			return fail(err)
		}
		return ok(st)
	case "store":
		return errReply(c.wifi.StoreCurrentCredentials(ctx))
	case "erase":
		return errReply(c.wifi.EraseCredentials(ctx))
	case "program":
		if len(args) != 1 {
			return fail(fmt.Errorf("%w: program <hex>", ErrUsage))
		}
		data, err := hex.DecodeString(args[0])
		if err != nil {
			return fail(fmt.Errorf("%w: program: %w", ErrUsage, err))
		}
		info, err := c.anim.LoadProgram(ctx, data)
		if err != nil {
			return fail(err)
		}
		return ok(info)
	case "white":
		if len(args) != 1 {
			return fail(fmt.Errorf("%w: white <0-255>", ErrUsage))
		}
		v, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fail(fmt.Errorf("%w: white: %w", ErrUsage, err))
		}
		cfg, err := c.anim.SetAuxChannel(ctx, uint8(v))
		if err != nil {
			return fail(err)
		}
		return ok(cfg)
	case "anim":
		st, err := c.anim.State(ctx)
		if err != nil {
			return fail(err)
		}
		return ok(st)
	default:
		return fail(fmt.Errorf("%w: unknown command %q", ErrUsage, name))
	}
}

func (c *Console) connect(ctx context.Context, args []string) Reply {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	store := fs.Bool("store", false, "store credentials on success")
	channel := fs.Uint("channel", 0, "channel hint")
	if err := fs.Parse(args); err != nil {
		return fail(fmt.Errorf("%w: connect: %w", ErrUsage, err))
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fail(fmt.Errorf("%w: connect [-store] [-channel N] <ssid> [pass]", ErrUsage))
	}

	req := wifi.ConnectRequest{
		Credentials:    wifi.Credentials{SSID: fs.Arg(0), Pass: fs.Arg(1)},
		StoreOnSuccess: *store,
	}
	var channelSet bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "channel" {
			channelSet = true
		}
	})
	if channelSet {
		if *channel > 255 {
			return fail(fmt.Errorf("%w: channel %d out of range 1-14", wifi.ErrInvalidCredentials, *channel))
		}
		ch := uint8(*channel)
		req.Credentials.Channel = &ch
	}

	if err := c.wifi.TryConnect(ctx, req); err != nil {
		c.log.Info("console: connect failed", "ssid", req.Credentials.SSID, "error", err)
		return fail(err)
	}
	st, err := c.wifi.Status(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(st)
}

func errReply(err error) Reply {
	if err != nil {
		return fail(err)
	}
	return ok(nil)
}
