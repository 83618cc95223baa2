// Package animation runs the LED playback loop: it paces frames, applies
// configuration changes and swaps programs, all on one goroutine that owns
// the interpreter instance and the pixel writer.
package animation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options tune the coordinator.
type Options struct {
	// Defaults is what a reset config field falls back to. Zero means the
	// initial config.
	Defaults Config
	// Yield is slept between loop iterations. It must stay below the
	// smallest frame interval.
	Yield        time.Duration
	ReplyTimeout time.Duration
	Logger       *slog.Logger
}

const defaultYield = time.Millisecond

// Coordinator is the playback worker. Exactly one of inst and run is set:
// inst while halted, run while running.
type Coordinator struct {
	engine Engine
	out    PixelWriter
	inbox  chan command
	log    *slog.Logger
	opts   Options

	cfg      Config
	defaults Config
	interval time.Duration

	inst    Instance
	run     Running
	program *ProgramInfo

	lastFrame time.Time
	scratch   Frame

	frames      uint64
	writeErrors uint64
	lastFault   string
}

func NewCoordinator(engine Engine, out PixelWriter, cfg Config, opts Options) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Defaults == (Config{}) {
		opts.Defaults = cfg
	} else if err := opts.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	if opts.Yield <= 0 {
		opts.Yield = defaultYield
	}
	if floor := time.Second / MaxFPS; opts.Yield >= floor {
		return nil, fmt.Errorf("yield %v must be shorter than the smallest frame interval %v", opts.Yield, floor)
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Coordinator{
		engine:   engine,
		out:      out,
		inbox:    make(chan command, 1),
		log:      opts.Logger,
		opts:     opts,
		cfg:      cfg,
		defaults: opts.Defaults,
		interval: cfg.FrameInterval(),
		inst:     engine.NewInstance(cfg.LEDQuantity),
	}, nil
}

// Client returns a handle for sending commands to this coordinator.
func (c *Coordinator) Client() *Client {
	return &Client{inbox: c.inbox, engine: c.engine, timeout: c.opts.ReplyTimeout}
}

// Run drives playback until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("anim: coordinator started",
		"led_quantity", c.cfg.LEDQuantity,
		"target_fps", c.cfg.TargetFPS,
	)
	c.lastFrame = time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case cmd, ok := <-c.inbox:
			if !ok {
				panic("anim: command inbox closed")
			}
			c.handle(cmd)
		default:
		}

		now := time.Now()
		if now.Sub(c.lastFrame) >= c.interval {
			// Keep the cadence, but never fall more than one interval behind.
			c.lastFrame = c.lastFrame.Add(c.interval)
			if now.Sub(c.lastFrame) >= c.interval {
				c.lastFrame = now
			}
			if c.run != nil {
				c.step()
			}
		}

		time.Sleep(c.opts.Yield)
	}
}

func (c *Coordinator) handle(cmd command) {
	switch cmd := cmd.(type) {
	case updateConfigCmd:
		next := cmd.partial.Overlay(c.cfg, c.defaults)
		if next.LEDQuantity != c.cfg.LEDQuantity {
			c.resize(next.LEDQuantity)
		}
		c.cfg = next
		c.interval = next.FrameInterval()
		c.log.Info("anim: config updated",
			"led_quantity", next.LEDQuantity,
			"target_fps", next.TargetFPS,
			"brightness", next.Brightness,
			"white", next.White,
		)
		cmd.reply <- next

	case loadProgramCmd:
		if c.run != nil {
			inst, _ := c.run.Stop()
			c.run = inst.Start(cmd.program)
		} else {
			c.run = c.inst.Start(cmd.program)
			c.inst = nil
		}
		info := cmd.info
		c.program = &info
		c.lastFault = ""
		c.log.Info("anim: program loaded", "program_id", info.ID, "size", info.Size)
		cmd.reply <- info

	case setAuxCmd:
		c.cfg.White = cmd.value
		cmd.reply <- c.cfg

	case stateCmd:
		cmd.reply <- c.status()

	default:
		panic(fmt.Sprintf("anim: unknown command %T", cmd))
	}
}

// resize changes the pixel count. A running program is stopped around the
// change so no frame is produced with the old length.
func (c *Coordinator) resize(pixels int) {
	if c.run != nil {
		inst, prog := c.run.Stop()
		inst.Resize(pixels)
		c.run = inst.Start(prog)
		return
	}
	c.inst.Resize(pixels)
}

func (c *Coordinator) step() {
	frame, err := c.run.Step()
	switch {
	case errors.Is(err, ErrProgramEnded):
		c.log.Info("anim: program ended, waiting for a new one", "program_id", c.programID())
		c.halt("")
		return
	case err != nil:
		c.log.Warn("anim: program fault", "program_id", c.programID(), "error", err)
		c.halt(err.Error())
		return
	case len(frame) != c.cfg.LEDQuantity:
		err := fmt.Errorf("frame has %d pixels, strip has %d", len(frame), c.cfg.LEDQuantity)
		c.log.Error("anim: program fault", "program_id", c.programID(), "error", err)
		c.halt(err.Error())
		return
	}

	c.scratch = scale(c.scratch, frame, c.cfg)
	if err := c.out.Write(c.scratch); err != nil {
		c.writeErrors++
		c.log.Warn("anim: pixel write failed", "error", err)
		return
	}
	c.frames++
}

func (c *Coordinator) halt(fault string) {
	inst, _ := c.run.Stop()
	c.inst, c.run = inst, nil
	c.lastFault = fault
}

func (c *Coordinator) programID() string {
	if c.program == nil {
		return ""
	}
	return c.program.ID.String()
}

func (c *Coordinator) status() PlaybackStatus {
	st := PlaybackStatus{
		State:         StateHalted,
		FramesWritten: c.frames,
		WriteErrors:   c.writeErrors,
		LastFault:     c.lastFault,
		Config:        c.cfg,
	}
	if c.run != nil {
		st.State = StateRunning
	}
	if c.program != nil {
		p := *c.program
		st.Program = &p
	}
	return st
}
