package animation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nifri2/strip-control/internal/mailbox"
)

// ErrNoResponse is what callers see when the coordinator did not answer.
var ErrNoResponse = mailbox.ErrNoResponse

// Client talks to a Coordinator. Input is validated here, so malformed
// requests never reach the playback goroutine.
type Client struct {
	inbox   chan<- command
	engine  Engine
	timeout time.Duration
}

// UpdateConfig overlays p and returns the resolved configuration.
func (c *Client) UpdateConfig(ctx context.Context, p PartialConfig) (Config, error) {
	if err := p.Validate(); err != nil {
		return Config{}, err
	}
	return mailbox.Call(ctx, c.inbox, c.timeout, func(r chan<- Config) command {
		return updateConfigCmd{partial: p, reply: r}
	})
}

// UpdateConfigJSON parses a strict JSON delta and applies it.
func (c *Client) UpdateConfigJSON(ctx context.Context, data []byte) (Config, error) {
	p, err := ParsePartialConfig(data)
	if err != nil {
		return Config{}, err
	}
	return c.UpdateConfig(ctx, p)
}

// LoadProgram decodes data and hands the program to the coordinator.
func (c *Client) LoadProgram(ctx context.Context, data []byte) (ProgramInfo, error) {
	prog, err := c.engine.Decode(data)
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("decode program: %w", err)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("program id: %w", err)
	}
	info := ProgramInfo{ID: id, Size: len(data)}
	return mailbox.Call(ctx, c.inbox, c.timeout, func(r chan<- ProgramInfo) command {
		return loadProgramCmd{program: prog, info: info, reply: r}
	})
}

// SetAuxChannel sets the white level applied to every pixel.
func (c *Client) SetAuxChannel(ctx context.Context, value uint8) (Config, error) {
	return mailbox.Call(ctx, c.inbox, c.timeout, func(r chan<- Config) command {
		return setAuxCmd{value: value, reply: r}
	})
}

func (c *Client) State(ctx context.Context) (PlaybackStatus, error) {
	return mailbox.Call(ctx, c.inbox, c.timeout, func(r chan<- PlaybackStatus) command {
		return stateCmd{reply: r}
	})
}
