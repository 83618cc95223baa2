// Package mailbox carries request/reply envelopes into a single-owner worker
// goroutine. Every request gets its own reply channel with room for exactly
// one value, so a worker never blocks on a caller that already gave up.
package mailbox

import (
	"context"
	"errors"
	"time"
)

// ErrNoResponse is returned when the worker did not accept or answer a
// request in time. It deliberately says nothing about the worker's state.
var ErrNoResponse = errors.New("no response from worker")

// NewReply makes a single-use reply channel.
func NewReply[R any]() chan R {
	return make(chan R, 1)
}

// Call builds a command around a fresh reply channel, delivers it to inbox
// and waits for the answer. The timeout covers both the send and the reply.
// A zero timeout waits until ctx is done.
func Call[C any, R any](ctx context.Context, inbox chan<- C, timeout time.Duration, build func(reply chan<- R) C) (R, error) {
	var zero R

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply := NewReply[R]()
	select {
	case inbox <- build(reply):
	case <-ctx.Done():
		return zero, ErrNoResponse
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return zero, ErrNoResponse
	}
}
