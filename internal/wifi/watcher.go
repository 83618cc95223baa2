package wifi

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ReconnectConfig controls the exponential backoff used after link loss.
type ReconnectConfig struct {
	Delay      time.Duration // wait after a link-down before the first attempt
	MaxDelay   time.Duration
	MaxRetries int // zero means keep trying
}

func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Delay:      2 * time.Second,
		MaxDelay:   60 * time.Second,
		MaxRetries: 0,
	}
}

// Watcher turns link events from the radio into reconnect commands. It
// never touches the connection state itself.
type Watcher struct {
	client *Client
	cfg    ReconnectConfig
	events chan LinkEvent
	log    *slog.Logger
}

func NewWatcher(client *Client, cfg ReconnectConfig, logger *slog.Logger) *Watcher {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultReconnectConfig().Delay
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		client: client,
		cfg:    cfg,
		events: make(chan LinkEvent, 4),
		log:    logger,
	}
}

// Notify is safe to call from driver callbacks; it never blocks. When the
// buffer is full the oldest event is dropped, the newest always wins.
func (w *Watcher) Notify(ev LinkEvent) {
	for {
		select {
		case w.events <- ev:
			return
		default:
		}
		select {
		case <-w.events:
		default:
		}
	}
}

// Run waits for link-down events and drives the reconnect attempts.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		attempt int
		downAt  time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, timerC, attempt = nil, nil, 0
	}
	schedule := func(d time.Duration) {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(d)
		timerC = timer.C
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-w.events:
			switch ev {
			case LinkDown:
				if timerC == nil {
					w.log.Warn("wifi: link lost, scheduling reconnect", "delay", w.cfg.Delay)
					downAt = time.Now()
					schedule(w.cfg.Delay)
				}
			case LinkUp:
				if timerC != nil {
					w.log.Debug("wifi: link back up, reconnect cancelled")
				}
				stop()
			}

		case <-timerC:
			timer, timerC = nil, nil
			attempt++
			err := w.client.reconnect(ctx, downAt)
			switch {
			case err == nil:
				w.log.Info("wifi: link restored", "attempt", attempt)
				stop()
			case errors.Is(err, ErrNothingToReconnect):
				w.log.Debug("wifi: link down was explicit or already handled, not reconnecting")
				stop()
			case w.cfg.MaxRetries > 0 && attempt >= w.cfg.MaxRetries:
				w.log.Error("wifi: giving up on reconnect", "attempts", attempt, "error", err)
				stop()
			default:
				delay := backoff(attempt, w.cfg)
				w.log.Warn("wifi: reconnect attempt failed", "attempt", attempt, "retry_in", delay, "error", err)
				schedule(delay)
			}
		}
	}
}

// backoff returns Delay * 2^attempt capped at MaxDelay.
func backoff(attempt int, cfg ReconnectConfig) time.Duration {
	d := cfg.Delay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return d
}
