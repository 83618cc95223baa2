package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options tune the manager. Zero fields fall back to DefaultOptions.
type Options struct {
	AccessPoint AccessPoint
	// ConnectTimeout bounds the wait for an address after association.
	ConnectTimeout time.Duration
	// SettleDelay is slept before every connect attempt so the radio can
	// finish tearing down the previous state.
	SettleDelay time.Duration
	// ReplyTimeout is how long callers wait for a worker that is idle.
	ReplyTimeout time.Duration
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		AccessPoint:    AccessPoint{SSID: "strip-control", Channel: 1},
		ConnectTimeout: 10 * time.Second,
		SettleDelay:    time.Second,
		ReplyTimeout:   5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = def.ReplyTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Manager owns the connection state. All transitions run on the goroutine
// calling Run, one command at a time.
type Manager struct {
	state ConnectionState
	store CredentialStore
	opts  Options
	log   *slog.Logger
	cmds  chan command

	// lost holds the credentials of a link that dropped and has not been
	// restored yet. Cleared by any explicit connect or disconnect.
	lost *Credentials
	// attachedAt is when the current association was made. Link-down
	// reports older than this were caused by our own transitions.
	attachedAt time.Time
}

// NewManager brings the radio up and, if the store has credentials, tries
// them once before returning.
func NewManager(radio Radio, store CredentialStore, opts Options) (*Manager, error) {
	opts = opts.withDefaults()
	m := &Manager{
		store: store,
		opts:  opts,
		log:   opts.Logger,
		cmds:  make(chan command, 1),
	}

	up, err := BringUp(radio, opts.AccessPoint)
	switch {
	case errors.Is(err, ErrAccessPointUnsupported):
		m.log.Warn("wifi: radio cannot host the setup access point", "error", err)
	case err != nil:
		return nil, fmt.Errorf("wifi: bring up radio: %w", err)
	}
	m.state = up

	creds, ok, err := store.Load()
	if err != nil {
		m.log.Warn("wifi: could not load stored credentials", "error", err)
		return m, nil
	}
	if !ok {
		m.log.Info("wifi: no stored credentials, staying in access point mode", "ap_ssid", opts.AccessPoint.SSID)
		return m, nil
	}

	m.log.Info("wifi: trying stored credentials", "ssid", creds.SSID)
	next, err := up.Connect(creds, opts.ConnectTimeout)
	m.state = next
	if err != nil {
		m.log.Warn("wifi: stored credentials did not connect", "ssid", creds.SSID, "error", err)
	} else {
		m.markAttached()
	}
	return m, nil
}

// Client returns a handle for sending commands to this manager.
func (m *Manager) Client() *Client {
	busy := m.opts.SettleDelay + m.opts.ConnectTimeout
	return &Client{
		cmds:        m.cmds,
		wait:        m.opts.ReplyTimeout + busy,
		connectWait: m.opts.ReplyTimeout + 2*busy,
	}
}

// Run processes commands until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.log.Info("wifi: manager started", "state", m.state.Status().State)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cmds:
			m.handle(cmd)
		}
	}
}

func (m *Manager) handle(cmd command) {
	switch c := cmd.(type) {
	case scanCmd:
		nets, err := m.state.Scan()
		if err != nil {
			m.log.Warn("wifi: scan failed", "error", err)
		}
		c.reply <- scanResult{networks: nets, err: err}

	case connectCmd:
		m.lost = nil
		c.reply <- m.connect(c.req)

	case disconnectCmd:
		m.lost = nil
		c.reply <- m.disconnect()

	case statusCmd:
		c.reply <- m.state.Status()

	case storeCmd:
		c.reply <- m.storeCurrent()

	case eraseCmd:
		err := m.store.Erase()
		if err != nil {
			m.log.Error("wifi: erasing credentials failed", "error", err)
		} else {
			m.log.Info("wifi: stored credentials erased")
		}
		c.reply <- err

	case reconnectCmd:
		c.reply <- m.reconnect(c.since)

	default:
		panic(fmt.Sprintf("wifi: unknown command %T", cmd))
	}
}

func (m *Manager) connect(req ConnectRequest) error {
	if err := req.Credentials.Validate(); err != nil {
		return err
	}

	time.Sleep(m.opts.SettleDelay)

	m.log.Info("wifi: connecting", "ssid", req.Credentials.SSID, "from", m.state.Status().State)
	next, err := m.state.Connect(req.Credentials, m.opts.ConnectTimeout)
	m.state = next
	if err != nil {
		m.log.Warn("wifi: connect failed", "ssid", req.Credentials.SSID, "error", err)
		return err
	}
	m.markAttached()

	if req.StoreOnSuccess {
		if err := m.storeCurrent(); err != nil {
			return fmt.Errorf("connected, but %w", err)
		}
	}
	return nil
}

func (m *Manager) disconnect() error {
	att, ok := m.state.(*Attached)
	if !ok {
		return ErrNotConnected
	}
	ssid := att.Credentials().SSID
	up, err := att.Disconnect()
	m.state = up
	if err != nil {
		m.log.Warn("wifi: disconnect reported errors", "ssid", ssid, "error", err)
		return err
	}
	m.log.Info("wifi: disconnected", "ssid", ssid)
	return nil
}

func (m *Manager) storeCurrent() error {
	att, ok := m.state.(*Attached)
	if !ok {
		return ErrNotConnected
	}
	creds := att.Credentials().WithoutChannel()
	if err := m.store.Store(creds); err != nil {
		m.log.Error("wifi: storing credentials failed", "ssid", creds.SSID, "error", err)
		return fmt.Errorf("storing credentials: %w", err)
	}
	m.log.Info("wifi: credentials stored", "ssid", creds.SSID)
	return nil
}

func (m *Manager) reconnect(since time.Time) error {
	var creds Credentials
	switch s := m.state.(type) {
	case *Attached:
		if !since.After(m.attachedAt) {
			m.log.Debug("wifi: ignoring link loss from before the current association", "ssid", s.Credentials().SSID)
			return ErrNothingToReconnect
		}
		creds = s.Credentials()
	default:
		if m.lost == nil {
			return ErrNothingToReconnect
		}
		creds = *m.lost
	}

	time.Sleep(m.opts.SettleDelay)

	m.log.Info("wifi: reconnecting after link loss", "ssid", creds.SSID)
	next, err := m.state.Connect(creds, m.opts.ConnectTimeout)
	m.state = next
	if err != nil {
		m.lost = &creds
		m.log.Warn("wifi: reconnect failed", "ssid", creds.SSID, "error", err)
		return err
	}
	m.lost = nil
	m.markAttached()
	return nil
}

func (m *Manager) markAttached() {
	m.attachedAt = time.Now()
	st := m.state.Status()
	m.log.Info("wifi: attached", "ssid", st.SSID, "address", st.Address)
}
