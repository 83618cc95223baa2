package wifi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"
)

// fakeRadio accepts associations for the networks in good.
type fakeRadio struct {
	mu sync.Mutex

	good     map[string]string
	networks []NetworkInfo
	scanErr  error
	noDHCP   bool

	cfg        Configuration
	started    bool
	associated bool
	calls      []string
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		good: map[string]string{"home": "hunter22", "office": "s3cret!!"},
		networks: []NetworkInfo{
			{SSID: "home", Channel: 6, RSSI: -48, Secured: true},
			{SSID: "office", Channel: 11, RSSI: -70, Secured: true},
		},
	}
}

func (r *fakeRadio) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeRadio) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRadio) count(call string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *fakeRadio) Scan() ([]NetworkInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("scan")
	if r.scanErr != nil {
		return nil, r.scanErr
	}
	return append([]NetworkInfo(nil), r.networks...), nil
}

func (r *fakeRadio) Configure(cfg Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("configure")
	r.cfg = cfg
	return nil
}

func (r *fakeRadio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("start")
	r.started = true
	return nil
}

func (r *fakeRadio) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("stop")
	r.started = false
	r.associated = false
	return nil
}

func (r *fakeRadio) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("connect")
	if !r.started {
		return errors.New("not started")
	}
	pass, ok := r.good[r.cfg.Station.SSID]
	if !ok || pass != r.cfg.Station.Pass {
		return errors.New("auth failure")
	}
	r.associated = true
	return nil
}

func (r *fakeRadio) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("disconnect")
	r.associated = false
	return nil
}

func (r *fakeRadio) WaitAddressReady(time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.associated || r.noDHCP {
		return ErrAddressTimeout
	}
	return nil
}

func (r *fakeRadio) IPConfig() (IPInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.associated {
		return IPInfo{}, errors.New("no address")
	}
	return IPInfo{Address: netip.MustParseAddr("192.168.1.42")}, nil
}

// memStore is an in-memory CredentialStore that counts writes.
type memStore struct {
	mu      sync.Mutex
	creds   *Credentials
	stores  int
	erases  int
	loadErr error
}

func (s *memStore) Load() (Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return Credentials{}, false, s.loadErr
	}
	if s.creds == nil {
		return Credentials{}, false, nil
	}
	return *s.creds, true, nil
}

func (s *memStore) Store(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores++
	s.creds = &c
	return nil
}

func (s *memStore) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.erases++
	s.creds = nil
	return nil
}

func (s *memStore) snapshot() (*Credentials, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, s.stores
	}
	c := *s.creds
	return &c, s.stores
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		AccessPoint:    AccessPoint{SSID: "strip-setup", Pass: "ledsledsleds", Channel: 1},
		ConnectTimeout: 50 * time.Millisecond,
		SettleDelay:    time.Millisecond,
		ReplyTimeout:   time.Second,
		Logger:         quietLogger(),
	}
}

// startManager runs a manager until the test ends.
func startManager(t *testing.T, radio Radio, store CredentialStore) (*Manager, *Client) {
	t.Helper()
	m, err := NewManager(radio, store, testOptions())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, m.Client()
}
