package wifi

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/drivers/netlink"
)

type fakeLink struct {
	mu      sync.Mutex
	cb      func(netlink.Event)
	params  *netlink.ConnectParams
	fail    error
	apErr   error         // returned for access point mode
	delay   time.Duration // station association time
	silent  bool          // never report net-up
	downs   int
	address netip.Addr

	// modes of the links torn down by NetDisconnect
	disconnects []netlink.ConnectMode
}

func (l *fakeLink) NetConnect(p *netlink.ConnectParams) error {
	cp := *p
	l.mu.Lock()
	fail, delay := l.fail, l.delay
	if cp.ConnectMode == netlink.ConnectModeAP && l.apErr != nil {
		fail = l.apErr
	}
	l.mu.Unlock()

	if cp.ConnectMode == netlink.ConnectModeSTA {
		time.Sleep(delay)
	}

	l.mu.Lock()
	if fail == nil {
		l.params = &cp
		if cp.ConnectMode == netlink.ConnectModeSTA {
			l.address = netip.MustParseAddr("10.0.0.7")
		}
	}
	silent, cb := l.silent, l.cb
	l.mu.Unlock()
	if fail != nil {
		return fail
	}
	if !silent && cb != nil && cp.ConnectMode == netlink.ConnectModeSTA {
		go cb(netlink.EventNetUp)
	}
	return nil
}

func (l *fakeLink) NetDisconnect() {
	l.mu.Lock()
	l.downs++
	if l.params != nil {
		l.disconnects = append(l.disconnects, l.params.ConnectMode)
	}
	l.address = netip.Addr{}
	cb := l.cb
	l.mu.Unlock()
	if cb != nil {
		cb(netlink.EventNetDown)
	}
}

func (l *fakeLink) stationDowns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.disconnects {
		if m == netlink.ConnectModeSTA {
			n++
		}
	}
	return n
}

func (l *fakeLink) lastParams() netlink.ConnectParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.params == nil {
		return netlink.ConnectParams{}
	}
	return *l.params
}

func (l *fakeLink) NetNotify(cb func(netlink.Event)) {
	l.mu.Lock()
	l.cb = cb
	l.mu.Unlock()
}

func (l *fakeLink) GetHardwareAddr() (net.HardwareAddr, error) {
	return net.HardwareAddr{0x02, 0, 0, 0, 0, 1}, nil
}

func (l *fakeLink) Addr() (netip.Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.address.IsValid() {
		return netip.IPv4Unspecified(), nil
	}
	return l.address, nil
}

func TestNetlinkRadioConnect(t *testing.T) {
	link := &fakeLink{}
	r := NewNetlinkRadio(link, link, nil)

	if err := r.Configure(Configuration{Station: Credentials{SSID: "home", Pass: "hunter22"}}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := r.WaitAddressReady(time.Second); err != nil {
		t.Fatalf("WaitAddressReady() error = %v", err)
	}
	ip, err := r.IPConfig()
	if err != nil || ip.Address.String() != "10.0.0.7" {
		t.Fatalf("IPConfig() = %v, %v", ip, err)
	}

	p := link.lastParams()
	if p.Ssid != "home" || p.Passphrase != "hunter22" || p.AuthType != netlink.AuthTypeWPA2 {
		t.Errorf("connect params = %+v", p)
	}
}

func TestNetlinkRadioOpenNetwork(t *testing.T) {
	link := &fakeLink{}
	r := NewNetlinkRadio(link, link, nil)
	r.Configure(Configuration{Station: Credentials{SSID: "cafe"}})
	r.Start()
	if err := r.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if p := link.lastParams(); p.AuthType != netlink.AuthTypeOpen {
		t.Errorf("AuthType = %v, want open", p.AuthType)
	}
}

func TestNetlinkRadioConnectErrors(t *testing.T) {
	link := &fakeLink{fail: netlink.ErrAuthFailure}
	r := NewNetlinkRadio(link, link, nil)

	r.Configure(Configuration{Station: Credentials{SSID: "home", Pass: "x"}})
	if err := r.Connect(); err == nil {
		t.Error("Connect() before Start() succeeded")
	}
	r.Start()
	if err := r.Connect(); !errors.Is(err, netlink.ErrAuthFailure) {
		t.Errorf("Connect() error = %v, want ErrAuthFailure", err)
	}

	r.Configure(Configuration{})
	if err := r.Connect(); !errors.Is(err, netlink.ErrMissingSSID) {
		t.Errorf("Connect() without ssid error = %v, want ErrMissingSSID", err)
	}
}

func TestNetlinkRadioAddressTimeout(t *testing.T) {
	link := &fakeLink{silent: true}
	r := NewNetlinkRadio(link, link, nil)
	r.Configure(Configuration{Station: Credentials{SSID: "home", Pass: "hunter22"}})
	r.Start()
	if err := r.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := r.WaitAddressReady(20 * time.Millisecond); !errors.Is(err, ErrAddressTimeout) {
		t.Errorf("WaitAddressReady() error = %v, want ErrAddressTimeout", err)
	}
}

func TestNetlinkRadioForwardsLinkEvents(t *testing.T) {
	link := &fakeLink{}
	r := NewNetlinkRadio(link, link, nil)

	var mu sync.Mutex
	var got []LinkEvent
	r.NotifyLink(func(ev LinkEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	r.Configure(Configuration{Station: Credentials{SSID: "home", Pass: "hunter22"}})
	r.Start()
	r.Connect()
	if err := r.WaitAddressReady(time.Second); err != nil {
		t.Fatalf("WaitAddressReady() error = %v", err)
	}
	r.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != LinkUp || got[1] != LinkDown {
		t.Errorf("events = %v, want [up down]", got)
	}
}

func TestNetlinkRadioScanUnsupported(t *testing.T) {
	link := &fakeLink{}
	r := NewNetlinkRadio(link, link, nil)
	if _, err := r.Scan(); !errors.Is(err, netlink.ErrNotSupported) {
		t.Errorf("Scan() error = %v, want ErrNotSupported", err)
	}
}

func TestManagerOverNetlinkRadio(t *testing.T) {
	link := &fakeLink{}
	radio := NewNetlinkRadio(link, link, nil)
	store := &memStore{creds: &Credentials{SSID: "home", Pass: "hunter22"}}

	m, err := NewManager(radio, store, testOptions())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	st := m.state.Status()
	if st.State != StateConnected || st.Address != "10.0.0.7" {
		t.Errorf("initial status = %+v", st)
	}
}

func TestNetlinkRadioStartsAccessPoint(t *testing.T) {
	link := &fakeLink{}
	radio := NewNetlinkRadio(link, link, nil)

	m, err := NewManager(radio, &memStore{}, testOptions())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if st := m.state.Status(); st.State != StateStarted {
		t.Errorf("status = %+v, want started", st)
	}
	p := link.lastParams()
	if p.ConnectMode != netlink.ConnectModeAP || p.Ssid != "strip-setup" ||
		p.Passphrase != "ledsledsleds" || p.AuthType != netlink.AuthTypeWPA2 {
		t.Errorf("access point params = %+v", p)
	}
}

func TestNetlinkRadioOpenAccessPoint(t *testing.T) {
	link := &fakeLink{}
	r := NewNetlinkRadio(link, link, nil)
	r.Configure(Configuration{AccessPoint: AccessPoint{SSID: "strip-open"}})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p := link.lastParams(); p.ConnectMode != netlink.ConnectModeAP || p.AuthType != netlink.AuthTypeOpen {
		t.Errorf("access point params = %+v", p)
	}
	r.Stop()
	if link.downs != 1 {
		t.Errorf("NetDisconnect calls = %d, want 1", link.downs)
	}
}

func TestNetlinkRadioLeavesAccessPointToAssociate(t *testing.T) {
	link := &fakeLink{}
	radio := NewNetlinkRadio(link, link, nil)
	store := &memStore{creds: &Credentials{SSID: "home", Pass: "hunter22"}}

	m, err := NewManager(radio, store, testOptions())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if st := m.state.Status(); st.State != StateConnected {
		t.Fatalf("status = %+v, want connected", st)
	}
	link.mu.Lock()
	defer link.mu.Unlock()
	if len(link.disconnects) != 1 || link.disconnects[0] != netlink.ConnectModeAP {
		t.Errorf("disconnects = %v, want the access point only", link.disconnects)
	}
	if link.params.ConnectMode != netlink.ConnectModeSTA || link.params.Ssid != "home" {
		t.Errorf("station params = %+v", link.params)
	}
}

func TestNetlinkRadioAccessPointUnsupported(t *testing.T) {
	link := &fakeLink{apErr: netlink.ErrConnectModeNoGood}
	r := NewNetlinkRadio(link, link, nil)

	up, err := BringUp(r, AccessPoint{SSID: "strip-setup", Pass: "ledsledsleds"})
	if !errors.Is(err, ErrAccessPointUnsupported) || !errors.Is(err, netlink.ErrConnectModeNoGood) {
		t.Fatalf("BringUp() error = %v, want ErrAccessPointUnsupported", err)
	}
	if up == nil {
		t.Fatal("BringUp() returned no state")
	}

	// The station side still works, and later restarts stay quiet.
	next, err := up.Connect(Credentials{SSID: "home", Pass: "hunter22"}, time.Second)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, err := next.(*Attached).Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
}

func TestManagerStartsWithoutAccessPoint(t *testing.T) {
	link := &fakeLink{apErr: netlink.ErrConnectModeNoGood}
	radio := NewNetlinkRadio(link, link, nil)

	_, client := startManager(t, radio, &memStore{})
	err := client.TryConnect(context.Background(), ConnectRequest{
		Credentials: Credentials{SSID: "home", Pass: "hunter22"},
	})
	if err != nil {
		t.Fatalf("TryConnect() error = %v", err)
	}
}

type scanningLink struct {
	fakeLink
}

func (*scanningLink) Scan() ([]NetworkInfo, error) {
	return []NetworkInfo{{SSID: "home", Channel: 6, RSSI: -40, Secured: true}}, nil
}

func TestScannerFor(t *testing.T) {
	if s := ScannerFor(&fakeLink{}); s != nil {
		t.Errorf("ScannerFor(fakeLink) = %T, want nil", s)
	}

	link := &scanningLink{}
	r := NewNetlinkRadio(link, link, ScannerFor(link))
	nets, err := r.Scan()
	if err != nil || len(nets) != 1 || nets[0].SSID != "home" {
		t.Errorf("Scan() = %+v, %v", nets, err)
	}
}

// Switching networks tears the old link down once. The watcher must not
// treat that drop as link loss once the new association is in place.
func TestWatcherIgnoresSwitchTeardown(t *testing.T) {
	link := &fakeLink{delay: 60 * time.Millisecond}
	radio := NewNetlinkRadio(link, link, nil)
	store := &memStore{creds: &Credentials{SSID: "home", Pass: "hunter22"}}
	_, client := startManager(t, radio, store)

	w := startWatcher(t, client, ReconnectConfig{Delay: 20 * time.Millisecond})
	radio.NotifyLink(w.Notify)

	if n := link.stationDowns(); n != 0 {
		t.Fatalf("station disconnects before switching = %d", n)
	}
	err := client.TryConnect(context.Background(), ConnectRequest{
		Credentials: Credentials{SSID: "office", Pass: "s3cret!!"},
	})
	if err != nil {
		t.Fatalf("TryConnect() error = %v", err)
	}
	// Long enough for a queued reconnect to run through.
	time.Sleep(200 * time.Millisecond)

	if n := link.stationDowns(); n != 1 {
		t.Errorf("station disconnects = %d, want 1", n)
	}
	st, _ := client.Status(context.Background())
	if st.State != StateConnected || st.SSID != "office" {
		t.Errorf("Status() = %+v, want connected to office", st)
	}
}
