package wifi

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"
)

// Scanner is implemented by network devices that can list nearby networks.
type Scanner interface {
	Scan() ([]NetworkInfo, error)
}

// ScannerFor returns dev as a Scanner when the driver can scan, nil
// otherwise. None of the netlink drivers in tinygo.org/x/drivers export a
// scan call yet, so on those builds Scan reports netlink.ErrNotSupported.
func ScannerFor(dev any) Scanner {
	if s, ok := dev.(Scanner); ok {
		return s
	}
	return nil
}

// AddrSource reports the station address; netdev.Netdever satisfies it.
type AddrSource interface {
	Addr() (netip.Addr, error)
}

type linkMode int

const (
	modeIdle linkMode = iota
	modeAP
	modeStation
)

// NetlinkRadio adapts a TinyGo netlink device to the Radio interface.
// Netlink runs one mode at a time: Start brings up the access point when no
// station is configured, and Connect associates as a station.
type NetlinkRadio struct {
	link    netlink.Netlinker
	addr    AddrSource
	scanner Scanner

	params netlink.ConnectParams
	ap     AccessPoint

	started   bool
	connected bool
	apUp      bool
	// noAP is set once the driver refused access point mode.
	noAP bool

	up chan struct{}

	mu        sync.Mutex
	mode      linkMode
	listeners []func(LinkEvent)
}

// NewNetlinkRadio wraps link. scanner may be nil.
func NewNetlinkRadio(link netlink.Netlinker, addr AddrSource, scanner Scanner) *NetlinkRadio {
	r := &NetlinkRadio{
		link:    link,
		addr:    addr,
		scanner: scanner,
		up:      make(chan struct{}, 1),
	}
	link.NetNotify(r.onEvent)
	return r
}

// NotifyLink registers fn for link events. fn runs on the driver's goroutine
// and must not block.
func (r *NetlinkRadio) NotifyLink(fn func(LinkEvent)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *NetlinkRadio) onEvent(ev netlink.Event) {
	var le LinkEvent
	switch ev {
	case netlink.EventNetUp:
		le = LinkUp
	case netlink.EventNetDown:
		le = LinkDown
	default:
		return
	}

	r.mu.Lock()
	mode, listeners := r.mode, r.listeners
	r.mu.Unlock()
	// Access point up/down is not the station link.
	if mode != modeStation {
		return
	}
	for _, fn := range listeners {
		fn(le)
	}

	if le == LinkUp {
		select {
		case r.up <- struct{}{}:
		default:
		}
	}
}

func (r *NetlinkRadio) Scan() ([]NetworkInfo, error) {
	if r.scanner == nil {
		return nil, netlink.ErrNotSupported
	}
	return r.scanner.Scan()
}

func (r *NetlinkRadio) Configure(cfg Configuration) error {
	auth := netlink.AuthType(netlink.AuthTypeWPA2)
	if cfg.Station.Pass == "" {
		auth = netlink.AuthTypeOpen
	}
	r.params = netlink.ConnectParams{
		ConnectMode: netlink.ConnectModeSTA,
		Ssid:        cfg.Station.SSID,
		Passphrase:  cfg.Station.Pass,
		AuthType:    auth,
		Retries:     1,
	}
	r.ap = cfg.AccessPoint
	return nil
}

func (r *NetlinkRadio) setMode(m linkMode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

// Start brings up the access point unless a station is configured, in which
// case the station associates in Connect.
func (r *NetlinkRadio) Start() error {
	if r.started {
		return nil
	}
	r.started = true
	if r.params.Ssid != "" || r.ap.SSID == "" || r.noAP {
		return nil
	}

	auth := netlink.AuthType(netlink.AuthTypeWPA2)
	if r.ap.Pass == "" {
		auth = netlink.AuthTypeOpen
	}
	params := netlink.ConnectParams{
		ConnectMode: netlink.ConnectModeAP,
		Ssid:        r.ap.SSID,
		Passphrase:  r.ap.Pass,
		AuthType:    auth,
	}
	r.setMode(modeAP)
	if err := r.link.NetConnect(&params); err != nil {
		r.setMode(modeIdle)
		if errors.Is(err, netlink.ErrConnectModeNoGood) {
			r.noAP = true
			return fmt.Errorf("%w: %w", ErrAccessPointUnsupported, err)
		}
		r.started = false
		return err
	}
	r.apUp = true
	return nil
}

func (r *NetlinkRadio) Stop() error {
	if r.connected || r.apUp {
		r.link.NetDisconnect()
		r.connected, r.apUp = false, false
	}
	r.setMode(modeIdle)
	r.started = false
	return nil
}

func (r *NetlinkRadio) Connect() error {
	if !r.started {
		return errors.New("radio not started")
	}
	if r.params.Ssid == "" {
		return netlink.ErrMissingSSID
	}

	if r.apUp {
		r.link.NetDisconnect()
		r.apUp = false
	}

	// Forget any stale up event before associating.
	select {
	case <-r.up:
	default:
	}

	r.setMode(modeStation)
	params := r.params
	if err := r.link.NetConnect(&params); err != nil {
		r.setMode(modeIdle)
		return err
	}
	r.connected = true
	return nil
}

func (r *NetlinkRadio) Disconnect() error {
	if !r.connected {
		return nil
	}
	r.link.NetDisconnect()
	r.connected = false
	r.setMode(modeIdle)
	return nil
}

// WaitAddressReady waits for the device's net-up event and a usable address.
func (r *NetlinkRadio) WaitAddressReady(timeout time.Duration) error {
	if !r.connected {
		return ErrNotConnected
	}
	deadline := time.Now().Add(timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.up:
	case <-timer.C:
		return fmt.Errorf("%w: no link-up event after %v", ErrAddressTimeout, timeout)
	}

	// DHCP may still be finishing after the link came up.
	for {
		if _, err := r.IPConfig(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no address after %v", ErrAddressTimeout, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (r *NetlinkRadio) IPConfig() (IPInfo, error) {
	if r.addr == nil {
		return IPInfo{}, netlink.ErrNotSupported
	}
	ip, err := r.addr.Addr()
	if err != nil {
		return IPInfo{}, err
	}
	if !ip.IsValid() || ip.IsUnspecified() {
		return IPInfo{}, errors.New("no address assigned")
	}
	return IPInfo{Address: ip}, nil
}
