package wifi

import (
	"net/netip"
	"time"
)

// NetworkInfo describes one network seen during a scan.
type NetworkInfo struct {
	SSID    string `json:"ssid"`
	Channel uint8  `json:"channel"`
	RSSI    int8   `json:"rssi"`
	Secured bool   `json:"secured"`
}

// AccessPoint is the network the device offers itself while not attached.
type AccessPoint struct {
	SSID    string `toml:"ssid"`
	Pass    string `toml:"pass"`
	Channel uint8  `toml:"channel"`
}

// Configuration is the mixed station + access point setup handed to the radio.
// An empty Station.SSID means "access point only".
type Configuration struct {
	Station     Credentials
	AccessPoint AccessPoint
}

// IPInfo is the station address assigned by DHCP.
type IPInfo struct {
	Address netip.Addr `json:"address"`
	Gateway netip.Addr `json:"gateway,omitempty"`
}

// Radio is the driver underneath the state machine. The manager goroutine
// is its only user.
type Radio interface {
	Scan() ([]NetworkInfo, error)
	Configure(Configuration) error
	Start() error
	Stop() error
	Connect() error
	Disconnect() error
	WaitAddressReady(timeout time.Duration) error
	IPConfig() (IPInfo, error)
}

// LinkEvent is reported asynchronously by radios that can notice link loss.
type LinkEvent int

const (
	LinkUp LinkEvent = iota
	LinkDown
)

func (e LinkEvent) String() string {
	switch e {
	case LinkUp:
		return "up"
	case LinkDown:
		return "down"
	default:
		return "unknown"
	}
}

// Pinger is implemented by radios that can check reachability. When the
// radio reports a gateway, a new association only counts once the gateway
// answers.
type Pinger interface {
	Ping(addr netip.Addr, timeout time.Duration) error
}

// LinkNotifier is implemented by radios that report link events.
type LinkNotifier interface {
	NotifyLink(func(LinkEvent))
}
