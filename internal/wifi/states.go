package wifi

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionState is either *RadioUp or *Attached. Each transition consumes
// the value it is called on; using a consumed value panics.
type ConnectionState interface {
	Scan() ([]NetworkInfo, error)
	Status() Status
	// Connect replaces the current state. It always returns a usable state,
	// even when err is non-nil.
	Connect(creds Credentials, timeout time.Duration) (ConnectionState, error)

	connectionState()
}

// StateKind names the variant for status replies.
type StateKind string

const (
	StateStarted   StateKind = "started"
	StateConnected StateKind = "connected"
)

// Status is derived from the current state without touching the radio.
type Status struct {
	State   StateKind `json:"type"`
	SSID    string    `json:"ssid,omitempty"`
	Address string    `json:"address,omitempty"`
}

// handle is the single owner of the radio. Moving it between state values
// is how a transition consumes its source.
type handle struct {
	radio Radio
	ap    AccessPoint
}

// RadioUp is the radio running as an access point, able to scan, not
// attached to any network.
type RadioUp struct {
	h *handle
}

// Attached is RadioUp plus an association with an assigned address.
type Attached struct {
	h     *handle
	creds Credentials
	ip    IPInfo
}

func (*RadioUp) connectionState()  {}
func (*Attached) connectionState() {}

func (s *RadioUp) take() *handle {
	if s == nil || s.h == nil {
		panic("wifi: RadioUp state used after transition")
	}
	h := s.h
	s.h = nil
	return h
}

func (s *RadioUp) peek() *handle {
	if s == nil || s.h == nil {
		panic("wifi: RadioUp state used after transition")
	}
	return s.h
}

func (s *Attached) take() *handle {
	if s == nil || s.h == nil {
		panic("wifi: Attached state used after transition")
	}
	h := s.h
	s.h = nil
	return h
}

func (s *Attached) peek() *handle {
	if s == nil || s.h == nil {
		panic("wifi: Attached state used after transition")
	}
	return s.h
}

// BringUp configures the radio as an access point and starts it. A radio
// that cannot host an access point is still returned, together with
// ErrAccessPointUnsupported.
func BringUp(radio Radio, ap AccessPoint) (*RadioUp, error) {
	h := &handle{radio: radio, ap: ap}
	if err := radio.Configure(Configuration{AccessPoint: ap}); err != nil {
		return nil, fmt.Errorf("%w: configure: %w", ErrRadio, err)
	}
	if err := radio.Start(); err != nil {
		if errors.Is(err, ErrAccessPointUnsupported) {
			return &RadioUp{h: h}, err
		}
		return nil, fmt.Errorf("%w: start: %w", ErrRadio, err)
	}
	return &RadioUp{h: h}, nil
}

func (s *RadioUp) Scan() ([]NetworkInfo, error) {
	return scan(s.peek())
}

func (s *RadioUp) Status() Status {
	s.peek()
	return Status{State: StateStarted}
}

// Connect stops the radio, points the station at creds, restarts and
// associates. On any failure the radio is put back into access point mode
// and a *RadioUp is returned together with the error.
func (s *RadioUp) Connect(creds Credentials, timeout time.Duration) (ConnectionState, error) {
	h := s.take()

	if err := h.radio.Stop(); err != nil {
		return rollback(h, fmt.Errorf("%w: stop: %w", ErrRadio, err))
	}
	if err := h.radio.Configure(Configuration{Station: creds, AccessPoint: h.ap}); err != nil {
		return rollback(h, fmt.Errorf("%w: configure: %w", ErrRadio, err))
	}
	if err := h.radio.Start(); err != nil {
		return rollback(h, fmt.Errorf("%w: start: %w", ErrRadio, err))
	}
	if err := h.radio.Connect(); err != nil {
		return rollback(h, fmt.Errorf("%w: %w", ErrAssociation, err))
	}
	if err := h.radio.WaitAddressReady(timeout); err != nil {
		if !errors.Is(err, ErrAddressTimeout) {
			err = fmt.Errorf("%w: %w", ErrAddressTimeout, err)
		}
		return rollback(h, err)
	}
	ip, err := h.radio.IPConfig()
	if err != nil || !ip.Address.IsValid() || ip.Address.IsUnspecified() {
		if err == nil {
			err = errors.New("no address assigned")
		}
		return rollback(h, fmt.Errorf("%w: %w", ErrAddressTimeout, err))
	}
	if p, ok := h.radio.(Pinger); ok && ip.Gateway.IsValid() {
		if err := p.Ping(ip.Gateway, timeout); err != nil {
			return rollback(h, fmt.Errorf("%w: %v: %w", ErrUnreachable, ip.Gateway, err))
		}
	}

	return &Attached{h: h, creds: creds, ip: ip}, nil
}

func (s *Attached) Scan() ([]NetworkInfo, error) {
	return scan(s.peek())
}

func (s *Attached) Status() Status {
	s.peek()
	return Status{State: StateConnected, SSID: s.creds.SSID, Address: s.ip.Address.String()}
}

// Credentials returns the credentials of the current association.
func (s *Attached) Credentials() Credentials {
	s.peek()
	return s.creds
}

// IPConfig returns the address assigned when the association was made.
func (s *Attached) IPConfig() IPInfo {
	s.peek()
	return s.ip
}

// Disconnect leaves the network and restarts the radio as an access point.
// The returned *RadioUp is valid even when err is non-nil.
func (s *Attached) Disconnect() (*RadioUp, error) {
	h := s.take()

	var errs []error
	if err := h.radio.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("%w: disconnect: %w", ErrRadio, err))
	}
	if err := h.radio.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("%w: stop: %w", ErrRadio, err))
	}
	up, err := restart(h)
	errs = append(errs, err)
	return up, errors.Join(errs...)
}

// Connect leaves the current network first.
func (s *Attached) Connect(creds Credentials, timeout time.Duration) (ConnectionState, error) {
	up, err := s.Disconnect()
	next, cerr := up.Connect(creds, timeout)
	if cerr != nil {
		return next, errors.Join(cerr, err)
	}
	return next, nil
}

func scan(h *handle) ([]NetworkInfo, error) {
	nets, err := h.radio.Scan()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	return nets, nil
}

func rollback(h *handle, cause error) (ConnectionState, error) {
	_ = h.radio.Disconnect()
	_ = h.radio.Stop()
	up, err := restart(h)
	return up, errors.Join(cause, err)
}

// restart never fails to produce a RadioUp: if the radio refuses to come
// back, the error is reported and the next transition tries again.
func restart(h *handle) (*RadioUp, error) {
	var errs []error
	if err := h.radio.Configure(Configuration{AccessPoint: h.ap}); err != nil {
		errs = append(errs, fmt.Errorf("%w: configure: %w", ErrRadio, err))
	}
	if err := h.radio.Start(); err != nil && !errors.Is(err, ErrAccessPointUnsupported) {
		errs = append(errs, fmt.Errorf("%w: start: %w", ErrRadio, err))
	}
	return &RadioUp{h: h}, errors.Join(errs...)
}
