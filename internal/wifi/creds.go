package wifi

import (
	"fmt"
	"unicode/utf8"
)

// Bounds match what the radio accepts and what the credential store persists.
const (
	MaxSSIDLen = 32
	MaxPassLen = 64
)

// Credentials identify a remote network. Channel is only a hint for the
// first association and is never persisted.
type Credentials struct {
	SSID    string `json:"ssid"`
	Pass    string `json:"pass"`
	Channel *uint8 `json:"channel,omitempty"`
}

// Validate checks the length and channel bounds.
func (c Credentials) Validate() error {
	switch {
	case c.SSID == "":
		return fmt.Errorf("%w: empty ssid", ErrInvalidCredentials)
	case len(c.SSID) > MaxSSIDLen:
		return fmt.Errorf("%w: ssid longer than %d bytes", ErrInvalidCredentials, MaxSSIDLen)
	case len(c.Pass) > MaxPassLen:
		return fmt.Errorf("%w: passphrase longer than %d bytes", ErrInvalidCredentials, MaxPassLen)
	case !utf8.ValidString(c.SSID) || !utf8.ValidString(c.Pass):
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidCredentials)
	}
	if c.Channel != nil && (*c.Channel < 1 || *c.Channel > 14) {
		return fmt.Errorf("%w: channel %d out of range 1-14", ErrInvalidCredentials, *c.Channel)
	}
	return nil
}

// WithoutChannel drops the channel hint, which is what gets persisted.
func (c Credentials) WithoutChannel() Credentials {
	c.Channel = nil
	return c
}

// CredentialStore persists the credentials of the last good network.
// Only the manager goroutine calls it, so implementations need not be
// safe for concurrent use.
type CredentialStore interface {
	Load() (Credentials, bool, error)
	Store(Credentials) error
	Erase() error
}
