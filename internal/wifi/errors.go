package wifi

import (
	"errors"

	"nifri2/strip-control/internal/mailbox"
)

var (
	// ErrNotConnected is returned by operations that need an attached radio.
	ErrNotConnected = errors.New("wifi is not connected")

	ErrScanFailed         = errors.New("wifi scan failed")
	ErrAssociation        = errors.New("wifi association failed")
	ErrAddressTimeout     = errors.New("timed out waiting for address")
	ErrUnreachable        = errors.New("gateway did not answer")
	ErrRadio              = errors.New("radio driver error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNothingToReconnect = errors.New("nothing to reconnect")

	// ErrAccessPointUnsupported means the driver cannot host an access
	// point. The radio still works as a station.
	ErrAccessPointUnsupported = errors.New("access point mode not supported")

	// ErrNoResponse is what callers see when the manager did not answer in time.
	ErrNoResponse = mailbox.ErrNoResponse
)
