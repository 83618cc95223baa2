package wifi

import "time"

// ConnectRequest is the TryConnect payload.
type ConnectRequest struct {
	Credentials    Credentials `json:"creds"`
	StoreOnSuccess bool        `json:"store_on_connect"`
}

type command interface {
	command()
}

type scanResult struct {
	networks []NetworkInfo
	err      error
}

type (
	scanCmd struct {
		reply chan<- scanResult
	}
	connectCmd struct {
		req   ConnectRequest
		reply chan<- error
	}
	disconnectCmd struct {
		reply chan<- error
	}
	statusCmd struct {
		reply chan<- Status
	}
	storeCmd struct {
		reply chan<- error
	}
	eraseCmd struct {
		reply chan<- error
	}
	// reconnectCmd is only sent by the link watcher. since is when the
	// link was reported down.
	reconnectCmd struct {
		since time.Time
		reply chan<- error
	}
)

func (scanCmd) command()       {}
func (connectCmd) command()    {}
func (disconnectCmd) command() {}
func (statusCmd) command()     {}
func (storeCmd) command()      {}
func (eraseCmd) command()      {}
func (reconnectCmd) command()  {}
