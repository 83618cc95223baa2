package wifi

import (
	"context"
	"time"

	"nifri2/strip-control/internal/mailbox"
)

// Client sends commands to a Manager and waits for the replies. It is safe
// for concurrent use; the manager serialises everything.
type Client struct {
	cmds        chan<- command
	wait        time.Duration
	connectWait time.Duration
}

func (c *Client) Scan(ctx context.Context) ([]NetworkInfo, error) {
	res, err := mailbox.Call(ctx, c.cmds, c.wait, func(r chan<- scanResult) command {
		return scanCmd{reply: r}
	})
	if err != nil {
		return nil, err
	}
	return res.networks, res.err
}

// TryConnect validates the credentials before they reach the manager.
func (c *Client) TryConnect(ctx context.Context, req ConnectRequest) error {
	if err := req.Credentials.Validate(); err != nil {
		return err
	}
	return c.errCall(ctx, c.connectWait, func(r chan<- error) command {
		return connectCmd{req: req, reply: r}
	})
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.errCall(ctx, c.wait, func(r chan<- error) command {
		return disconnectCmd{reply: r}
	})
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	return mailbox.Call(ctx, c.cmds, c.wait, func(r chan<- Status) command {
		return statusCmd{reply: r}
	})
}

func (c *Client) StoreCurrentCredentials(ctx context.Context) error {
	return c.errCall(ctx, c.wait, func(r chan<- error) command {
		return storeCmd{reply: r}
	})
}

func (c *Client) EraseCredentials(ctx context.Context) error {
	return c.errCall(ctx, c.wait, func(r chan<- error) command {
		return eraseCmd{reply: r}
	})
}

func (c *Client) reconnect(ctx context.Context, since time.Time) error {
	return c.errCall(ctx, c.connectWait, func(r chan<- error) command {
		return reconnectCmd{since: since, reply: r}
	})
}

func (c *Client) errCall(ctx context.Context, wait time.Duration, build func(chan<- error) command) error {
	res, err := mailbox.Call(ctx, c.cmds, wait, build)
	if err != nil {
		return err
	}
	return res
}
