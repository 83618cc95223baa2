package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"nifri2/strip-control/internal/console"
)

// SerialPort is the part of machine.UART the console loop uses.
type SerialPort interface {
	io.Writer
	Buffered() int
	ReadByte() (byte, error)
}

// MaxLineLength bounds one console line. A hex encoded program is the
// longest thing anyone sends.
const MaxLineLength = 32 * 1024

// RunDispatcher reads console lines from port and writes one reply line per
// command until ctx is cancelled. It polls like the firmware's other loops
// so it never blocks inside the UART driver.
func RunDispatcher(ctx context.Context, port SerialPort, con *console.Console, logger *slog.Logger) error {
	logger.Info("console: dispatcher started")

	line := make([]byte, 0, 256)
	overflow := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if port.Buffered() == 0 {
			time.Sleep(time.Millisecond)
			continue
		}

		for port.Buffered() > 0 {
			b, err := port.ReadByte()
			if err != nil {
				logger.Warn("console: read failed", "error", err)
				break
			}
			if b != '\n' && b != '\r' {
				if len(line) >= MaxLineLength {
					overflow = true
					continue
				}
				line = append(line, b)
				continue
			}

			var reply console.Reply
			switch {
			case overflow:
				reply = console.Reply{Error: fmt.Sprintf("line longer than %d bytes", MaxLineLength)}
			case strings.TrimSpace(string(line)) == "":
				line = line[:0]
				continue
			default:
				reply = con.Exec(ctx, string(line))
			}
			line, overflow = line[:0], false
			if _, err := reply.WriteTo(port); err != nil {
				logger.Warn("console: write failed", "error", err)
			}
		}
	}
}
