//go:build tinygo

package cmd

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"tinygo.org/x/drivers/netlink/probe"

	"nifri2/strip-control/internal/animation"
	"nifri2/strip-control/internal/console"
	"nifri2/strip-control/internal/credstore"
	"nifri2/strip-control/internal/ledstrip"
	"nifri2/strip-control/internal/sequence"
	"nifri2/strip-control/internal/wifi"
)

const (
	StripPin = machine.GP2

	watchdogTimeout = 5000 * time.Millisecond
	watchdogFeed    = time.Second
)

// RunWorker starts the playback coordinator and, on a controller, the
// connection manager, then serves the console on uart. It does not return.
func RunWorker(settings Settings, uart *machine.UART, logger *slog.Logger) {
	ctx := context.Background()

	order, _ := ledstrip.ParseOrder(settings.Strip.Order)
	strip := ledstrip.NewWS2812(StripPin, order)

	coord, err := animation.NewCoordinator(sequence.Engine{}, strip, settings.Animation, settings.CoordinatorOptions(logger))
	if err != nil {
		panic("anim: " + err.Error())
	}
	go coord.Run(ctx)
	anim := coord.Client()

	if settings.Strip.BootProgram {
		loadBootProgram(ctx, anim, settings.Animation.LEDQuantity, logger)
	}

	var net console.WiFi = offlineWiFi{}
	if settings.Role == Controller {
		if client, err := startWiFi(ctx, settings, logger); err != nil {
			logger.Error("wifi: not available", "error", err)
		} else {
			net = client
		}
	}

	// Reset the board if the playback loop stops answering.
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: uint32(watchdogTimeout.Milliseconds())})
	machine.Watchdog.Start()
	go feedWatchdog(ctx, anim, logger)

	con := console.New(net, anim, logger)
	if !settings.Console.Enabled {
		select {}
	}
	RunDispatcher(ctx, uart, con, logger)
}

func startWiFi(ctx context.Context, settings Settings, logger *slog.Logger) (*wifi.Client, error) {
	link, dev := probe.Probe()
	radio := wifi.NewNetlinkRadio(link, dev, wifi.ScannerFor(link))

	fs, err := credstore.Mount(machine.Flash)
	if err != nil {
		return nil, err
	}

	mgr, err := wifi.NewManager(radio, credstore.New(fs), settings.ManagerOptions(logger))
	if err != nil {
		return nil, err
	}
	client := mgr.Client()

	watcher := wifi.NewWatcher(client, settings.ReconnectConfig(), logger)
	radio.NotifyLink(watcher.Notify)

	go mgr.Run(ctx)
	go watcher.Run(ctx)
	return client, nil
}

func feedWatchdog(ctx context.Context, anim *animation.Client, logger *slog.Logger) {
	ticker := time.NewTicker(watchdogFeed)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := anim.State(ctx); err != nil {
			logger.Error("anim: coordinator not answering, letting watchdog reset", "error", err)
			continue
		}
		machine.Watchdog.Update()
	}
}
