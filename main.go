//go:build tinygo

package main

import (
	"bytes"
	_ "embed"
	"machine"
	"time"

	"nifri2/strip-control/cmd"
)

//go:embed settings.toml
var settingsData []byte

func main() {

	var uart *machine.UART = machine.UART0

	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	settings, err := cmd.LoadSettings(bytes.NewReader(settingsData))
	if err != nil {
		println("bad settings, using defaults:", err.Error())
		settings = cmd.DefaultSettings()
	}
	logger := cmd.NewLogger(machine.Serial, settings)
	logger.Info("strip-control booting", "role", settings.Role.String())

	// blink LED based on role, 2 slow blinks for a controller, 5 fast for a bench board
	switch settings.Role {
	case cmd.Controller:
		for i := 0; i < 2; i++ {
			led.High()
			time.Sleep(200 * time.Millisecond)
			led.Low()
			time.Sleep(200 * time.Millisecond)
		}
	case cmd.Bench:
		for i := 0; i < 5; i++ {
			led.High()
			time.Sleep(40 * time.Millisecond)
			led.Low()
			time.Sleep(40 * time.Millisecond)
		}
	}

	cmd.RunWorker(settings, uart, logger)
}
