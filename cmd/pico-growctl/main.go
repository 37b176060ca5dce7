//go:build rp2040 || rp2350

// Command pico-growctl is the chamber firmware for a Pico carrying the
// DS1307 and LCD backpack on i2c0, a DHT22 on GP15 and four relays.
package main

import (
	"context"
	"runtime/interrupt"
	"time"

	"growctl-go/bus"
	"growctl-go/drivers/dht22"
	"growctl-go/services/app"
	"growctl-go/services/config"
	"growctl-go/services/hal"
	"growctl-go/x/logx"
)

const dhtPin = 15

var picoPins = app.PinMap{
	Heater: 2, Fogger: 3, Fan: 4, Light: 5,
	LED:        25,
	MenuButton: 6, LightButton: 7,
	SQW: 8,
}

func critical(fn func()) {
	mask := interrupt.Disable()
	fn()
	interrupt.Restore(mask)
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(16)
	dev, err := config.NewConfigService().Start(ctx, b.NewConnection("config"))
	if err != nil {
		halt("config", err)
	}

	i2c, err := hal.DefaultI2C(dev.Chamber.BusSCLHz)
	if err != nil {
		halt("i2c", err)
	}
	pins := hal.DefaultPinFactory()
	dht, _ := pins.ByNumber(dhtPin)

	a, err := app.Build(b, dev.ID, dev.Chamber, app.Board{
		I2C:     i2c,
		Pins:    pins,
		Map:     picoPins,
		DHTLine: hal.OpenDrain{Pin: dht, Pull: hal.PullUp},
		DHT:     dht22.Config{LoopsPerMicro: 20, Critical: critical},
		Console: hal.ConsoleUART(115200),
	})
	if err != nil {
		halt("build", err)
	}
	a.Run(ctx)
}

func halt(stage string, err error) {
	for {
		logx.Error("main", "startup failed", "stage", stage, "err", err)
		time.Sleep(5 * time.Second)
	}
}
