//go:build avr

// Command avr-growctl is the chamber firmware for an ATmega328P board. The
// bus runs on the chip's own TWI block through the interrupt-driven engine.
package main

import (
	"context"
	"machine"
	"runtime/interrupt"
	"time"

	"growctl-go/bus"
	"growctl-go/drivers/dht22"
	"growctl-go/drivers/twi"
	"growctl-go/services/app"
	"growctl-go/services/config"
	"growctl-go/services/hal"
	"growctl-go/x/logx"
)

// Buttons are polled; only INT0 and INT1 could interrupt and D2 carries
// the sensor.
var unoPins = app.PinMap{
	Heater: int(machine.D8), Fogger: int(machine.D9), Fan: int(machine.D10), Light: int(machine.D11),
	LED:        -1,
	MenuButton: int(machine.D4), LightButton: int(machine.D5),
	SQW: -1,
}

func critical(fn func()) {
	mask := interrupt.Disable()
	fn()
	interrupt.Restore(mask)
}

func main() {
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "uno")
	b := bus.NewBus(8)
	dev, err := config.NewConfigService().Start(ctx, b.NewConnection("config"))
	if err != nil {
		halt("config", err)
	}

	eng, err := twi.New(twi.AVR{}, app.TWIConfig(dev.Chamber))
	if err != nil {
		halt("twi", err)
	}
	pins := hal.DefaultPinFactory()
	dht, _ := pins.ByNumber(int(machine.D2))

	a, err := app.Build(b, dev.ID, dev.Chamber, app.Board{
		I2C:       eng,
		Pins:      pins,
		Map:       unoPins,
		DHTLine:   hal.OpenDrain{Pin: dht, Pull: hal.PullUp},
		DHT:       dht22.Config{LoopsPerMicro: 2, Critical: critical},
		PollEvery: 20 * time.Millisecond,
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
