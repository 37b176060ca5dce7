//go:build linux && !(rp2040 || rp2350 || avr)

package main

import (
	"io"

	"growctl-go/drivers/dht22"
	"growctl-go/errcode"
	"growctl-go/services/app"
	"growctl-go/services/hal"
)

// Raspberry Pi header wiring, BCM numbering.
var piPins = app.PinMap{
	Heater: 17, Fogger: 27, Fan: 22, Light: 23,
	LED:        -1,
	MenuButton: 5, LightButton: 6,
	SQW: 4,
}

const piDHT = 24

func hardwareBoard(i2cName string, loops int) (app.Board, io.Closer, error) {
	if err := hal.InitHost(); err != nil {
		return app.Board{}, nil, err
	}
	bus, closer, err := hal.OpenI2C(i2cName)
	if err != nil {
		return app.Board{}, nil, err
	}
	pins := &hal.PeriphPinFactory{}
	dht, ok := pins.ByNumber(piDHT)
	if !ok {
		closer.Close()
		return app.Board{}, nil, &errcode.E{C: errcode.ConfigInvalid, Op: "main.hw", Msg: "no DHT22 pin"}
	}
	return app.Board{
		I2C:     bus,
		Pins:    pins,
		Map:     piPins,
		DHTLine: hal.OpenDrain{Pin: dht, Pull: hal.PullUp},
		DHT:     dht22.Config{LoopsPerMicro: loops},
	}, closer, nil
}
