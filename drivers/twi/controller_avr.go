//go:build avr

package twi

import (
	"device/avr"
	"runtime/interrupt"
)

// handler is read from the TWI vector; interrupt.New needs a handler that
// does not capture locals.
var handler func()

// AVR drives the on-chip TWI of ATmega parts.
type AVR struct{}

const twcrRun = avr.TWCR_TWEN | avr.TWCR_TWIE | avr.TWCR_TWINT

func (AVR) Enable(h func()) error {
	handler = h
	interrupt.New(avr.IRQ_TWI, func(interrupt.Interrupt) {
		if f := handler; f != nil {
			f()
		}
	})
	avr.TWDR.Set(0xFF) // release SDA
	avr.TWCR.Set(avr.TWCR_TWEN)
	return nil
}

func (AVR) SetBitRate(br BitRate) {
	avr.TWSR.Set(br.PrescalerBits())
	avr.TWBR.Set(br.TWBR)
}

func (AVR) Start()         { avr.TWCR.Set(twcrRun | avr.TWCR_TWSTA) }
func (AVR) Data() byte     { return avr.TWDR.Get() }
func (AVR) Stop()          { avr.TWCR.Set(avr.TWCR_TWEN | avr.TWCR_TWINT | avr.TWCR_TWSTO) }
func (AVR) Status() Status { return Status(avr.TWSR.Get() & 0xF8) }

func (AVR) Write(b byte) {
	avr.TWDR.Set(b)
	avr.TWCR.Set(twcrRun)
}

func (AVR) Read(ack bool) {
	if ack {
		avr.TWCR.Set(twcrRun | avr.TWCR_TWEA)
		return
	}
	avr.TWCR.Set(twcrRun)
}
