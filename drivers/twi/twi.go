// Package twi is an interrupt-driven I2C (TWI) master: one transaction in
// flight, progress made by HandleInterrupt, completion polled by the caller.
package twi

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// MaxPayload bounds a single transaction's data bytes.
const MaxPayload = 16

// Status is the hardware status code (TWSR with the prescaler bits masked).
type Status uint8

const (
	StatusBusError   Status = 0x00 // illegal START/STOP
	StatusStart      Status = 0x08
	StatusRepStart   Status = 0x10
	StatusMTAddrACK  Status = 0x18
	StatusMTAddrNACK Status = 0x20
	StatusMTDataACK  Status = 0x28
	StatusMTDataNACK Status = 0x30
	StatusArbLost    Status = 0x38
	StatusMRAddrACK  Status = 0x40
	StatusMRAddrNACK Status = 0x48
	StatusMRDataACK  Status = 0x50
	StatusMRDataNACK Status = 0x58
	StatusNoState    Status = 0xF8 // no relevant state information
)

// State is the engine's protocol position.
type State uint32

const (
	Idle State = iota
	StartSent
	AddressSent
	DataTransfer
	StopSent
	ArbitrationLost
	BusError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case StartSent:
		return "start_sent"
	case AddressSent:
		return "address_sent"
	case DataTransfer:
		return "data_transfer"
	case StopSent:
		return "stop_sent"
	case ArbitrationLost:
		return "arbitration_lost"
	case BusError:
		return "bus_error"
	}
	return "unknown"
}

// Controller is the bus-controller hardware. Every action except Stop
// completes asynchronously: the hardware raises its interrupt, which must
// call the handler passed to Enable.
type Controller interface {
	Enable(handler func()) error
	SetBitRate(br BitRate)
	Start()
	Write(b byte)
	Read(ack bool)
	Data() byte
	Stop()
	Status() Status
}

// Transaction is one addressed transfer in a single direction.
// For reads, Buf is filled only when the transfer succeeds; after a failure
// its contents are undefined.
type Transaction struct {
	Addr uint16 // 7-bit address
	Read bool
	Buf  []byte
}

// Config holds the clock setup and the polling budget.
type Config struct {
	CPU physic.Frequency // controller input clock; default 16 MHz
	SCL physic.Frequency // bus clock; default 100 kHz, at most 400 kHz

	// PollBudget bounds how long a caller busy-waits for the engine to go
	// idle, both before starting and while a transfer runs. Default 50 ms.
	PollBudget time.Duration

	// MaxArbRestarts bounds automatic restarts after arbitration loss
	// within one attempt. Default 3.
	MaxArbRestarts int
}
