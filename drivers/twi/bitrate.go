package twi

import (
	"growctl-go/errcode"

	"periph.io/x/conn/v3/physic"
)

// MaxSCL is the fastest bus clock the engine will configure (fast mode).
const MaxSCL = 400 * physic.KiloHertz

// BitRate is the prescaler/divisor pair for SCL = CPU / (16 + 2*TWBR*Prescaler).
type BitRate struct {
	Prescaler uint16 // 1, 4, 16 or 64
	TWBR      uint8
}

// PrescalerBits returns the TWPS1:0 field value.
func (b BitRate) PrescalerBits() uint8 {
	switch b.Prescaler {
	case 4:
		return 1
	case 16:
		return 2
	case 64:
		return 3
	}
	return 0
}

// Actual returns the bus clock this setting produces for cpu.
func (b BitRate) Actual(cpu physic.Frequency) physic.Frequency {
	return cpu / physic.Frequency(16+2*int64(b.TWBR)*int64(b.Prescaler))
}

// Divisor derives the bit-rate setting for scl. It fails for speeds above
// MaxSCL and for ratios no prescaler can express in an 8-bit divisor.
func Divisor(cpu, scl physic.Frequency) (BitRate, error) {
	if cpu <= 0 || scl <= 0 {
		return BitRate{}, &errcode.E{C: errcode.ConfigInvalid, Op: "twi.divisor", Msg: "frequencies must be positive"}
	}
	if scl > MaxSCL {
		return BitRate{}, &errcode.E{C: errcode.ConfigInvalid, Op: "twi.divisor", Msg: "bus speed above 400kHz: " + scl.String()}
	}
	ratio := int64(cpu / scl)
	if ratio < 16 {
		return BitRate{}, &errcode.E{C: errcode.ConfigInvalid, Op: "twi.divisor", Msg: "bus speed too close to cpu clock: " + scl.String()}
	}
	var p int64
	switch {
	case ratio <= 526:
		p = 1
	case ratio <= 2056:
		p = 4
	case ratio <= 8176:
		p = 16
	case ratio <= 32656:
		p = 64
	default:
		return BitRate{}, &errcode.E{C: errcode.ConfigInvalid, Op: "twi.divisor", Msg: "bus speed too slow: " + scl.String()}
	}
	return BitRate{Prescaler: uint16(p), TWBR: uint8((ratio - 16) / (2 * p))}, nil
}
