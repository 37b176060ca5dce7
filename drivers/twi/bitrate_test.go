package twi

import (
	"testing"

	"growctl-go/errcode"

	"periph.io/x/conn/v3/physic"
)

func TestDivisor(t *testing.T) {
	cpu := 16 * physic.MegaHertz
	cases := []struct {
		scl  physic.Frequency
		want BitRate
	}{
		{400 * physic.KiloHertz, BitRate{Prescaler: 1, TWBR: 12}},
		{100 * physic.KiloHertz, BitRate{Prescaler: 1, TWBR: 72}},
		{10 * physic.KiloHertz, BitRate{Prescaler: 4, TWBR: 198}},
		{2 * physic.KiloHertz, BitRate{Prescaler: 16, TWBR: 249}},
		{physic.KiloHertz, BitRate{Prescaler: 64, TWBR: 124}},
	}
	for _, tc := range cases {
		got, err := Divisor(cpu, tc.scl)
		if err != nil {
			t.Fatalf("Divisor(%v): %v", tc.scl, err)
		}
		if got != tc.want {
			t.Errorf("Divisor(%v)=%+v want %+v", tc.scl, got, tc.want)
		}
	}
}

func TestDivisorBoundaries(t *testing.T) {
	// Largest ratio each prescaler covers must still fit in eight bits.
	for _, ratio := range []int64{526, 2056, 8176, 32656} {
		cpu := physic.Frequency(ratio) * physic.KiloHertz
		br, err := Divisor(cpu, physic.KiloHertz)
		if err != nil {
			t.Fatalf("ratio %d: %v", ratio, err)
		}
		if br.TWBR != 255 {
			t.Errorf("ratio %d: TWBR=%d want 255", ratio, br.TWBR)
		}
	}
}

func TestDivisorRejects(t *testing.T) {
	cpu := 16 * physic.MegaHertz
	for _, scl := range []physic.Frequency{
		401 * physic.KiloHertz, // above fast mode
		2 * physic.MegaHertz,   // ratio < 16
		400 * physic.Hertz,     // beyond the largest prescaler
		0,
	} {
		if _, err := Divisor(cpu, scl); errcode.Of(err) != errcode.ConfigInvalid {
			t.Errorf("Divisor(%v) err=%v want config_invalid", scl, err)
		}
	}
}

func TestBitRateActualAndBits(t *testing.T) {
	cpu := 16 * physic.MegaHertz
	br := BitRate{Prescaler: 1, TWBR: 72}
	if got := br.Actual(cpu); got != 100*physic.KiloHertz {
		t.Fatalf("Actual=%v want 100kHz", got)
	}
	for p, want := range map[uint16]uint8{1: 0, 4: 1, 16: 2, 64: 3} {
		if got := (BitRate{Prescaler: p}).PrescalerBits(); got != want {
			t.Errorf("prescaler %d bits=%d want %d", p, got, want)
		}
	}
}
