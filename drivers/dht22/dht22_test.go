package dht22_test

import (
	"errors"
	"testing"
	"time"

	"growctl-go/drivers/dht22"
	"growctl-go/drivers/dht22/dht22sim"
	"growctl-go/errcode"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time        { return c.t }
func (c *clock) sleep(d time.Duration) { c.t = c.t.Add(d) }

func newDevice(r dht22.Reading) (*dht22.Device, *dht22sim.Line, *clock) {
	line := dht22sim.New(r)
	clk := &clock{t: time.Unix(1000, 0)}
	d := dht22.New(line, dht22.Config{LoopsPerMicro: 1, Now: clk.now, Sleep: clk.sleep})
	return d, line, clk
}

func TestRead(t *testing.T) {
	for _, want := range []dht22.Reading{
		{DeciC: 271, DeciRH: 865},
		{DeciC: -101, DeciRH: 0},
		{DeciC: 0, DeciRH: 1000},
		{DeciC: 800, DeciRH: 1},
	} {
		d, _, _ := newDevice(want)
		got, err := d.Read()
		if err != nil {
			t.Fatalf("%+v: %v", want, err)
		}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	}
}

func TestWholeUnitsTruncate(t *testing.T) {
	r := dht22.Reading{DeciC: 279, DeciRH: 899}
	if r.WholeC() != 27 || r.WholeRH() != 89 {
		t.Fatalf("whole %d %d", r.WholeC(), r.WholeRH())
	}
	if (dht22.Reading{DeciC: -15}).WholeC() != -1 {
		t.Fatal("negative truncation must go toward zero")
	}
}

func TestMinIntervalReturnsCached(t *testing.T) {
	d, line, clk := newDevice(dht22.Reading{DeciC: 250, DeciRH: 500})
	if _, err := d.Read(); err != nil {
		t.Fatal(err)
	}
	line.Set(dht22.Reading{DeciC: 300, DeciRH: 600})

	clk.t = clk.t.Add(time.Second)
	got, _ := d.Read()
	if got.DeciC != 250 || line.Samples() != 1 {
		t.Fatalf("read inside interval sampled again: %+v samples=%d", got, line.Samples())
	}

	clk.t = clk.t.Add(2 * time.Second)
	got, _ = d.Read()
	if got.DeciC != 300 || line.Samples() != 2 {
		t.Fatalf("got %+v samples=%d", got, line.Samples())
	}
}

func TestProtocolFaults(t *testing.T) {
	cases := []struct {
		fault dht22sim.Fault
		want  error
	}{
		{dht22sim.FaultSilent, dht22.ErrNoResponse},
		{dht22sim.FaultStuck, dht22.ErrTimeout},
		{dht22sim.FaultChecksum, dht22.ErrChecksum},
	}
	for _, tc := range cases {
		d, line, _ := newDevice(dht22.Reading{DeciC: 200, DeciRH: 400})
		line.SetFault(tc.fault)
		_, err := d.Read()
		if !errors.Is(err, tc.want) {
			t.Fatalf("fault %d: err=%v want %v", tc.fault, err, tc.want)
		}
		if errcode.Of(err) != errcode.SensorProtocol {
			t.Fatalf("fault %d: code %q", tc.fault, errcode.Of(err))
		}
	}
}

func TestRecoversAfterFault(t *testing.T) {
	d, line, clk := newDevice(dht22.Reading{DeciC: 200, DeciRH: 400})
	line.SetFault(dht22sim.FaultChecksum)
	if _, err := d.Read(); err == nil {
		t.Fatal("expected checksum error")
	}
	line.SetFault(dht22sim.FaultNone)
	clk.t = clk.t.Add(3 * time.Second)
	if r, err := d.Read(); err != nil || r.DeciC != 200 {
		t.Fatalf("r=%+v err=%v", r, err)
	}
}

func TestCriticalWrapsCapture(t *testing.T) {
	line := dht22sim.New(dht22.Reading{DeciC: 1, DeciRH: 2})
	calls := 0
	d := dht22.New(line, dht22.Config{
		Critical: func(fn func()) { calls++; fn() },
		Sleep:    func(time.Duration) {},
	})
	if _, err := d.Read(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("critical section entered %d times", calls)
	}
}

func TestDecode(t *testing.T) {
	// 65.2 %RH, -10.1 °C
	b := [5]byte{0x02, 0x8C, 0x80, 0x65, 0}
	b[4] = b[0] + b[1] + b[2] + b[3]
	r, err := dht22.Decode(b)
	if err != nil || r.DeciRH != 652 || r.DeciC != -101 {
		t.Fatalf("r=%+v err=%v", r, err)
	}

	over := dht22.Encode(dht22.Reading{DeciRH: 1001})
	if _, err := dht22.Decode(over); !errors.Is(err, dht22.ErrInvalidReading) {
		t.Fatalf("humidity > 100%% err=%v", err)
	}
}
