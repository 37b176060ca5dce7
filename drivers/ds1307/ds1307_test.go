package ds1307_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"growctl-go/drivers/ds1307"
	"growctl-go/drivers/twi"
	"growctl-go/drivers/twi/twisim"
)

func newDevice(t *testing.T) (*ds1307.Device, *twisim.RTC, *twisim.Controller) {
	t.Helper()
	sim := twisim.New()
	t.Cleanup(sim.Close)
	base := time.Date(2024, 6, 14, 9, 15, 30, 0, time.UTC)
	rtc := twisim.NewRTC(func() time.Time { return base })
	rtc.Set(base)
	sim.Attach(ds1307.Address, rtc)
	eng, err := twi.New(sim, twi.Config{PollBudget: 500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return ds1307.New(eng), rtc, sim
}

func TestRead(t *testing.T) {
	d, _, _ := newDevice(t)
	r, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	want := ds1307.Reading{Second: 30, Minute: 15, Hour: 9, Weekday: 6, Day: 14, Month: 6, Year: 24}
	if r != want {
		t.Fatalf("got %+v want %+v", r, want)
	}
}

func TestWriteTimeAndDate(t *testing.T) {
	d, rtc, _ := newDevice(t)

	if err := d.WriteTime(ds1307.Reading{Hour: 23, Minute: 59, Second: 58}); err != nil {
		t.Fatal(err)
	}
	tm, err := d.ReadTime()
	if err != nil || tm.Hour != 23 || tm.Minute != 59 || tm.Second != 58 {
		t.Fatalf("time %+v err=%v", tm, err)
	}

	if err := d.WriteDate(ds1307.Reading{Weekday: 4, Day: 29, Month: 2, Year: 28}); err != nil {
		t.Fatal(err)
	}
	dt, err := d.ReadDate()
	if err != nil || dt.Day != 29 || dt.Month != 2 || dt.Year != 28 || dt.Weekday != 4 {
		t.Fatalf("date %+v err=%v", dt, err)
	}
	if got := rtc.Now(); got.Year() != 2028 || got.Hour() != 23 {
		t.Fatalf("device clock %v", got)
	}
}

func TestTimeMayGoBackwards(t *testing.T) {
	d, rtc, _ := newDevice(t)
	rtc.Advance(-2 * time.Hour)
	r, err := d.Read()
	if err != nil || r.Hour != 7 {
		t.Fatalf("got %+v err=%v", r, err)
	}
}

func TestTwelveHourDeviceNormalised(t *testing.T) {
	d, rtc, _ := newDevice(t)
	rtc.Set(time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC))
	if err := d.SetHourMode(ds1307.Mode12); err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ds1307.Mode12 {
		t.Fatal("mode not recorded")
	}
	r, err := d.Read()
	if err != nil || r.Hour != 0 {
		t.Fatalf("12 AM read as %+v err=%v", r, err)
	}
	rtc.Set(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC))
	if r, _ = d.Read(); r.Hour != 13 {
		t.Fatalf("1 PM read as hour %d", r.Hour)
	}
	if err := d.WriteTime(ds1307.Reading{Hour: 12, Minute: 1}); err != nil {
		t.Fatal(err)
	}
	if r, _ = d.Read(); r.Hour != 12 || d.Mode() != ds1307.Mode12 {
		t.Fatalf("12 PM read as hour %d mode %v", r.Hour, d.Mode())
	}
}

func TestHaltAndStart(t *testing.T) {
	d, rtc, _ := newDevice(t)
	rtc.Halt()
	halted, err := d.Halted()
	if err != nil || !halted {
		t.Fatalf("halted=%v err=%v", halted, err)
	}
	if _, err := d.Read(); err != nil {
		t.Fatalf("read while halted: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	if halted, _ = d.Halted(); halted {
		t.Fatal("still halted after Start")
	}
}

func TestControlRegister(t *testing.T) {
	d, rtc, _ := newDevice(t)
	want := ds1307.NewControl(false, true, ds1307.Rate1Hz)
	if err := d.WriteControl(want); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadControl()
	if err != nil || got != want || rtc.Control() != want {
		t.Fatalf("control %#x (device %#x) err=%v", byte(got), byte(rtc.Control()), err)
	}
}

func TestRAM(t *testing.T) {
	d, rtc, _ := newDevice(t)
	p := make([]byte, ds1307.RAMSize)
	for i := range p {
		p[i] = byte(i * 3)
	}
	if err := d.WriteRAM(0, p); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rtc.RAM(), p) {
		t.Fatalf("ram % x", rtc.RAM())
	}
	got := make([]byte, 20)
	if err := d.ReadRAM(30, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, p[30:50]) {
		t.Fatalf("read % x want % x", got, p[30:50])
	}
	if err := d.WriteRAM(50, make([]byte, 7)); !errors.Is(err, ds1307.ErrRAMRange) {
		t.Fatalf("overflow err=%v", err)
	}
}

func TestWriteRejectsInvalid(t *testing.T) {
	d, _, sim := newDevice(t)
	before := sim.Starts()
	if err := d.WriteTime(ds1307.Reading{Hour: 24}); !errors.Is(err, ds1307.ErrInvalidTime) {
		t.Fatalf("err=%v", err)
	}
	if err := d.WriteDate(ds1307.Reading{Weekday: 1, Day: 31, Month: 4}); !errors.Is(err, ds1307.ErrInvalidDate) {
		t.Fatalf("err=%v", err)
	}
	if sim.Starts() != before {
		t.Fatal("invalid values reached the bus")
	}
}

func TestAbsentDevice(t *testing.T) {
	d, _, sim := newDevice(t)
	sim.NACKAddress(ds1307.Address, 2)
	if _, err := d.Read(); !errors.Is(err, twi.ErrAddrNACK) {
		t.Fatalf("err=%v", err)
	}
}
