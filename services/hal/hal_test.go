//go:build !(rp2040 || rp2350 || avr)

package hal

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"growctl-go/errcode"
)

func TestOutputActiveLow(t *testing.T) {
	pin := NewFakePin(4)
	o, err := NewOutput("heater", pin, true)
	if err != nil {
		t.Fatal(err)
	}
	if !pin.IsOutput() || !pin.Get() {
		t.Fatalf("active-low output should start high (off)")
	}
	o.Set(true)
	if pin.Get() || !o.On() {
		t.Fatalf("on should drive low")
	}
	o.Set(false)
	if !pin.Get() || o.On() {
		t.Fatalf("off should drive high")
	}
	if o.Name() != "heater" {
		t.Fatalf("name = %q", o.Name())
	}
}

func TestOutputCountsEveryWrite(t *testing.T) {
	o, _ := NewOutput("fan", NewFakePin(5), false)
	for i := 0; i < 3; i++ {
		o.Set(true)
	}
	if o.Writes() != 3 {
		t.Fatalf("writes = %d, want 3", o.Writes())
	}
}

func TestOpenDrain(t *testing.T) {
	pin := NewFakePin(2)
	l := OpenDrain{Pin: pin, Pull: PullUp}
	l.Drive(false)
	if !pin.IsOutput() || l.Get() {
		t.Fatalf("drive low failed")
	}
	l.Release()
	if pin.IsOutput() || !l.Get() {
		t.Fatalf("released line should float high")
	}
}

func TestFakePinIRQ(t *testing.T) {
	pin := NewFakePin(9)
	var n int
	_ = pin.SetIRQ(EdgeRising, func() { n++ })
	pin.Set(true)
	pin.Set(false)
	pin.Set(true)
	if n != 2 {
		t.Fatalf("rising IRQs = %d, want 2", n)
	}
	_ = pin.ClearIRQ()
	pin.Set(false)
	pin.Set(true)
	if n != 2 {
		t.Fatalf("IRQ fired after clear")
	}
}

func TestAsIRQ(t *testing.T) {
	f := &HostPinFactory{}
	p, _ := f.ByNumber(1)
	if _, err := AsIRQ(p); err != nil {
		t.Fatalf("fake pin should support IRQ: %v", err)
	}
	if f.Fake(1) != p.(*FakePin) {
		t.Fatalf("factory should return a stable pin")
	}
	var plain struct{ GPIOPin }
	if _, err := AsIRQ(plain); !errors.Is(err, ErrNoIRQ) || errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("err = %v", err)
	}
}

func TestStreamPort(t *testing.T) {
	var out strings.Builder
	p := NewStreamPort(strings.NewReader("status\r\n"), &out)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []byte
	buf := make([]byte, 3)
	for {
		n, err := p.RecvSomeContext(ctx, buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if string(got) != "status\r\n" {
		t.Fatalf("got %q", got)
	}
	_, _ = p.Write([]byte("ok"))
	if out.String() != "ok" {
		t.Fatalf("out = %q", out.String())
	}
}
