package gpioirq

import (
	"context"
	"testing"
	"time"

	"growctl-go/services/hal"
)

func TestDebounceAndEdges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(8, 8)
	w.Start(ctx)

	pin := hal.NewFakePin(5)
	unreg, err := w.RegisterInput("menu", pin, hal.EdgeBoth, 10*time.Millisecond, false)
	if err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}
	defer unreg()

	pin.Set(true) // rising
	select {
	case ev := <-w.Events():
		if ev.Name != "menu" || !ev.Level || ev.Edge != hal.EdgeRising {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for rising event")
	}

	// Inside the debounce window.
	pin.Set(false)
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event during debounce: %+v", ev)
	case <-time.After(5 * time.Millisecond):
	}

	time.Sleep(12 * time.Millisecond)

	// Back to the accepted level: no edge is reported.
	pin.Set(true)
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for unchanged level: %+v", ev)
	case <-time.After(15 * time.Millisecond):
	}

	pin.Set(false)
	select {
	case ev := <-w.Events():
		if ev.Level || ev.Edge != hal.EdgeFalling {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event after debounce")
	}
}

func TestInvert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(8, 8)
	w.Start(ctx)

	// Active-low button: idle high.
	pin := hal.NewFakePin(7)
	_ = pin.ConfigureInput(hal.PullUp)
	unreg, err := w.RegisterInput("light", pin, hal.EdgeFalling, 0, true)
	if err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}
	defer unreg()

	pin.Set(false) // pressed
	select {
	case ev := <-w.Events():
		if !ev.Level || ev.Edge != hal.EdgeFalling {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for press")
	}
}

func TestUnregisterStopsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(8, 8)
	w.Start(ctx)

	pin := hal.NewFakePin(3)
	unreg, err := w.RegisterInput("sqw", pin, hal.EdgeRising, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	unreg()
	pin.Set(true)
	select {
	case ev := <-w.Events():
		t.Fatalf("event after unregister: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-w.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("worker did not stop")
	}
}
