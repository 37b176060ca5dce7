//go:build !(rp2040 || rp2350 || avr)

package mqttbridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"growctl-go/bus"
	"growctl-go/errcode"
	"growctl-go/types"
)

type fakeClient struct {
	mu       sync.Mutex
	retained map[string]string
	handler  func(string, []byte)
	lost     chan struct{}
	fail     error
}

func (f *fakeClient) Connect(context.Context) error { return f.fail }

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if retained {
		f.retained[topic] = string(payload)
	}
	return nil
}

func (f *fakeClient) Subscribe(_ string, _ byte, fn func(string, []byte)) error {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Lost() <-chan struct{} { return f.lost }
func (f *fakeClient) Disconnect()           {}

func (f *fakeClient) get(topic string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retained[topic]
}

func (f *fakeClient) deliver(topic, payload string) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(topic, []byte(payload))
	return true
}

type dialer struct {
	mu      sync.Mutex
	clients []*fakeClient
	fails   int
}

func (d *dialer) dial(types.MQTTConfig) Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeClient{retained: map[string]string{}, lost: make(chan struct{})}
	if d.fails > 0 {
		d.fails--
		c.fail = errcode.Timeout
	}
	d.clients = append(d.clients, c)
	return c
}

func (d *dialer) last() (*fakeClient, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil, 0
	}
	return d.clients[len(d.clients)-1], len(d.clients)
}

func useDialer(t *testing.T, d *dialer) {
	old := Dial
	Dial = d.dial
	t.Cleanup(func() { Dial = old })
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// fakeChamber answers chamber commands and records them.
func fakeChamber(ctx context.Context, conn *bus.Connection) <-chan *bus.Message {
	sub := conn.Subscribe(bus.T("chamber", "cmd", "+"))
	out := make(chan *bus.Message, 16)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-sub.Channel():
				out <- m
				conn.Reply(m, types.Reply{OK: true}, false)
			}
		}
	}()
	return out
}

func TestBridgeMirrorsStateAndForwardsCommands(t *testing.T) {
	d := &dialer{fails: 1}
	useDialer(t, d)

	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmds := fakeChamber(ctx, b.NewConnection("chamber"))

	conn.Publish(conn.NewMessage(bus.T("chamber", "state", "env"), types.EnvValue{DeciC: 271, DeciRH: 853}, true))
	conn.Publish(conn.NewMessage(bus.T("chamber", "state", "actuators"), types.ActuatorValue{Heater: true}, true))
	conn.Publish(conn.NewMessage(bus.T("chamber", "state", "cycle"), types.CycleValue{Active: true, DaysElapsed: 4}, true))
	conn.Publish(conn.NewMessage(topicConfig, types.MQTTConfig{Broker: "tcp://broker:1883", Prefix: "gc"}, true))

	go Start(ctx, b.NewConnection("mqtt"))

	// First dial fails; the retry connects.
	eventually(t, "status publish", func() bool {
		c, n := d.last()
		return n == 2 && c.get("gc/status/temperature") == "27.1"
	})
	c, _ := d.last()
	want := map[string]string{
		"gc/status/humidity":   "85.3",
		"gc/status/heater":     "1",
		"gc/status/humidifier": "0",
		"gc/status/elapsed":    "4",
	}
	for k, v := range want {
		if got := c.get(k); got != v {
			t.Errorf("%s = %q want %q", k, got, v)
		}
	}

	if !c.deliver("gc/set/temperature/min", "20") {
		t.Fatal("no subscription")
	}
	select {
	case m := <-cmds:
		p, ok := m.Payload.(types.SettingsPatch)
		if !ok || p.TempMin == nil || *p.TempMin != 20 || p.TempMax != nil {
			t.Fatalf("settings command %#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("settings command not forwarded")
	}

	c.deliver("gc/set/state", "1")
	select {
	case m := <-cmds:
		if p, _ := m.Payload.(types.CycleCmd); p.Action != types.CycleStart {
			t.Fatalf("cycle command %#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("cycle command not forwarded")
	}

	// A bad payload is dropped without a command.
	c.deliver("gc/set/humidity/max", "lots")
	select {
	case m := <-cmds:
		t.Fatalf("unexpected command %v", m.Topic)
	case <-time.After(50 * time.Millisecond):
	}

	// Connection loss redials and republishes everything.
	close(c.lost)
	eventually(t, "republish after loss", func() bool {
		c, n := d.last()
		return n == 3 && c.get("gc/status/elapsed") == "4"
	})
}

func TestBridgeIdleWithoutBroker(t *testing.T) {
	d := &dialer{}
	useDialer(t, d)

	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	conn.Publish(conn.NewMessage(topicConfig, types.MQTTConfig{}, true))
	sub := conn.Subscribe(topicState)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, b.NewConnection("mqtt"))

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if st, _ := m.Payload.(types.ServiceState); st.Status == "disabled" {
				if _, n := d.last(); n != 0 {
					t.Fatalf("dialled %d times", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("no disabled state")
		}
	}
}

func TestParseSet(t *testing.T) {
	cases := []struct {
		sub, payload string
		check        func(Command) bool
		code         errcode.Code
	}{
		{"state", "1", func(c Command) bool { return c.Cycle == types.CycleStart }, errcode.OK},
		{"state", "0", func(c Command) bool { return c.Cycle == types.CycleStop }, errcode.OK},
		{"light", "on", func(c Command) bool { return c.Light != nil && *c.Light }, errcode.OK},
		{"light", "0", func(c Command) bool { return c.Light != nil && !*c.Light }, errcode.OK},
		{"fan/period", " 30 ", func(c Command) bool { return *c.Settings.FanPeriodMin == 30 }, errcode.OK},
		{"fan/activetime", "5", func(c Command) bool { return *c.Settings.FanActiveMin == 5 }, errcode.OK},
		{"humidity/min", "x", nil, errcode.InvalidParams},
		{"reboot", "1", nil, errcode.Unsupported},
	}
	for _, tc := range cases {
		c, err := ParseSet(tc.sub, []byte(tc.payload))
		if got := errcode.Of(err); got != tc.code {
			t.Errorf("%s: code %q want %q", tc.sub, got, tc.code)
			continue
		}
		if tc.check != nil && !tc.check(c) {
			t.Errorf("%s=%q: %+v", tc.sub, tc.payload, c)
		}
	}
}

func TestEnvStatusNegative(t *testing.T) {
	got := EnvStatus(types.EnvValue{DeciC: -5, DeciRH: 1000})
	if got[StatusTemperature] != "-0.5" || got[StatusHumidity] != "100.0" {
		t.Fatalf("%v", got)
	}
}
