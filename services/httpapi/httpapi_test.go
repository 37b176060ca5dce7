//go:build !(rp2040 || rp2350 || avr)

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"growctl-go/bus"
	"growctl-go/services/chamber"
	"growctl-go/types"
)

// stubChamber answers every command; settings with temp_min above 40 fail.
func stubChamber(t *testing.T) (chamber.Client, <-chan *bus.Message) {
	t.Helper()
	b := bus.NewBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	conn := b.NewConnection("chamber")
	sub := conn.Subscribe(bus.T("chamber", "cmd", "+"))
	seen := make(chan *bus.Message, 8)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-sub.Channel():
				seen <- m
				switch p := m.Payload.(type) {
				case nil:
					conn.Reply(m, types.StatusValue{Env: types.EnvValue{DeciC: 280}}, false)
				case types.SettingsPatch:
					if p.TempMin != nil && *p.TempMin > 40 {
						conn.Reply(m, types.Reply{Error: "config_invalid"}, false)
						continue
					}
					conn.Reply(m, types.Reply{OK: true}, false)
				default:
					conn.Reply(m, types.Reply{OK: true}, false)
				}
			}
		}
	}()
	return chamber.Client{Conn: b.NewConnection("http")}, seen
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	c, _ := stubChamber(t)
	rec := do(t, NewRouter(c), "GET", "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
}

func TestStatus(t *testing.T) {
	c, _ := stubChamber(t)
	rec := do(t, NewRouter(c), "GET", "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	var st types.StatusValue
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Env.DeciC != 280 {
		t.Fatalf("%+v", st)
	}
}

func TestCommands(t *testing.T) {
	c, seen := stubChamber(t)
	r := NewRouter(c)

	if rec := do(t, r, "POST", "/cycle/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("cycle: %d %s", rec.Code, rec.Body)
	}
	if p, _ := (<-seen).Payload.(types.CycleCmd); p.Action != types.CycleStart {
		t.Fatalf("cycle payload %+v", p)
	}

	if rec := do(t, r, "POST", "/light/on", ""); rec.Code != http.StatusOK {
		t.Fatalf("light: %d", rec.Code)
	}
	if p, _ := (<-seen).Payload.(types.LightCmd); !p.Enabled {
		t.Fatal("light not enabled")
	}

	if rec := do(t, r, "POST", "/settings", `{"hum_min": 80}`); rec.Code != http.StatusOK {
		t.Fatalf("settings: %d %s", rec.Code, rec.Body)
	}
	if p, _ := (<-seen).Payload.(types.SettingsPatch); p.HumMin == nil || *p.HumMin != 80 {
		t.Fatalf("settings payload %+v", p)
	}
}

func TestRejections(t *testing.T) {
	c, _ := stubChamber(t)
	r := NewRouter(c)
	cases := []struct {
		method, path, body string
		code               int
	}{
		{"GET", "/cycle/start", "", http.StatusMethodNotAllowed},
		{"POST", "/cycle/pause", "", http.StatusNotFound},
		{"POST", "/light/dim", "", http.StatusNotFound},
		{"POST", "/settings", `{"fan": 1}`, http.StatusBadRequest},
		{"POST", "/settings", `{"temp_min": 50}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if rec := do(t, r, tc.method, tc.path, tc.body); rec.Code != tc.code {
			t.Errorf("%s %s: %d want %d", tc.method, tc.path, rec.Code, tc.code)
		}
	}
}
