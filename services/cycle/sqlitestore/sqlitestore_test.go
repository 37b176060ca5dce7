//go:build !(rp2040 || rp2350 || avr)

package sqlitestore

import (
	"path/filepath"
	"testing"
	"time"

	"growctl-go/services/cycle"
	"growctl-go/types"
)

func open(t *testing.T, keep int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chamber.db"), keep)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyLoadIsInactive(t *testing.T) {
	s := open(t, 0)
	r, err := s.Load()
	if err != nil || r.Active {
		t.Fatalf("Load = %+v, %v", r, err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	s := open(t, 0)
	want := cycle.Record{Active: true, Day: 14, Month: 6, Year: 24, DaysElapsed: 3, Checkpoint: 9}
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}
	want.DaysElapsed = 4
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil || got != want {
		t.Fatalf("Load = %+v, %v; want %+v", got, err, want)
	}
}

func TestManagerOverSQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chamber.db")
	s, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	m := cycle.New(s)
	if err := m.Start(types.ClockValue{Year: 24, Month: 6, Day: 14, Hour: 9}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	r, err := cycle.New(s2).Restore()
	if err != nil || !r.Active || r.Day != 14 || r.Checkpoint != 9 {
		t.Fatalf("Restore = %+v, %v", r, err)
	}
}

func TestSamplesTrimmed(t *testing.T) {
	s := open(t, 3)
	base := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.Append(Sample{
			TS:        base.Add(time.Duration(i) * time.Minute),
			DeciC:     int16(270 + i),
			DeciRH:    880,
			Actuators: types.ActuatorValue{Fan: i%2 == 0},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Count()
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	got, err := s.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].DeciC != 274 || got[2].DeciC != 272 {
		t.Fatalf("Recent = %+v", got)
	}
	if !got[0].Actuators.Fan || got[1].Actuators.Fan {
		t.Fatalf("actuator flags lost: %+v", got)
	}
	if !got[0].TS.Equal(base.Add(4 * time.Minute)) {
		t.Fatalf("ts = %v", got[0].TS)
	}
}
