// Package cycle tracks whether a grow cycle is running, when it started and
// how many days it has run, persisting every change through a Store.
package cycle

import (
	"growctl-go/types"
	"growctl-go/x/logx"
)

// Event reports what a tick's clock reading crossed.
type Event struct {
	HourCrossed bool // the hour moved forward by one since the last tick
	DayRolled   bool // 23 -> 0
}

// Manager owns the current Record. It is not safe for concurrent use.
type Manager struct {
	store    Store
	rec      Record
	lastHour int // -1 until the first Observe
}

func New(store Store) *Manager {
	return &Manager{store: store, rec: Record{Checkpoint: NoCheckpoint}, lastHour: -1}
}

// Restore loads the persisted record. A failed or corrupt load leaves the
// cycle inactive and returns the error for logging.
func (m *Manager) Restore() (Record, error) {
	r, err := m.store.Load()
	if err != nil {
		m.rec = Record{Checkpoint: NoCheckpoint}
		return m.rec, err
	}
	if !r.Active {
		r.Checkpoint = NoCheckpoint
	}
	m.rec = r
	return r, nil
}

func (m *Manager) Active() bool   { return m.rec.Active }
func (m *Manager) Record() Record { return m.rec }

// Start begins a cycle dated now. The record is kept in memory even when
// the store fails.
func (m *Manager) Start(now types.ClockValue) error {
	m.rec = Record{
		Active:     true,
		Day:        now.Day,
		Month:      now.Month,
		Year:       now.Year,
		Checkpoint: now.Hour,
	}
	return m.save()
}

// Stop clears the record.
func (m *Manager) Stop() error {
	m.rec = Record{Checkpoint: NoCheckpoint}
	return m.save()
}

// Toggle starts or stops and reports whether a cycle is now active.
func (m *Manager) Toggle(now types.ClockValue) (bool, error) {
	if m.rec.Active {
		return false, m.Stop()
	}
	return true, m.Start(now)
}

// Observe feeds one clock reading. The elapsed-day counter advances on the
// 23 -> 0 transition while a cycle is active.
func (m *Manager) Observe(now types.ClockValue) (Event, error) {
	var ev Event
	h := int(now.Hour)
	if m.lastHour >= 0 && h != m.lastHour {
		ev.HourCrossed = h == (m.lastHour+1)%24
		ev.DayRolled = m.lastHour == 23 && h == 0
	}
	m.lastHour = h

	if !ev.DayRolled || !m.rec.Active {
		return ev, nil
	}
	if m.rec.DaysElapsed < 0xFF {
		m.rec.DaysElapsed++
	}
	logx.Info("cycle", "day rollover", "days", m.rec.DaysElapsed)
	return ev, m.save()
}

// NeedsLog reports whether hour has not been logged yet.
func (m *Manager) NeedsLog(hour uint8) bool {
	return m.rec.Active && m.rec.Checkpoint != hour
}

// Checkpoint records hour as logged.
func (m *Manager) Checkpoint(hour uint8) error {
	if !m.rec.Active || m.rec.Checkpoint == hour {
		return nil
	}
	m.rec.Checkpoint = hour
	return m.save()
}

func (m *Manager) save() error {
	return m.store.Save(m.rec)
}
