//go:build !(rp2040 || rp2350 || avr)

// Package sqlitestore persists the cycle record and a rolling history of
// chamber samples in SQLite.
package sqlitestore

import (
	"database/sql"
	"errors"
	"time"

	"growctl-go/errcode"
	"growctl-go/services/cycle"
	"growctl-go/types"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultKeep bounds the samples table.
const DefaultKeep = 7 * 24 * 60

type Store struct {
	db   *sql.DB
	keep int
}

// Sample is one row of history.
type Sample struct {
	TS        time.Time
	DeciC     int16
	DeciRH    uint16
	Actuators types.ActuatorValue
}

// Open creates the tables if needed. keep <= 0 selects DefaultKeep.
func Open(dsn string, keep int) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errcode.Wrap(errcode.Storage, "sqlitestore.open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errcode.Wrap(errcode.Storage, "sqlitestore.open", err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycle (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			active INTEGER NOT NULL,
			day INTEGER NOT NULL,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			days_elapsed INTEGER NOT NULL,
			checkpoint INTEGER NOT NULL
		)
	`)
	if err == nil {
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				ts_ms INTEGER NOT NULL,
				deci_c INTEGER NOT NULL,
				deci_rh INTEGER NOT NULL,
				heater INTEGER NOT NULL,
				fogger INTEGER NOT NULL,
				fan INTEGER NOT NULL,
				light INTEGER NOT NULL
			)
		`)
	}
	if err != nil {
		db.Close()
		return nil, errcode.Wrap(errcode.Storage, "sqlitestore.schema", err)
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Store{db: db, keep: keep}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load implements cycle.Store.
func (s *Store) Load() (cycle.Record, error) {
	var active, day, month, year, elapsed, cp int
	err := s.db.QueryRow(`SELECT active, day, month, year, days_elapsed, checkpoint FROM cycle WHERE id = 1`).
		Scan(&active, &day, &month, &year, &elapsed, &cp)
	if errors.Is(err, sql.ErrNoRows) {
		return cycle.Record{}, nil
	}
	if err != nil {
		return cycle.Record{}, errcode.Wrap(errcode.Storage, "sqlitestore.load", err)
	}
	var r cycle.Record
	b := []byte{byte(active), byte(day), byte(month), byte(year), byte(elapsed), byte(cp)}
	if err := r.UnmarshalBinary(b); err != nil {
		return cycle.Record{}, err
	}
	return r, nil
}

// Save implements cycle.Store.
func (s *Store) Save(r cycle.Record) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO cycle (id, active, day, month, year, days_elapsed, checkpoint)
		VALUES (1, ?, ?, ?, ?, ?, ?)
	`, boolInt(r.Active), r.Day, r.Month, r.Year, r.DaysElapsed, r.Checkpoint)
	return errcode.Wrap(errcode.Storage, "sqlitestore.save", err)
}

// Append adds a sample and trims the table to the newest keep rows.
func (s *Store) Append(sm Sample) error {
	a := sm.Actuators
	_, err := s.db.Exec(`
		INSERT INTO samples (ts_ms, deci_c, deci_rh, heater, fogger, fan, light)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sm.TS.UnixMilli(), sm.DeciC, sm.DeciRH, boolInt(a.Heater), boolInt(a.Fogger), boolInt(a.Fan), boolInt(a.Light))
	if err != nil {
		return errcode.Wrap(errcode.Storage, "sqlitestore.append", err)
	}
	_, err = s.db.Exec(`DELETE FROM samples WHERE id <= (SELECT MAX(id) FROM samples) - ?`, s.keep)
	return errcode.Wrap(errcode.Storage, "sqlitestore.trim", err)
}

// Record adapts Append to the chamber's history hook.
func (s *Store) Record(ts time.Time, env types.EnvValue, act types.ActuatorValue) error {
	return s.Append(Sample{TS: ts, DeciC: env.DeciC, DeciRH: env.DeciRH, Actuators: act})
}

// Recent returns up to n samples, newest first.
func (s *Store) Recent(n int) ([]Sample, error) {
	rows, err := s.db.Query(`
		SELECT ts_ms, deci_c, deci_rh, heater, fogger, fan, light
		FROM samples ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, errcode.Wrap(errcode.Storage, "sqlitestore.recent", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			ts                       int64
			c, rh                    int
			heater, fogger, fan, lit int
		)
		if err := rows.Scan(&ts, &c, &rh, &heater, &fogger, &fan, &lit); err != nil {
			return nil, errcode.Wrap(errcode.Storage, "sqlitestore.recent", err)
		}
		out = append(out, Sample{
			TS:     time.UnixMilli(ts),
			DeciC:  int16(c),
			DeciRH: uint16(rh),
			Actuators: types.ActuatorValue{
				Heater: heater == 1,
				Fogger: fogger == 1,
				Fan:    fan == 1,
				Light:  lit == 1,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errcode.Wrap(errcode.Storage, "sqlitestore.recent", err)
	}
	return out, nil
}

// Count returns the number of stored samples.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, errcode.Wrap(errcode.Storage, "sqlitestore.count", err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
