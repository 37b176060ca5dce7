// Package datalog writes the per-cycle day log: a header with the active
// thresholds, then one "YY/MM/DD;light" line per logged hour.
package datalog

import (
	"io"

	"growctl-go/errcode"
	"growctl-go/services/control"
	"growctl-go/services/cycle"
	"growctl-go/types"
	"growctl-go/x/fmtx"
)

// File is an open log file.
type File interface {
	io.Writer
	Sync() error
	Close() error
}

// FS opens files for appending, creating them when missing.
type FS interface {
	OpenAppend(name string) (File, error)
}

// FileName is YYMMDD.dat for the cycle's start date.
func FileName(year, month, day uint8) string {
	return fmtx.Sprintf("%02d%02d%02d.dat", year, month, day)
}

// Writer owns at most one open file. Errors are returned for logging;
// callers keep running without a log.
type Writer struct {
	fs   FS
	f    File
	name string
}

func New(fs FS) *Writer { return &Writer{fs: fs} }

// Name of the open file, "" when closed.
func (w *Writer) Name() string { return w.name }

func (w *Writer) Open() bool { return w.f != nil }

// Begin opens the file for a cycle starting at start and writes the header.
func (w *Writer) Begin(start types.ClockValue, s control.Settings) error {
	if err := w.open(FileName(start.Year, start.Month, start.Day)); err != nil {
		return err
	}
	_, err := fmtx.Fprintf(w.f,
		"TEMPERATURE_MAX:%d;TEMPERATURE_MIN:%d;\n"+
			"HUMIDITY_MAX:%d;HUMIDITY_MIN:%d;\n"+
			"LIGHT_START_HOUR:%d;LIGHT_STOP_HOUR:%d\n"+
			"FRESH_AIR_FAN_ACTIVE_TIME:%d;FRESH_AIR_FAN_PERIOD:%d\n"+
			"YEAR/MONTH/DAY;LIGHTENABLED\n",
		s.TempMax, s.TempMin,
		s.HumMax, s.HumMin,
		s.LightStartHour, s.LightStopHour,
		s.FanActive, s.FanPeriod)
	return w.sync("datalog.header", err)
}

// Resume reopens the file of an active cycle after a restart.
func (w *Writer) Resume(r cycle.Record) error {
	if !r.Active {
		return nil
	}
	return w.open(FileName(r.Year, r.Month, r.Day))
}

// Append writes one record line. A closed writer is a no-op.
func (w *Writer) Append(now types.ClockValue, lightEnabled bool) error {
	if w.f == nil {
		return nil
	}
	l := 0
	if lightEnabled {
		l = 1
	}
	_, err := fmtx.Fprintf(w.f, "%02d/%02d/%02d;%d\r\n", now.Year, now.Month, now.Day, l)
	return w.sync("datalog.append", err)
}

// End closes the file.
func (w *Writer) End() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f, w.name = nil, ""
	return errcode.Wrap(errcode.Storage, "datalog.close", err)
}

func (w *Writer) open(name string) error {
	if w.fs == nil {
		return &errcode.E{C: errcode.Storage, Op: "datalog.open", Msg: "no storage"}
	}
	_ = w.End()
	f, err := w.fs.OpenAppend(name)
	if err != nil {
		return errcode.Wrap(errcode.Storage, "datalog.open", err)
	}
	w.f, w.name = f, name
	return nil
}

func (w *Writer) sync(op string, err error) error {
	if err == nil {
		err = w.f.Sync()
	}
	return errcode.Wrap(errcode.Storage, op, err)
}
