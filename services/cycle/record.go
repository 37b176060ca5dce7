package cycle

import (
	"growctl-go/errcode"
	"growctl-go/types"
)

// RecordSize is the persisted layout: active, day, month, year,
// elapsed days, checkpoint hour.
const RecordSize = 6

// NoCheckpoint marks a record with no log line written yet.
const NoCheckpoint = 0xFF

// Record is the grow cycle as it survives a power loss.
type Record struct {
	Active      bool
	Day         uint8
	Month       uint8
	Year        uint8 // two digits
	DaysElapsed uint8

	// Checkpoint is the hour of the last log line, or NoCheckpoint.
	Checkpoint uint8
}

var ErrCorrupt = &errcode.E{C: errcode.Storage, Op: "cycle.record", Msg: "corrupt record"}

func (r Record) MarshalBinary() ([]byte, error) {
	var b [RecordSize]byte
	if r.Active {
		b[0] = 1
	}
	b[1], b[2], b[3], b[4], b[5] = r.Day, r.Month, r.Year, r.DaysElapsed, r.Checkpoint
	return b[:], nil
}

func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize || b[0] > 1 {
		return ErrCorrupt
	}
	rec := Record{
		Active:      b[0] == 1,
		Day:         b[1],
		Month:       b[2],
		Year:        b[3],
		DaysElapsed: b[4],
		Checkpoint:  b[5],
	}
	if rec.Checkpoint != NoCheckpoint && rec.Checkpoint > 23 {
		return ErrCorrupt
	}
	if rec.Active && (rec.Day < 1 || rec.Day > 31 || rec.Month < 1 || rec.Month > 12 || rec.Year > 99) {
		return ErrCorrupt
	}
	*r = rec
	return nil
}

func (r Record) Value() types.CycleValue {
	return types.CycleValue{
		Active:      r.Active,
		StartDay:    r.Day,
		StartMonth:  r.Month,
		StartYear:   r.Year,
		DaysElapsed: r.DaysElapsed,
	}
}
