package types

// ClockValue is a canonical 24-hour wall-clock reading with a two-digit year.
type ClockValue struct {
	Year    uint8 `json:"year"` // 0..99
	Month   uint8 `json:"month"`
	Day     uint8 `json:"day"`
	Weekday uint8 `json:"weekday,omitempty"` // 1..7, 0 when unknown
	Hour    uint8 `json:"hour"`
	Minute  uint8 `json:"minute"`
	Second  uint8 `json:"second"`
}

// MinuteOfDay returns minutes since midnight (0..1439).
func (c ClockValue) MinuteOfDay() int { return int(c.Hour)*60 + int(c.Minute) }
