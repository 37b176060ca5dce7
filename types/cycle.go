package types

// CycleValue is published retained on chamber/state/cycle.
type CycleValue struct {
	Active      bool  `json:"active"`
	StartDay    uint8 `json:"start_day"`
	StartMonth  uint8 `json:"start_month"`
	StartYear   uint8 `json:"start_year"`
	DaysElapsed uint8 `json:"days_elapsed"`
}
