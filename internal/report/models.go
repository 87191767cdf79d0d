package report

import "time"

// TrialDistance is the per-trial line item of a kilometers report.
type TrialDistance struct {
	TrialID    int64     `json:"trial_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Kilometers float64   `json:"kilometers"`
}

// KilometersReport aggregates the distance a vehicle covered during its
// finished trials inside a date range.
type KilometersReport struct {
	VehicleID       int64           `json:"vehicle_id"`
	Plate           string          `json:"plate"`
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	TotalKilometers float64         `json:"total_kilometers"`
	Trials          []TrialDistance `json:"trials"`
}
