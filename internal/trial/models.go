// Package trial owns the test-drive lifecycle: creation with eligibility
// checks, the single Active -> Finalized transition, and the incident flag.
package trial

import "time"

// Trial binds one vehicle, one buyer and one employee for a bounded period.
// At most one trial per vehicle may be active (FinishedAt == nil) at a time.
type Trial struct {
	ID          int64      `json:"id"`
	VehicleID   int64      `json:"vehicle_id"`
	BuyerID     int64      `json:"buyer_id"`
	EmployeeID  int64      `json:"employee_id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Comments    string     `json:"comments,omitempty"`
	HasIncident bool       `json:"has_incident"`
}

// Active reports whether the trial is still running.
func (t *Trial) Active() bool { return t.FinishedAt == nil }
