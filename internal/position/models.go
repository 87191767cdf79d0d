// Package position ingests GPS samples for vehicles on active trials and
// evaluates each one against the dealership's geofencing rules.
package position

import "time"

// Position is one immutable timestamped GPS sample. Every stored position
// belonged to a vehicle with an active trial at the moment it was recorded.
type Position struct {
	ID         int64     `json:"id"`
	VehicleID  int64     `json:"vehicle_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// Classification is the geofence verdict for one position.
type Classification string

const (
	// ClassificationNormal means the position violates no rule.
	ClassificationNormal Classification = "normal"
	// ClassificationOutOfRadius means the position is farther from the home
	// location than the allowed radius.
	ClassificationOutOfRadius Classification = "out_of_radius"
	// ClassificationInDangerZone means the position lies inside a danger zone.
	ClassificationInDangerZone Classification = "in_danger_zone"
)

// Violation reports whether the classification requires incident handling.
func (c Classification) Violation() bool { return c != ClassificationNormal }

// Result is what position processing returns to the caller.
type Result struct {
	PositionID     int64          `json:"position_id"`
	Classification Classification `json:"classification"`
	Message        string         `json:"message"`
}
