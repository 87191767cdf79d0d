// Package alerts delivers geofence violation notifications to the external
// notification service, decoupled from position processing.
package alerts

import "time"

// Alert is one geofence violation notification. It carries everything the
// notification service needs to persist the event and send an SMS.
type Alert struct {
	ID             string    `json:"id"`
	Classification string    `json:"classification"`
	VehicleID      int64     `json:"vehicle_id"`
	Plate          string    `json:"plate"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurred_at"`
}
