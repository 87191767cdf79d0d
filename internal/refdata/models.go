// Package refdata is the read-only boundary to the dealership's reference
// data: vehicles, interested buyers and employees. The core never writes any
// of it; administration lives in a separate CRUD service.
package refdata

import "time"

// Vehicle identifies a car on the lot by its plate.
type Vehicle struct {
	ID      int64  `json:"id"`
	Plate   string `json:"plate"`
	ModelID int64  `json:"model_id"`
}

// Buyer is a prospective buyer. Eligibility for a trial depends on the
// license expiry and the restricted flag.
type Buyer struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	Restricted    bool      `json:"restricted"`
	LicenseExpiry time.Time `json:"license_expiry"`
}

// Employee supervises trials. Only existence matters to the core.
type Employee struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}
