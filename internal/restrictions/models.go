// Package restrictions mirrors the dealership's geofencing configuration,
// owned by an external service and cached here read-only.
package restrictions

// Location is a point in decimal degrees. JSON tags match the external
// restrictions service contract.
type Location struct {
	Latitude  float64 `json:"latitud"`
	Longitude float64 `json:"longitud"`
}

// Zone is a circular danger zone.
type Zone struct {
	ID           string   `json:"id_zona"`
	Name         string   `json:"nombre_zona"`
	Center       Location `json:"coordenadas"`
	RadiusMeters float64  `json:"radio_metros"`
}

// Restrictions is one immutable snapshot of the dealership rules: the home
// location with its allowed radius, plus zero or more danger zones.
type Restrictions struct {
	HomeLocation    Location `json:"ubicacion_agencia"`
	MaxRadiusMeters float64  `json:"radio_maximo_metros"`
	DangerZones     []Zone   `json:"zonas_peligrosas"`
}
