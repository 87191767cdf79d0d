package alerts

import (
	"context"
	"log/slog"
)

// LogPublisher writes alerts to the log instead of a broker. It keeps the
// dispatch pipeline intact when no brokers are configured, such as in local
// development.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher builds a publisher backed by the given logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the alert.
func (p *LogPublisher) Publish(ctx context.Context, alert Alert) error {
	p.logger.WarnContext(ctx, "geofence alert",
		"alert_id", alert.ID,
		"vehicle_id", alert.VehicleID,
		"plate", alert.Plate,
		"classification", alert.Classification,
		"latitude", alert.Latitude,
		"longitude", alert.Longitude,
	)
	return nil
}
