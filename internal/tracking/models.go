package tracking

import "time"

type ArrivalStatus string

const (
	StatusEnRoute  ArrivalStatus = "en_route"
	StatusArriving ArrivalStatus = "arriving"
	StatusArrived  ArrivalStatus = "arrived"
)

// ProximityThresholdMeters is the distance below which a vehicle counts as
// arriving at its target stop.
const ProximityThresholdMeters = 100.0

// Sentinel coordinates for "position unknown". Deliberately out of range so
// consumers can never mistake them for a real fix at (0,0).
const (
	UnknownLat = 91.0
	UnknownLng = 181.0
)

// VehicleLocation is the last known public state of one vehicle, keyed by
// VehicleID. UpdatedAt is monotonically non-decreasing per vehicle.
type VehicleLocation struct {
	VehicleID     string        `json:"vehicle_id"`
	DriverID      string        `json:"driver_id,omitempty"`
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	SpeedMps      float64       `json:"speed_mps"`
	RouteID       string        `json:"route_id,omitempty"`
	NextStopID    string        `json:"next_stop_id,omitempty"`
	NextStopName  string        `json:"next_stop_name,omitempty"`
	ArrivalStatus ArrivalStatus `json:"arrival_status,omitempty"`
	HasFix        bool          `json:"has_fix"`
	IsOnline      bool          `json:"is_online"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Sample is one raw position report from the vehicle sensor.
type Sample struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	SpeedMps float64   `json:"speed_mps"`
	At       time.Time `json:"timestamp"`
}

// IsLive applies the combined liveness rule: a record counts as online only if
// it says so and is fresh enough. Every observer must use this same rule.
func IsLive(loc VehicleLocation, staleAfter time.Duration, now time.Time) bool {
	return loc.IsOnline && now.Sub(loc.UpdatedAt) <= staleAfter
}
