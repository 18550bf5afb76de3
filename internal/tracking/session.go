package tracking

import (
	"sync"
	"time"

	"backend-vantrack/internal/fleet"
	"backend-vantrack/internal/shared/geo"

	"github.com/google/uuid"
)

// Session is the per-vehicle arrival state machine. All state transitions go
// through its mutex so a manual advance can never interleave with a position
// sample into an inconsistent (index, status) pair.
type Session struct {
	mu        sync.Mutex
	id        string
	vehicleID string
	driverID  string
	routeID   string
	stops     []fleet.Stop
	stopIndex int
	status    ArrivalStatus
	active    bool
	fix       *Sample
}

func newSession(vehicle fleet.Vehicle, route fleet.Route, driverID string) *Session {
	return &Session{
		id:        uuid.NewString(),
		vehicleID: vehicle.ID,
		driverID:  driverID,
		routeID:   route.ID,
		stops:     route.Stops,
		status:    StatusEnRoute,
		active:    true,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) StopIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopIndex
}

func (s *Session) Status() ArrivalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Observe feeds one position sample through the state machine and returns the
// snapshot to publish. The status re-evaluates fully on every sample, so a
// vehicle moving away from its target stop flips back to en_route. Samples
// stamped older than the current fix are discarded.
func (s *Session) Observe(sample Sample) (VehicleLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return VehicleLocation{}, false
	}

	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	// A sample delivered late must not rewind the fix: the next heartbeat
	// would republish it under a fresh timestamp, past the store's guard.
	if s.fix != nil && sample.At.Before(s.fix.At) {
		return VehicleLocation{}, false
	}
	s.fix = &sample

	if s.stopIndex < len(s.stops) {
		stop := s.stops[s.stopIndex]
		d := geo.DistanceMeters(sample.Lat, sample.Lng, stop.Lat, stop.Lng)
		if d < ProximityThresholdMeters {
			s.status = StatusArriving
		} else {
			s.status = StatusEnRoute
		}
	}

	loc := s.snapshotLocked(sample.At)
	loc.Lat = sample.Lat
	loc.Lng = sample.Lng
	loc.SpeedMps = sample.SpeedMps
	loc.HasFix = true
	return loc, true
}

// Heartbeat re-emits the last known state with a fresh timestamp. It never
// regresses status or stop index; speed is reported as zero.
func (s *Session) Heartbeat(now time.Time) (VehicleLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return VehicleLocation{}, false
	}
	return s.snapshotLocked(now), true
}

// Advance moves the session to the next stop. Advancing past the last stop
// ends the session and returns the terminal offline snapshot.
func (s *Session) Advance(now time.Time) (loc VehicleLocation, ended bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return VehicleLocation{}, false, false
	}

	if s.stopIndex < len(s.stops)-1 {
		s.stopIndex++
		s.status = StatusEnRoute
		return s.snapshotLocked(now), false, true
	}
	return s.endLocked(now), true, true
}

// MarkArrived is the manual driver confirmation; proximity alone never
// produces this status.
func (s *Session) MarkArrived(now time.Time) (VehicleLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return VehicleLocation{}, false
	}
	s.status = StatusArrived
	return s.snapshotLocked(now), true
}

// End deactivates the session and returns the terminal offline snapshot.
func (s *Session) End(now time.Time) (VehicleLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return VehicleLocation{}, false
	}
	return s.endLocked(now), true
}

func (s *Session) endLocked(now time.Time) VehicleLocation {
	s.active = false
	s.stopIndex = len(s.stops)
	s.status = ""
	s.fix = nil
	return VehicleLocation{
		VehicleID: s.vehicleID,
		DriverID:  s.driverID,
		IsOnline:  false,
		UpdatedAt: now,
	}
}

func (s *Session) snapshotLocked(at time.Time) VehicleLocation {
	loc := VehicleLocation{
		VehicleID:     s.vehicleID,
		DriverID:      s.driverID,
		RouteID:       s.routeID,
		ArrivalStatus: s.status,
		IsOnline:      true,
		UpdatedAt:     at,
		Lat:           UnknownLat,
		Lng:           UnknownLng,
	}
	if s.fix != nil {
		loc.Lat = s.fix.Lat
		loc.Lng = s.fix.Lng
		loc.HasFix = true
	}
	if s.stopIndex < len(s.stops) {
		loc.NextStopID = s.stops[s.stopIndex].ID
		loc.NextStopName = s.stops[s.stopIndex].Name
	}
	return loc
}
