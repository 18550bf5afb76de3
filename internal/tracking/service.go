package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"backend-vantrack/internal/fleet"
)

var (
	ErrVehicleUnassigned = errors.New("vehicle has no assigned route")
	ErrEmptyRoute        = errors.New("assigned route has no stops")
	ErrSessionActive     = errors.New("session already active for vehicle")
)

const defaultHeartbeatInterval = 5 * time.Second

// Directory is the read-only routing collaborator.
type Directory interface {
	GetVehicle(ctx context.Context, vehicleID string) (fleet.Vehicle, error)
	GetRoute(ctx context.Context, routeID string) (fleet.Route, error)
}

// Service owns at most one active tracking session per vehicle id.
type Service struct {
	mu        sync.Mutex
	reporters map[string]*Reporter
	directory Directory
	store     LocationStore
	interval  time.Duration
}

func NewService(directory Directory, store LocationStore, heartbeatInterval time.Duration) *Service {
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	return &Service{
		reporters: map[string]*Reporter{},
		directory: directory,
		store:     store,
		interval:  heartbeatInterval,
	}
}

// StartSession begins tracking a vehicle along its assigned route and
// publishes an immediate en_route record for the first stop.
func (s *Service) StartSession(ctx context.Context, vehicleID, driverID string) (VehicleLocation, error) {
	vehicle, err := s.directory.GetVehicle(ctx, vehicleID)
	if err != nil {
		return VehicleLocation{}, err
	}
	if vehicle.RouteID == "" {
		return VehicleLocation{}, ErrVehicleUnassigned
	}

	route, err := s.directory.GetRoute(ctx, vehicle.RouteID)
	if err != nil {
		return VehicleLocation{}, err
	}
	if len(route.Stops) == 0 {
		return VehicleLocation{}, ErrEmptyRoute
	}

	session := newSession(vehicle, route, driverID)
	reporter := newReporter(session, s.store, s.interval)

	s.mu.Lock()
	if _, exists := s.reporters[vehicleID]; exists {
		s.mu.Unlock()
		return VehicleLocation{}, ErrSessionActive
	}
	s.reporters[vehicleID] = reporter
	s.mu.Unlock()

	reporter.Start(context.Background())

	loc, _ := session.Heartbeat(time.Now())
	if err := s.store.Write(ctx, loc); err != nil {
		log.Printf("initial write for %s: %v", vehicleID, err)
	}
	return loc, nil
}

// ReportPosition feeds one sensor sample into the vehicle's session. Samples
// for vehicles with no active session are discarded.
func (s *Service) ReportPosition(ctx context.Context, vehicleID string, sample Sample) (VehicleLocation, bool, error) {
	reporter := s.reporter(vehicleID)
	if reporter == nil {
		return VehicleLocation{}, false, nil
	}
	return reporter.Observe(ctx, sample)
}

// ReportSensorError records a degraded sensor; the session stays alive on
// heartbeats using the last known fix.
func (s *Service) ReportSensorError(vehicleID string, sensorErr error) {
	log.Printf("position sensor error for %s: %v", vehicleID, sensorErr)
}

// Advance moves the session to its next stop; at the last stop it ends the
// session instead. Returns false when no session is active (a no-op).
func (s *Service) Advance(ctx context.Context, vehicleID string) (VehicleLocation, bool, error) {
	reporter := s.reporter(vehicleID)
	if reporter == nil {
		return VehicleLocation{}, false, nil
	}

	loc, ended, ok := reporter.session.Advance(time.Now())
	if !ok {
		return VehicleLocation{}, false, nil
	}
	if ended {
		terminal, err := s.teardown(ctx, vehicleID, reporter, loc)
		return terminal, true, err
	}
	return loc, true, s.store.Write(ctx, loc)
}

// MarkArrived is the manual arrival confirmation for the current stop.
func (s *Service) MarkArrived(ctx context.Context, vehicleID string) (VehicleLocation, bool, error) {
	reporter := s.reporter(vehicleID)
	if reporter == nil {
		return VehicleLocation{}, false, nil
	}
	loc, ok := reporter.session.MarkArrived(time.Now())
	if !ok {
		return VehicleLocation{}, false, nil
	}
	return loc, true, s.store.Write(ctx, loc)
}

// EndSession stops tracking and publishes the terminal offline record.
func (s *Service) EndSession(ctx context.Context, vehicleID string) (VehicleLocation, bool, error) {
	reporter := s.reporter(vehicleID)
	if reporter == nil {
		return VehicleLocation{}, false, nil
	}
	loc, ok := reporter.session.End(time.Now())
	if !ok {
		return VehicleLocation{}, false, nil
	}
	terminal, err := s.teardown(ctx, vehicleID, reporter, loc)
	return terminal, true, err
}

// ActiveSession reports whether a vehicle currently has a live session.
func (s *Service) ActiveSession(vehicleID string) bool {
	reporter := s.reporter(vehicleID)
	return reporter != nil && reporter.session.Active()
}

func (s *Service) reporter(vehicleID string) *Reporter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reporters[vehicleID]
}

// teardown stops the heartbeat, writes the terminal record, and frees the
// vehicle id for a future session. The session is already inactive here, so
// a heartbeat that fired in between produces no write.
func (s *Service) teardown(ctx context.Context, vehicleID string, reporter *Reporter, terminal VehicleLocation) (VehicleLocation, error) {
	reporter.Stop()

	s.mu.Lock()
	if s.reporters[vehicleID] == reporter {
		delete(s.reporters, vehicleID)
	}
	s.mu.Unlock()

	// The heartbeat has exited, so stamping here guarantees the terminal
	// record is the newest write for the vehicle even when ending raced a
	// tick that sampled its clock first.
	terminal.UpdatedAt = time.Now()
	return terminal, s.store.Write(ctx, terminal)
}
