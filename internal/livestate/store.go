package livestate

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"backend-vantrack/internal/tracking"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	locationKeyPrefix = "vantrack:location:"
	locationChannel   = "vantrack:locations:broadcast"
)

// Store holds the last known VehicleLocation per vehicle id. Writes are
// ordered by UpdatedAt, not arrival order: an older snapshot never overwrites
// a newer one. Each vehicle has its own record lock, so a write for one
// vehicle never blocks reads or writes for another.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	lmu       sync.RWMutex
	listeners []func(tracking.VehicleLocation)

	redis  *redis.Client
	origin string
}

type record struct {
	mu  sync.Mutex
	loc tracking.VehicleLocation
	set bool
}

type envelope struct {
	Origin   string                   `json:"origin"`
	Location tracking.VehicleLocation `json:"location"`
}

func NewStore(redisClient *redis.Client) *Store {
	s := &Store{
		records: map[string]*record{},
		redis:   redisClient,
		origin:  uuid.NewString(),
	}

	if redisClient != nil {
		s.loadExisting()
		go s.subscribeRedis()
	}
	return s
}

// OnWrite registers a listener invoked for every accepted write. Register
// listeners before the store starts receiving writes.
func (s *Store) OnWrite(fn func(tracking.VehicleLocation)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Write stores the snapshot unless it is older than the current record for
// that vehicle. Stale writes are dropped silently; that is what protects a
// fresh position fix from a delayed heartbeat.
func (s *Store) Write(ctx context.Context, loc tracking.VehicleLocation) error {
	return s.write(ctx, loc, true)
}

func (s *Store) write(ctx context.Context, loc tracking.VehicleLocation, local bool) error {
	rec := s.recordFor(loc.VehicleID)

	rec.mu.Lock()
	if rec.set && loc.UpdatedAt.Before(rec.loc.UpdatedAt) {
		rec.mu.Unlock()
		return nil
	}
	rec.loc = loc
	rec.set = true
	rec.mu.Unlock()

	var persistErr error
	if s.redis != nil && local {
		payload, _ := json.Marshal(loc)
		if err := s.redis.Set(ctx, locationKeyPrefix+loc.VehicleID, payload, 0).Err(); err != nil {
			log.Printf("redis persist error: %v", err)
			persistErr = err
		}
		env, _ := json.Marshal(envelope{Origin: s.origin, Location: loc})
		if err := s.redis.Publish(ctx, locationChannel, env).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}

	s.notify(loc)
	return persistErr
}

func (s *Store) ReadOne(vehicleID string) (tracking.VehicleLocation, bool) {
	s.mu.RLock()
	rec := s.records[vehicleID]
	s.mu.RUnlock()
	if rec == nil {
		return tracking.VehicleLocation{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.loc, rec.set
}

func (s *Store) ReadAll() []tracking.VehicleLocation {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	locations := make([]tracking.VehicleLocation, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.set {
			locations = append(locations, rec.loc)
		}
		rec.mu.Unlock()
	}
	return locations
}

func (s *Store) recordFor(vehicleID string) *record {
	s.mu.RLock()
	rec := s.records[vehicleID]
	s.mu.RUnlock()
	if rec != nil {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec = s.records[vehicleID]; rec == nil {
		rec = &record{}
		s.records[vehicleID] = rec
	}
	return rec
}

func (s *Store) notify(loc tracking.VehicleLocation) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	for _, fn := range s.listeners {
		fn(loc)
	}
}

// loadExisting rehydrates last known records after a restart.
func (s *Store) loadExisting() {
	ctx := context.Background()
	iter := s.redis.Scan(ctx, 0, locationKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		payload, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			log.Printf("redis load error for %s: %v", iter.Val(), err)
			continue
		}
		var loc tracking.VehicleLocation
		if err := json.Unmarshal(payload, &loc); err != nil {
			log.Printf("redis decode error for %s: %v", iter.Val(), err)
			continue
		}
		s.records[loc.VehicleID] = &record{loc: loc, set: true}
	}
	if err := iter.Err(); err != nil {
		log.Printf("redis scan error: %v", err)
	}
}

// subscribeRedis applies writes made by other instances. Remote snapshots run
// through the same stale-write guard and are not republished.
func (s *Store) subscribeRedis() {
	ctx := context.Background()
	pubsub := s.redis.Subscribe(ctx, locationChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("broadcast decode error: %v", err)
			continue
		}
		if env.Origin == s.origin {
			continue
		}
		_ = s.write(ctx, env.Location, false)
	}
}
