package stream

import (
	"encoding/json"
	"sync"
	"time"

	"backend-vantrack/internal/tracking"
)

// Source is where the hub reads the current full set of vehicle records.
type Source interface {
	ReadAll() []tracking.VehicleLocation
}

// Filter scopes a subscriber to the vehicles it cares about. The liveness
// rule is applied by the hub on top of the filter, identically for everyone.
type Filter func(tracking.VehicleLocation) bool

// FleetFilter matches every vehicle (operator view).
func FleetFilter() Filter {
	return func(tracking.VehicleLocation) bool { return true }
}

// VehicleFilter matches a single vehicle id (rider view).
func VehicleFilter(vehicleID string) Filter {
	return func(loc tracking.VehicleLocation) bool { return loc.VehicleID == vehicleID }
}

type Subscriber struct {
	Send   chan []byte
	filter Filter
}

// Hub fans accepted store writes out to subscribers. Each push carries the
// subscriber's filtered current full set, not a diff; observers reconcile
// idempotently. A slow subscriber only drops its own pushes.
type Hub struct {
	mu         sync.RWMutex
	subs       map[*Subscriber]struct{}
	source     Source
	staleAfter time.Duration
	now        func() time.Time
}

const defaultStaleAfter = 15 * time.Second

func NewHub(source Source, staleAfter time.Duration) *Hub {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Hub{
		subs:       map[*Subscriber]struct{}{},
		source:     source,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (h *Hub) Subscribe(filter Filter) *Subscriber {
	sub := &Subscriber{
		Send:   make(chan []byte, 16),
		filter: filter,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	return sub
}

// Cancel deregisters the subscriber. Safe to call more than once and safe
// concurrently with Notify: the write lock excludes in-flight pushes, so the
// channel is never closed mid-send.
func (h *Hub) Cancel(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.Send)
}

// Notify pushes the filtered current set to every subscriber whose filter
// matches the written snapshot. A subscriber watching vehicle V1 is never
// woken by a write to V2.
func (h *Hub) Notify(loc tracking.VehicleLocation) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.subs) == 0 {
		return
	}

	live := h.liveSet()
	for sub := range h.subs {
		if !sub.filter(loc) {
			continue
		}
		select {
		case sub.Send <- marshalSet(filterSet(live, sub.filter)):
		default:
		}
	}
}

// Snapshot returns the current filtered set, used as the first frame on a new
// subscription.
func (h *Hub) Snapshot(filter Filter) []byte {
	return marshalSet(filterSet(h.liveSet(), filter))
}

func (h *Hub) liveSet() []tracking.VehicleLocation {
	now := h.now()
	all := h.source.ReadAll()
	live := make([]tracking.VehicleLocation, 0, len(all))
	for _, loc := range all {
		if tracking.IsLive(loc, h.staleAfter, now) {
			live = append(live, loc)
		}
	}
	return live
}

func filterSet(locations []tracking.VehicleLocation, filter Filter) []tracking.VehicleLocation {
	out := make([]tracking.VehicleLocation, 0, len(locations))
	for _, loc := range locations {
		if filter(loc) {
			out = append(out, loc)
		}
	}
	return out
}

func marshalSet(locations []tracking.VehicleLocation) []byte {
	payload, _ := json.Marshal(locations)
	return payload
}
