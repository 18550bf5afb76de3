package tracking

import (
	"context"
	"log"
	"time"
)

// LocationStore is the last-value store the reporter publishes into. Writes
// bearing a timestamp older than the stored record are dropped by the store.
type LocationStore interface {
	Write(ctx context.Context, loc VehicleLocation) error
	ReadOne(vehicleID string) (VehicleLocation, bool)
	ReadAll() []VehicleLocation
}

// Reporter bridges one vehicle's position sensor and the live state store.
// The sample path and the heartbeat run independently; the store serializes
// their writes per vehicle.
type Reporter struct {
	session  *Session
	store    LocationStore
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func newReporter(session *Session, store LocationStore, interval time.Duration) *Reporter {
	return &Reporter{
		session:  session,
		store:    store,
		interval: interval,
	}
}

// Start launches the heartbeat. Heartbeats keep observers able to tell "idle"
// from "disconnected" even when no samples arrive.
func (r *Reporter) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.heartbeatLoop(ctx)
}

func (r *Reporter) heartbeatLoop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loc, ok := r.session.Heartbeat(time.Now())
			if !ok {
				return
			}
			if err := r.store.Write(ctx, loc); err != nil {
				log.Printf("heartbeat write for %s: %v", loc.VehicleID, err)
			}
		}
	}
}

// Observe feeds a sensor sample through the session and publishes the result.
func (r *Reporter) Observe(ctx context.Context, sample Sample) (VehicleLocation, bool, error) {
	loc, ok := r.session.Observe(sample)
	if !ok {
		return VehicleLocation{}, false, nil
	}
	return loc, true, r.store.Write(ctx, loc)
}

// Stop cancels the heartbeat and waits for it to exit, so no write can race
// past a terminal offline record.
func (r *Reporter) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
