package registry

import (
	"context"
	"time"

	"supermcp/pkg/logging"
)

// StartReaper launches the periodic idle sweep. It is a no-op (but still
// safe to call StopReaper afterward) when the registry's idle threshold is
// 0, matching the spec's "0 disables" convention.
func (r *Registry) StartReaper() {
	if r.idleThreshold <= 0 {
		return
	}
	r.mu.Lock()
	if r.reaperStop != nil {
		r.mu.Unlock()
		return
	}
	r.reaperStop = make(chan struct{})
	r.reaperDone = make(chan struct{})
	stop := r.reaperStop
	done := r.reaperDone
	r.mu.Unlock()

	go r.reaperLoop(stop, done)
}

// StopReaper halts the periodic sweep and waits for any in-progress sweep
// to finish. Safe to call more than once or when the reaper was never
// started.
func (r *Registry) StopReaper() {
	r.mu.Lock()
	stop := r.reaperStop
	done := r.reaperDone
	r.reaperStop = nil
	r.reaperDone = nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (r *Registry) reaperLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(DefaultIdleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep closes every stdio client idle beyond the threshold that has no
// pending requests. HTTP clients are never tracked in lastActivity (see
// touchActivity) and so are never candidates here.
func (r *Registry) sweep() {
	now := time.Now()

	r.mu.Lock()
	var candidates []string
	for id, last := range r.lastActivity {
		if now.Sub(last) >= r.idleThreshold {
			candidates = append(candidates, id)
		}
	}
	r.mu.Unlock()

	for _, id := range candidates {
		r.reapOne(id)
	}
}

func (r *Registry) reapOne(id string) {
	r.mu.Lock()
	client, ok := r.clients[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	last, hasLast := r.lastActivity[id]
	if !hasLast || time.Since(last) < r.idleThreshold || client.HasPendingRequests() {
		r.mu.Unlock()
		return
	}
	delete(r.clients, id)
	delete(r.lastActivity, id)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Close(ctx); err != nil {
		logging.Warn("registry", "idle reaper closing %q: %v", id, err)
	} else {
		logging.Debug("registry", "idle reaper closed package %q", id)
	}
}
