package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"supermcp/internal/config"
	"supermcp/internal/credentials"
	"supermcp/internal/mcpclient"
	"supermcp/internal/oauthprovider"
	"supermcp/pkg/logging"
)

// DefaultIdleSweepInterval is how often the reaper scans for idle stdio
// clients to close.
const DefaultIdleSweepInterval = 60 * time.Second

// DefaultIdleThreshold is how long a stdio client may sit unused before the
// reaper closes it, when the caller does not override it.
const DefaultIdleThreshold = 300 * time.Second

// Registry owns every package's descriptor, its (possibly absent) client
// instance, and the bookkeeping needed to connect, reconnect, and reap them
// safely under concurrent use.
type Registry struct {
	mu           sync.Mutex
	order        []string
	packages     map[string]*config.PackageDescriptor
	clients      map[string]mcpclient.Client
	lastActivity map[string]time.Time
	skipped      []config.SkippedPackage

	connectGroup singleflight.Group

	store       *credentials.Store
	redirectURI string
	configRoots []string

	idleThreshold time.Duration
	reaperStop    chan struct{}
	reaperDone    chan struct{}
}

// New builds a registry from an already-loaded configuration. idleThreshold
// of 0 disables the idle reaper entirely.
func New(merged *config.MergedConfig, configRoots []string, store *credentials.Store, redirectURI string, idleThreshold time.Duration) *Registry {
	r := &Registry{
		packages:      make(map[string]*config.PackageDescriptor, len(merged.Packages)),
		clients:       make(map[string]mcpclient.Client),
		lastActivity:  make(map[string]time.Time),
		skipped:       append([]config.SkippedPackage{}, merged.Skipped...),
		store:         store,
		redirectURI:   redirectURI,
		configRoots:   configRoots,
		idleThreshold: idleThreshold,
	}
	for _, pkg := range merged.Packages {
		r.order = append(r.order, pkg.ID)
		r.packages[pkg.ID] = pkg
	}
	return r
}

// Packages returns the package descriptors in merged-config order.
func (r *Registry) Packages() []*config.PackageDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*config.PackageDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.packages[id])
	}
	return out
}

// Skipped returns the packages dropped at load time.
func (r *Registry) Skipped() []config.SkippedPackage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]config.SkippedPackage{}, r.skipped...)
}

// GetClient returns a healthy client for id, connecting it if necessary.
// Concurrent callers for the same id that arrive while no client exists
// share exactly one connect attempt. An HTTP connect failure that looks
// like an authentication problem does not surface as an error here: the
// (unconnected) client is still returned so a subsequent HealthCheck can
// report needs_auth, keeping authentication an explicit user action.
func (r *Registry) GetClient(ctx context.Context, id string) (mcpclient.Client, error) {
	r.mu.Lock()
	desc, ok := r.packages[id]
	if !ok {
		r.mu.Unlock()
		return nil, &PackageNotFoundError{ID: id}
	}
	existing, hasExisting := r.clients[id]
	r.mu.Unlock()

	if hasExisting {
		if existing.HealthCheck(ctx) == mcpclient.HealthOK {
			r.touchActivity(desc)
			return existing, nil
		}
		r.discard(id, existing, ctx)
	}

	v, err, _ := r.connectGroup.Do(id, func() (interface{}, error) {
		return r.connectNew(ctx, desc)
	})
	if err != nil {
		return nil, err
	}
	return v.(mcpclient.Client), nil
}

func (r *Registry) connectNew(ctx context.Context, desc *config.PackageDescriptor) (mcpclient.Client, error) {
	client, err := mcpclient.NewClientForPackage(desc, r.store, r.redirectURI)
	if err != nil {
		return nil, err
	}

	if connErr := client.Connect(ctx); connErr != nil {
		if !isAuthLikeError(connErr) {
			return nil, connErr
		}
		logging.Info("registry", "package %q needs authentication: %v", desc.ID, connErr)
	}

	r.mu.Lock()
	r.clients[desc.ID] = client
	r.mu.Unlock()
	r.touchActivity(desc)
	return client, nil
}

func isAuthLikeError(err error) bool {
	var authRequired *oauthprovider.AuthRequiredError
	var unauthorized *oauthprovider.UnauthorizedError
	var invalidToken *oauthprovider.InvalidTokenError
	return errors.As(err, &authRequired) || errors.As(err, &unauthorized) || errors.As(err, &invalidToken)
}

func (r *Registry) touchActivity(desc *config.PackageDescriptor) {
	if desc.Transport != config.TransportStdio {
		return
	}
	r.mu.Lock()
	r.lastActivity[desc.ID] = time.Now()
	r.mu.Unlock()
}

func (r *Registry) discard(id string, client mcpclient.Client, ctx context.Context) {
	r.mu.Lock()
	delete(r.clients, id)
	delete(r.lastActivity, id)
	r.mu.Unlock()
	if err := client.Close(ctx); err != nil {
		logging.Warn("registry", "closing unhealthy client for %q: %v", id, err)
	}
}

// RestartPackage awaits any in-flight connect for id, closes the existing
// client, drops its activity record, and re-normalizes the package's
// descriptor from the raw configuration (picking up environment-variable
// changes since the last load). If the package no longer validates, it is
// removed from the registry and an explanatory error is returned.
func (r *Registry) RestartPackage(ctx context.Context, id string) (*config.PackageDescriptor, error) {
	// Join any connect currently in flight for this id so we never race a
	// fresh install against a connect that started under the old descriptor.
	r.connectGroup.Do(id, func() (interface{}, error) { return nil, nil })

	r.mu.Lock()
	existing, hasExisting := r.clients[id]
	delete(r.clients, id)
	delete(r.lastActivity, id)
	r.mu.Unlock()

	if hasExisting {
		if err := existing.Close(ctx); err != nil {
			logging.Warn("registry", "closing %q for restart: %v", id, err)
		}
	}

	merged, err := config.Load(r.configRoots)
	if err != nil {
		return nil, err
	}

	refreshed := merged.PackageByID(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if refreshed == nil {
		delete(r.packages, id)
		r.order = removeID(r.order, id)
		reason := "package no longer present in configuration"
		for _, s := range merged.Skipped {
			if s.ID == id {
				reason = s.Reason
				break
			}
		}
		return nil, &PackageNotFoundError{ID: id + ": " + reason}
	}

	r.packages[id] = refreshed
	return refreshed, nil
}

func removeID(order []string, id string) []string {
	out := make([]string, 0, len(order))
	for _, existing := range order {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// CloseAll stops the reaper (if running) and closes every connected client.
func (r *Registry) CloseAll(ctx context.Context) {
	r.StopReaper()

	r.mu.Lock()
	clients := make(map[string]mcpclient.Client, len(r.clients))
	for id, c := range r.clients {
		clients[id] = c
	}
	r.clients = make(map[string]mcpclient.Client)
	r.lastActivity = make(map[string]time.Time)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, c := range clients {
		wg.Add(1)
		go func(id string, c mcpclient.Client) {
			defer wg.Done()
			if err := c.Close(ctx); err != nil {
				logging.Warn("registry", "closing %q during shutdown: %v", id, err)
			}
		}(id, c)
	}
	wg.Wait()
}
