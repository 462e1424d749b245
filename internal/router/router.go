package router

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dbbouncer/pgconvey/internal/config"
)

// routerSnapshot is an immutable point-in-time view of the routing table.
// Stored in atomic.Value for lock-free reads on the hot path.
type routerSnapshot struct {
	routes map[string]config.RouteConfig
	paused map[string]bool
}

// Router resolves a startup message's declared database/options to one of
// the config's named routes. Resolve() and IsPaused() are lock-free via
// atomic.Value. Mutations serialize on a write mutex and swap in a new
// snapshot. Unlike a connection pool, a Router never owns a backend
// connection itself: it only decides which upstream a fresh Conveyor
// should dial.
type Router struct {
	snap atomic.Value // holds *routerSnapshot
	wmu  sync.Mutex   // serializes mutations (writes are rare)
}

// New creates a new Router populated from the given config.
func New(cfg *config.Config) *Router {
	snap := &routerSnapshot{
		routes: make(map[string]config.RouteConfig, len(cfg.Routes)),
		paused: make(map[string]bool),
	}
	for id, rc := range cfg.Routes {
		snap.routes[id] = rc
	}

	r := &Router{}
	r.snap.Store(snap)
	return r
}

// load returns the current immutable snapshot (lock-free).
func (r *Router) load() *routerSnapshot {
	return r.snap.Load().(*routerSnapshot)
}

// cloneSnap returns a mutable deep copy of the current snapshot.
// Must be called with wmu held.
func (r *Router) cloneSnap() *routerSnapshot {
	cur := r.load()
	newRoutes := make(map[string]config.RouteConfig, len(cur.routes))
	for id, rc := range cur.routes {
		newRoutes[id] = rc
	}
	newPaused := make(map[string]bool, len(cur.paused))
	for id, v := range cur.paused {
		newPaused[id] = v
	}
	return &routerSnapshot{
		routes: newRoutes,
		paused: newPaused,
	}
}

// Resolve looks up the RouteConfig for the given route name. Lock-free.
func (r *Router) Resolve(routeName string) (config.RouteConfig, error) {
	snap := r.load()
	rc, ok := snap.routes[routeName]
	if !ok {
		return config.RouteConfig{}, fmt.Errorf("unknown route: %q", routeName)
	}
	if snap.paused[routeName] {
		return config.RouteConfig{}, fmt.Errorf("route %q is paused", routeName)
	}
	return rc, nil
}

// PauseRoute stops new connections from being resolved to a route without
// removing it from the config-derived table. Returns false if not found.
func (r *Router) PauseRoute(routeName string) bool {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	if _, ok := cur.routes[routeName]; !ok {
		return false
	}

	s := r.cloneSnap()
	s.paused[routeName] = true
	r.snap.Store(s)
	return true
}

// ResumeRoute unpauses a route. Returns false if not found.
func (r *Router) ResumeRoute(routeName string) bool {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	if _, ok := cur.routes[routeName]; !ok {
		return false
	}

	s := r.cloneSnap()
	delete(s.paused, routeName)
	r.snap.Store(s)
	return true
}

// IsPaused returns whether a route is currently paused. Lock-free.
func (r *Router) IsPaused(routeName string) bool {
	return r.load().paused[routeName]
}

// ListRoutes returns all route names and their configs.
func (r *Router) ListRoutes() map[string]config.RouteConfig {
	snap := r.load()
	result := make(map[string]config.RouteConfig, len(snap.routes))
	for id, rc := range snap.routes {
		result[id] = rc
	}
	return result
}

// Reload replaces the entire routing table from a new config. Preserves
// paused state for routes that still exist in the new config.
func (r *Router) Reload(cfg *config.Config) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	newRoutes := make(map[string]config.RouteConfig, len(cfg.Routes))
	for id, rc := range cfg.Routes {
		newRoutes[id] = rc
	}

	newPaused := make(map[string]bool)
	for id, v := range cur.paused {
		if _, exists := newRoutes[id]; exists {
			newPaused[id] = v
		}
	}

	r.snap.Store(&routerSnapshot{
		routes: newRoutes,
		paused: newPaused,
	})
}

// ResolveFromStartupParams picks a route name from a Startup message's
// parameter list. A client selects a route the same way it would select a
// database: via the "database" startup parameter, falling back to "user"
// when database is absent (mirroring the convention most poolers use when
// the database name itself names the target).
func ResolveFromStartupParams(params [][2]string) (routeName string, ok bool) {
	var user string
	for _, kv := range params {
		switch kv[0] {
		case "database":
			if kv[1] != "" {
				return kv[1], true
			}
		case "user":
			user = kv[1]
		}
	}
	if user != "" {
		return user, true
	}
	return "", false
}

// ExtractRouteFromUsername parses an embedded route name out of a
// composite username such as "routename..appuser" or "routename__appuser",
// for deployments where the route must be encoded in the username instead
// of (or in addition to) the database parameter.
func ExtractRouteFromUsername(username string) (routeName, realUser string, ok bool) {
	if idx := strings.Index(username, ".."); idx > 0 {
		return username[:idx], username[idx+2:], true
	}
	if idx := strings.Index(username, "__"); idx > 0 {
		return username[:idx], username[idx+2:], true
	}
	return "", username, false
}
