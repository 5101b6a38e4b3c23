package workspace

import (
	"log"
	"sync"
	"time"

	"backend-motorota/internal/stream"
)

// Registry creates workspaces on first use and keeps them per device.
type Registry struct {
	deps Deps

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, workspaces: map[string]*Workspace{}}
}

func (r *Registry) Get(deviceID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[deviceID]
	if !ok {
		w = newWorkspace(deviceID, r.deps)
		r.workspaces[deviceID] = w
	}
	w.touch()
	return w
}

// Lookup returns an existing workspace without creating one.
func (r *Registry) Lookup(deviceID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[deviceID]
	return w, ok
}

func (r *Registry) Snapshot(deviceID string) []stream.Event {
	return r.Get(deviceID).Snapshot()
}

// Sweep drops workspaces idle for longer than maxIdle. Persisted sessions
// survive and are restored on the next request.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Workspace
	for id, w := range r.workspaces {
		if w.idleSince().Before(cutoff) {
			stale = append(stale, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range stale {
		w.close()
	}
	if len(stale) > 0 {
		log.Printf("evicted %d idle workspaces", len(stale))
	}
	return len(stale)
}

func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = map[string]*Workspace{}
	r.mu.Unlock()

	for _, w := range all {
		w.close()
	}
}
