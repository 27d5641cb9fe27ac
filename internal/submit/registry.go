package submit

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
)

// Registry tracks live submission controllers by id so the HTTP layer can
// route follow-up calls (answers, profile saves, retries) to the right flow.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Controller)}
}

// Create allocates a controller under a fresh id.
func (r *Registry) Create(svc Service, opts ControllerOptions) *Controller {
	id := newID()
	c := NewController(id, svc, opts)
	r.mu.Lock()
	r.byID[id] = c
	r.mu.Unlock()
	return c
}

func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	return c, ok
}

// Snapshots returns every live controller's state, ordered by id for stable
// output.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.byID))
	for _, c := range r.byID {
		controllers = append(controllers, c)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(b[:])
}
