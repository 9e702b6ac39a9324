package core

import (
	"sort"
	"sync"
)

// Entry is a point-in-time copy of one registered connection.
type Entry struct {
	ID string
	// Gen changes every time the connection is (re-)registered.
	Gen   uint64
	State ClientState
	Sink  Sink
}

type registration struct {
	seq   uint64
	gen   uint64
	state *ClientState
	sink  Sink
}

// Registry maps connection ids to their ClientState.
// The mutex only ever guards map bookkeeping.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registration
	seq     uint64
	gen     uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register inserts or replaces the state for connID and reports whether
// the registry was empty beforehand. A nil sink keeps the sink of an
// existing registration, which is how a live connection re-authenticates.
func (r *Registry) Register(connID, token string, accountID *int64, sink Sink) (gen uint64, wasEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasEmpty = len(r.entries) == 0
	r.gen++

	if existing, ok := r.entries[connID]; ok {
		existing.gen = r.gen
		existing.state = newClientState(token, accountID)
		if sink != nil {
			existing.sink = sink
		}
		return r.gen, wasEmpty
	}

	r.seq++
	r.entries[connID] = &registration{
		seq:   r.seq,
		gen:   r.gen,
		state: newClientState(token, accountID),
		sink:  sink,
	}
	return r.gen, wasEmpty
}

// Unregister removes the connection. It reports whether it was present.
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[connID]; !ok {
		return false
	}
	delete(r.entries, connID)
	return true
}

// Get returns a copy of the connection's state, or a fresh empty state
// for a connection that was never registered.
func (r *Registry) Get(connID string) ClientState {
	entry, ok := r.Lookup(connID)
	if !ok {
		return newClientState("", nil).Clone()
	}
	return entry.State
}

// Lookup returns a copy of the connection's entry.
func (r *Registry) Lookup(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[connID]
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: connID, Gen: reg.gen, State: reg.state.Clone(), Sink: reg.sink}, true
}

// Snapshot returns copies of every entry in registration order.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	type ordered struct {
		seq   uint64
		entry Entry
	}
	items := make([]ordered, 0, len(r.entries))
	for id, reg := range r.entries {
		items = append(items, ordered{
			seq:   reg.seq,
			entry: Entry{ID: id, Gen: reg.gen, State: reg.state.Clone(), Sink: reg.sink},
		})
	}
	r.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// Update applies fn to the live state if the connection is still registered
// under gen. It reports whether fn ran. fn must not block.
func (r *Registry) Update(connID string, gen uint64, fn func(*ClientState)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[connID]
	if !ok || reg.gen != gen {
		return false
	}
	fn(reg.state)
	return true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
