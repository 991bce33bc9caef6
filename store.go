package pisa

import "fmt"

// EngineStore is the engine-side mapping from ObjectId to an engine-side value. Only the engine
// loop mutates it; the driver observes it indirectly through commands. The engine processes
// commands on a single goroutine (§5 of the design), so no internal locking is required — the
// same discipline modbus.Server.handle relies on for its per-connection framer state.
type EngineStore struct {
	next   uint64
	values map[ObjectId]any
}

// NewEngineStore returns an empty store whose first issued id is 0.
func NewEngineStore() *EngineStore {
	return &EngineStore{values: make(map[ObjectId]any)}
}

// Put stores value under a freshly issued, strictly increasing id.
func (s *EngineStore) Put(value any) ObjectId {
	id := ObjectId(s.next)
	s.next++
	s.values[id] = value
	return id
}

// Get looks up the value stored under id. The bool result reports whether id is live.
func (s *EngineStore) Get(id ObjectId) (any, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Remove erases id from the store. Removing an id that is not live is reported by the caller as
// an EngineError (see Engine.handleRemove); Remove itself just reports whether id was live.
func (s *EngineStore) Remove(id ObjectId) bool {
	if _, ok := s.values[id]; !ok {
		return false
	}
	delete(s.values, id)
	return true
}

// describe renders a stored value for use in engine-error diagnostics (e.g. "Apply on a
// non-function object").
func describe(v any) string {
	return fmt.Sprintf("%T", v)
}
