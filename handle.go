package pisa

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/GoAethereal/cancel"
)

// handleState is the heap object a Handle[A] points to. Splitting it out of the generic Handle
// type gives runtime.SetFinalizer something concrete to attach to — Go cannot finalize a
// parameterized struct value directly in every case, but it can finalize a plain pointer.
type handleState struct {
	t        *Transport
	s        *slot
	disposed atomic.Bool
}

func newHandleState(t *Transport, s *slot) *handleState {
	hs := &handleState{t: t, s: s}
	runtime.SetFinalizer(hs, finalizeHandleState)
	return hs
}

func finalizeHandleState(hs *handleState) {
	hs.dispose()
}

// dispose schedules the handle's id for removal exactly once. If the id never resolved (the
// producing request failed or was cancelled), nothing is scheduled — matching §4.4's disposal
// contract. It runs the wait on a background goroutine so Release/the finalizer never blocks.
func (hs *handleState) dispose() {
	if !hs.disposed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(hs, nil)
	go func() {
		data, err := hs.s.wait(context.Background(), hs.t)
		if err != nil {
			return
		}
		if obj, ok := data.(DObject); ok {
			hs.t.scheduleRemove(ObjectId(obj))
		}
	}()
}

// Handle[A] is a phantom-typed, driver-side reference to a value living in the engine's object
// store. A is never instantiated — it only documents, and lets the type checker enforce, what
// shape the id is expected to carry. When A is a function type (func(D) R or one of the tuple-
// argument function types declared in compile.go), the same Handle value already *is* the
// function view: applying it is exactly Apply(ctx, handle, argument) in compile.go, with no
// separate "as function" step, since the phantom parameter carries that information for free.
//
// Two Handle values may share an id (aliasing is allowed, §3). Copies of a Handle share one
// handleState, and the first Release on any of them schedules the id for removal; no count of
// aliases is kept, so the remaining copies still resolve their id but the engine may already have
// removed the object. Handles built separately over the same id (UnsafeHandleFromID) each schedule
// their own removal, and the second Remove of an id surfaces as EngineError.
type Handle[A any] struct {
	state *handleState
}

func newHandle[A any](t *Transport, s *slot) Handle[A] {
	return Handle[A]{state: newHandleState(t, s)}
}

// UnsafeHandleFromID wraps a known, already-live id as a Handle[A] without going through a
// Converter. It is the library's one unchecked constructor (§4.4, §9): nothing validates that the
// object stored under id actually has shape A. Prefer Converter.Store, CompileValue or
// CompileFunction, which can only ever produce a Handle[A] whose id was put there by code that
// constructed an A in the first place.
func UnsafeHandleFromID[A any](t *Transport, id ObjectId) Handle[A] {
	s := newSlot()
	s.resolve(DObject(id), nil)
	return newHandle[A](t, s)
}

// ID returns the handle's resolved object id, blocking until the producing request completes or
// ctx is cancelled.
func (h Handle[A]) ID(ctx cancel.Context) (ObjectId, error) {
	data, err := h.state.s.wait(ctx, h.state.t)
	if err != nil {
		return 0, err
	}
	obj, ok := data.(DObject)
	if !ok {
		return 0, newProtocolError("handle resolved to non-object Data %T", data)
	}
	return ObjectId(obj), nil
}

// Release enqueues the handle's id for removal once it resolves successfully. It is safe to call
// more than once and safe to call on a handle whose id never resolved; in the latter case nothing
// is scheduled, per §4.4. Callers are not required to call Release — a forgotten handle is still
// reclaimed via the finalizer backstop described on handleState.dispose — but relying on the
// garbage collector to run a finalizer promptly is poor practice, so idiomatic use is `defer
// h.Release()` wherever a handle's scope is well defined.
func (h Handle[A]) Release() {
	h.state.dispose()
}

// transport returns the Transport this handle belongs to, for converters and compile.go to issue
// further requests (e.g. Apply) against the same connection.
func (h Handle[A]) transport() *Transport {
	return h.state.t
}

func (h Handle[A]) slot() *slot {
	return h.state.s
}
