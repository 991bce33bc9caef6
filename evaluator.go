package pisa

// Evaluator is the engine's execution boundary: the thing that actually runs code in whatever
// dynamically-typed functional language the engine speaks. This package does not interpret engine
// code and has no opinion on that language's identity — Evaluator is the seam an embedder plugs a
// real theorem prover (or, in tests, a small deterministic fake) into. Engine.Serve calls it but
// never inspects the values it returns; those values are opaque engine-side data that only ever
// round-trip through EngineStore and back into Evaluator.Apply.
//
// Implementations are used from a single goroutine (the engine's dispatch loop) and need not be
// safe for concurrent use.
type Evaluator interface {
	// Eval executes code for its side effects. The result, if any, is discarded; EvalCode replies
	// with an empty list regardless of what Eval returns.
	Eval(code string) error

	// EvalToValue executes code and returns the resulting engine-side value, which the caller
	// (Engine.Serve) stores under a fresh ObjectId. code is expected to evaluate to a value of the
	// engine's universal exception type; Evaluator is responsible for enforcing that, the same way
	// a real theorem-prover's type checker would reject an ill-typed StoreExpr body.
	EvalToValue(code string) (any, error)


	// Apply applies fn — a value previously returned by EvalToValue — to arg, returning the
	// resulting Data. store is the same object table EvalToValue's results are kept in; compiled
	// functions generated by CompileFunction and the composite converters (tuple.go) are written
	// against the convention that store.Get resolves a DObject argument to the native value
	// project_obj would, and store.Put is how a result gets wrapped back into a fresh DObject the
	// way store_obj would. Engine.Serve does not itself walk arg or the result — that translation
	// between wire Data and native engine values is entirely Evaluator's responsibility, the same
	// way a real theorem prover's RPC shim would own it.
	Apply(fn any, arg Data, store *EngineStore) (Data, error)
}
