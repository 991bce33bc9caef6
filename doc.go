// Package pisa implements an asynchronous, typed bridge between a host process (the driver) and
// an external evaluator process (the engine) that runs code in a dynamically-typed functional
// language and stores intermediate results in a remote object store.
//
// The engine identifies every stored value by a monotonically increasing integer id. The driver
// never sees those ids directly: it manipulates remote values through [Handle], a phantom-typed
// future that resolves to an [ObjectId] once the engine has replied. A [Converter] describes, for
// a single driver-side Go type, both the engine-side code fragments needed to wrap/unwrap that
// type and the Go-side logic to store and retrieve it.
//
// Launching the engine process, and the identity of the language it evaluates, are both outside
// this package's scope: callers supply the two byte streams (for example the stdin/stdout pipes
// of an *os/exec.Cmd) and, on the engine side, an [Evaluator] implementation.
package pisa
