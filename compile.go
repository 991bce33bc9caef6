package pisa

import (
	"fmt"

	"github.com/GoAethereal/cancel"
)

// CompileValue submits engineCode verbatim, wrapped by conv.ValueToExn, and returns a handle to
// the resulting object (§4.6). It is the same mechanism storeLiteral uses for primitive
// converters, exposed directly for callers who want to hand the engine an arbitrary expression
// rather than a Go value — the "square via compiled function" and "arbitrary engine code" use
// cases described in §2 and §8.
func CompileValue[A any](ctx cancel.Context, t *Transport, conv *Converter[A], engineCode string) (Handle[A], error) {
	return storeLiteral(ctx, t, conv, engineCode)
}

// CompileFunction submits the body of an engine function of one argument and returns a handle
// whose phantom type records both the argument and result converter (§4.6). The compiled function
// is wrapped so it can be driven by Apply: the wrapper takes a DObject argument, resolves it with
// project_obj, applies the supplied engineCode to that value, wraps the outcome through
// resultConv.ValueToExn and stores it with store_obj, returning the new DObject. argConv.ExnToValue
// is not applied to the argument; argConv contributes only its MLType to the returned handle's
// converter. Like CompileValue, engineCode's actual syntax is never interpreted by this package; it
// is embedded in the wrapper unmodified.
func CompileFunction[D, R any](ctx cancel.Context, t *Transport, argConv *Converter[D], resultConv *Converter[R], engineCode string) (Handle[func(D) R], error) {
	wrapped := fmt.Sprintf("(fn (DObject x) => DObject (store_obj ((%s) ((%s) (project_obj x)))))",
		resultConv.ValueToExn, engineCode)
	return storeLiteral(ctx, t, &Converter[func(D) R]{MLType: fmt.Sprintf("%s -> %s", argConv.MLType, resultConv.MLType)}, wrapped)
}

// Apply applies the function referenced by fn to arg and resolves to a Handle over the result
// (§4.6). A compiled function's argument is delivered as DObject(id): the engine-side wrapper
// CompileFunction generated is responsible for projecting it back to the native type before
// running the user-supplied engine code, and for re-wrapping the outcome as a new stored object —
// so at the driver level Apply never needs argConv/resultConv itself, only the ids involved.
func Apply[D, R any](ctx cancel.Context, fn Handle[func(D) R], arg Handle[D]) (Handle[R], error) {
	var zero Handle[R]
	fnID, err := fn.ID(ctx)
	if err != nil {
		return zero, err
	}
	argID, err := arg.ID(ctx)
	if err != nil {
		return zero, err
	}
	t := fn.transport()
	s, err := t.ApplyRaw(ctx, fnID, DObject(argID))
	if err != nil {
		return zero, err
	}
	return newHandle[R](t, s), nil
}

// Apply2 applies a two-argument compiled function by packing the two argument ids into one
// engine-side pair with applyPacked (storeComposite over pairConstructCode) and applying fn to
// it; no TupleConverter2 is involved.
func Apply2[A, B, R any](ctx cancel.Context, fn Handle[func(Tuple2[A, B]) R], argA Handle[A], argB Handle[B]) (Handle[R], error) {
	return applyPacked[Tuple2[A, B], R](ctx, fn, argA, argB)
}

// Apply3 is Apply2 extended to three arguments.
func Apply3[A, B, C, R any](ctx cancel.Context, fn Handle[func(Tuple3[A, B, C]) R], argA Handle[A], argB Handle[B], argC Handle[C]) (Handle[R], error) {
	return applyPacked[Tuple3[A, B, C], R](ctx, fn, argA, argB, argC)
}

// applyPacked builds the DObject argument for an n-ary Apply by constructing a plain (unconverted)
// object-reference tuple engine-side: a fixed "pack" function taking a DList of object references
// and returning a single tuple object, mirroring storeComposite in tuple.go but without needing a
// TupleConverter instance, since the packed argument is consumed immediately by fn and never
// retrieved back into a Go value.
func applyPacked[T, R any](ctx cancel.Context, fn Handle[func(T) R], args ...interface{ ID(cancel.Context) (ObjectId, error) }) (Handle[R], error) {
	var zero Handle[R]
	fnID, err := fn.ID(ctx)
	if err != nil {
		return zero, err
	}
	t := fn.transport()
	ids, err := idsOf(ctx, args...)
	if err != nil {
		return zero, err
	}
	packed, err := storeComposite(ctx, t, pairConstructCode(labels(len(ids))...), ids)
	if err != nil {
		return zero, err
	}
	packedHandle := newHandle[T](t, packed)
	defer packedHandle.Release()
	packedID, err := packedHandle.ID(ctx)
	if err != nil {
		return zero, err
	}
	s, err := t.ApplyRaw(ctx, fnID, DObject(packedID))
	if err != nil {
		return zero, err
	}
	return newHandle[R](t, s), nil
}
