package pisa

import (
	"fmt"
	"strings"

	"github.com/GoAethereal/cancel"
)

// Tuple2 through Tuple7 are the driver-side shapes TupleConverter2..TupleConverter7 store and
// retrieve (§4.5's n = 2..7 tuple converters).
type (
	Tuple2[A, B any] struct {
		First  A
		Second B
	}
	Tuple3[A, B, C any] struct {
		First  A
		Second B
		Third  C
	}
	Tuple4[A, B, C, D any] struct {
		First  A
		Second B
		Third  C
		Fourth D
	}
	Tuple5[A, B, C, D, E any] struct {
		First  A
		Second B
		Third  C
		Fourth D
		Fifth  E
	}
	Tuple6[A, B, C, D, E, F any] struct {
		First  A
		Second B
		Third  C
		Fourth D
		Fifth  E
		Sixth  F
	}
	Tuple7[A, B, C, D, E, F, G any] struct {
		First   A
		Second  B
		Third   C
		Fourth  D
		Fifth   E
		Sixth   F
		Seventh G
	}
)

// storeComposite combines already-stored elements: it stores constructCode, a one-off engine
// function taking a DList of object references and returning the combined object, and applies it
// to ids. constructCode is never parsed here, only forwarded to StoreExpr.
func storeComposite(ctx cancel.Context, t *Transport, constructCode string, ids []ObjectId) (*slot, error) {
	fnSlot, err := t.StoreCode(ctx, constructCode)
	if err != nil {
		return nil, err
	}
	fnHandle := newHandle[any](t, fnSlot)
	defer fnHandle.Release()
	fnID, err := fnHandle.ID(ctx)
	if err != nil {
		return nil, err
	}
	arg := make(DList, len(ids))
	for i, id := range ids {
		arg[i] = DObject(id)
	}
	return t.ApplyRaw(ctx, fnID, arg)
}

// retrieveComposite applies a fresh one-off engine function disassembling the object at id into a
// DList of element object references, symmetric to storeComposite.
func retrieveComposite(ctx cancel.Context, t *Transport, id ObjectId, decomposeCode string, arity int) ([]ObjectId, error) {
	fnSlot, err := t.StoreCode(ctx, decomposeCode)
	if err != nil {
		return nil, err
	}
	fnHandle := newHandle[any](t, fnSlot)
	defer fnHandle.Release()
	fnID, err := fnHandle.ID(ctx)
	if err != nil {
		return nil, err
	}
	resultSlot, err := t.ApplyRaw(ctx, fnID, DObject(id))
	if err != nil {
		return nil, err
	}
	data, err := resultSlot.wait(ctx, t)
	if err != nil {
		return nil, err
	}
	list, ok := data.(DList)
	if !ok || len(list) != arity {
		return nil, newConverterError("tuple", "expected a %d-element DList, got %T", arity, data)
	}
	ids := make([]ObjectId, arity)
	for i, elem := range list {
		obj, ok := elem.(DObject)
		if !ok {
			return nil, newConverterError("tuple", "element %d: expected DObject, got %T", i, elem)
		}
		ids[i] = ObjectId(obj)
	}
	return ids, nil
}

// nestPairExpr builds the right-leaning E_Pair nest §4.5 mandates as a tuple's engine-side shape:
// E_Pair(project_obj a, E_Pair(project_obj b, project_obj c)) for labels [a, b, c], each leaf
// wrapped with project_obj since labels are object references, not bare exn values (consistent with
// ListConverter's "E_List (map project_obj xs)").
func nestPairExpr(labels []string) string {
	if len(labels) == 1 {
		return fmt.Sprintf("project_obj %s", labels[0])
	}
	return fmt.Sprintf("E_Pair (project_obj %s, %s)", labels[0], nestPairExpr(labels[1:]))
}

// nestPairPattern is nestPairExpr's inverse: the pattern that destructures a nested E_Pair back
// into its leaf bindings.
func nestPairPattern(labels []string) string {
	if len(labels) == 1 {
		return labels[0]
	}
	return fmt.Sprintf("E_Pair (%s, %s)", labels[0], nestPairPattern(labels[1:]))
}

func pairConstructCode(labels ...string) string {
	return fmt.Sprintf("(fn (DList [%s]) => %s)", strings.Join(labels, ", "), nestPairExpr(labels))
}

func pairDecomposeCode(arity int) string {
	ls := labels(arity)
	wrapped := make([]string, arity)
	for i, l := range ls {
		wrapped[i] = fmt.Sprintf("DObject (store_obj %s)", l)
	}
	return fmt.Sprintf("(fn (%s) => DList [%s])", nestPairPattern(ls), strings.Join(wrapped, ", "))
}

// TupleConverter2 builds a Converter for a pair of independently-converted elements. Store stores
// each element, then combines their ids with a single Apply; Retrieve is the mirror image,
// disassembling the pair into per-element ids which are then retrieved through ca/cb themselves —
// arbitrarily composite element converters work for free, not just primitives.
func TupleConverter2[A, B any](ca *Converter[A], cb *Converter[B]) *Converter[Tuple2[A, B]] {
	c := &Converter[Tuple2[A, B]]{MLType: fmt.Sprintf("(%s * %s)", ca.MLType, cb.MLType)}
	c.store = func(ctx cancel.Context, t *Transport, v Tuple2[A, B]) (Handle[Tuple2[A, B]], error) {
		var zero Handle[Tuple2[A, B]]
		ha, err := ca.Store(ctx, t, v.First)
		if err != nil {
			return zero, err
		}
		defer ha.Release()
		hb, err := cb.Store(ctx, t, v.Second)
		if err != nil {
			return zero, err
		}
		defer hb.Release()
		idA, err := ha.ID(ctx)
		if err != nil {
			return zero, err
		}
		idB, err := hb.ID(ctx)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode("a", "b"), []ObjectId{idA, idB})
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple2[A, B]](t, s), nil
	}
	c.retrieve = func(ctx cancel.Context, h Handle[Tuple2[A, B]]) (Tuple2[A, B], error) {
		var zero Tuple2[A, B]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(2), 2)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		return Tuple2[A, B]{First: a, Second: b}, nil
	}
	return c
}

// TupleConverter3 is TupleConverter2 extended to three independently-converted elements.
func TupleConverter3[A, B, C any](ca *Converter[A], cb *Converter[B], cc *Converter[C]) *Converter[Tuple3[A, B, C]] {
	conv := &Converter[Tuple3[A, B, C]]{MLType: fmt.Sprintf("(%s * %s * %s)", ca.MLType, cb.MLType, cc.MLType)}
	conv.store = func(ctx cancel.Context, t *Transport, v Tuple3[A, B, C]) (Handle[Tuple3[A, B, C]], error) {
		var zero Handle[Tuple3[A, B, C]]
		ids, release, err := storeElements3(ctx, t, ca, cb, cc, v)
		defer release()
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode("a", "b", "c"), ids)
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple3[A, B, C]](t, s), nil
	}
	conv.retrieve = func(ctx cancel.Context, h Handle[Tuple3[A, B, C]]) (Tuple3[A, B, C], error) {
		var zero Tuple3[A, B, C]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(3), 3)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		c, err := cc.Retrieve(ctx, UnsafeHandleFromID[C](t, ids[2]))
		if err != nil {
			return zero, err
		}
		return Tuple3[A, B, C]{First: a, Second: b, Third: c}, nil
	}
	return conv
}

func storeElements3[A, B, C any](ctx cancel.Context, t *Transport, ca *Converter[A], cb *Converter[B], cc *Converter[C], v Tuple3[A, B, C]) ([]ObjectId, func(), error) {
	var has []func()
	release := func() {
		for _, r := range has {
			r()
		}
	}
	ha, err := ca.Store(ctx, t, v.First)
	if err != nil {
		return nil, release, err
	}
	has = append(has, ha.Release)
	hb, err := cb.Store(ctx, t, v.Second)
	if err != nil {
		return nil, release, err
	}
	has = append(has, hb.Release)
	hc, err := cc.Store(ctx, t, v.Third)
	if err != nil {
		return nil, release, err
	}
	has = append(has, hc.Release)

	idA, err := ha.ID(ctx)
	if err != nil {
		return nil, release, err
	}
	idB, err := hb.ID(ctx)
	if err != nil {
		return nil, release, err
	}
	idC, err := hc.ID(ctx)
	if err != nil {
		return nil, release, err
	}
	return []ObjectId{idA, idB, idC}, release, nil
}

// ListConverter builds a Converter for []A: Store submits each element, then one engine-side
// E_List construction over the resulting ids; Retrieve is symmetric. The driver-observable length
// of v is fixed at Store time — the engine is never asked to grow or shrink a stored list in
// place (§4.5, §9).
func ListConverter[A any](ca *Converter[A]) *Converter[[]A] {
	c := &Converter[[]A]{MLType: fmt.Sprintf("%s list", ca.MLType)}
	c.store = func(ctx cancel.Context, t *Transport, v []A) (Handle[[]A], error) {
		var zero Handle[[]A]
		ids := make([]ObjectId, len(v))
		var release []func()
		defer func() {
			for _, r := range release {
				r()
			}
		}()
		for i, elem := range v {
			h, err := ca.Store(ctx, t, elem)
			if err != nil {
				return zero, err
			}
			release = append(release, h.Release)
			id, err := h.ID(ctx)
			if err != nil {
				return zero, err
			}
			ids[i] = id
		}
		s, err := storeComposite(ctx, t, "(fn (DList xs) => E_List (map project_obj xs))", ids)
		if err != nil {
			return zero, err
		}
		return newHandle[[]A](t, s), nil
	}
	c.retrieve = func(ctx cancel.Context, h Handle[[]A]) ([]A, error) {
		id, err := h.ID(ctx)
		if err != nil {
			return nil, err
		}
		t := h.transport()
		fnSlot, err := t.StoreCode(ctx, "(fn (E_List xs) => DList (map DObject (map store_obj xs)))")
		if err != nil {
			return nil, err
		}
		fnHandle := newHandle[any](t, fnSlot)
		defer fnHandle.Release()
		fnID, err := fnHandle.ID(ctx)
		if err != nil {
			return nil, err
		}
		resultSlot, err := t.ApplyRaw(ctx, fnID, DObject(id))
		if err != nil {
			return nil, err
		}
		data, err := resultSlot.wait(ctx, t)
		if err != nil {
			return nil, err
		}
		list, ok := data.(DList)
		if !ok {
			return nil, newConverterError("list", "expected DList, got %T", data)
		}
		out := make([]A, len(list))
		for i, elem := range list {
			obj, ok := elem.(DObject)
			if !ok {
				return nil, newConverterError("list", "element %d: expected DObject, got %T", i, elem)
			}
			v, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ObjectId(obj)))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return c
}

// Option is the driver-side shape OptionConverter moves: Some wraps a present value, !Some is
// None.
type Option[A any] struct {
	Some  bool
	Value A
}

// OptionConverter builds a Converter for Option[A], mapping None to the engine's E_Option NONE and
// Some v to E_Option (SOME v). Store stores None directly as E_Option NONE and builds Some from a
// one-element DList holding the stored value's DObject. Retrieve expects DInt 0 for None and the
// two-element DList [DInt 1, DObject v] for Some; it does not accept an empty or one-element DList.
func OptionConverter[A any](ca *Converter[A]) *Converter[Option[A]] {
	c := &Converter[Option[A]]{MLType: fmt.Sprintf("%s option", ca.MLType)}
	c.store = func(ctx cancel.Context, t *Transport, v Option[A]) (Handle[Option[A]], error) {
		var zero Handle[Option[A]]
		if !v.Some {
			s, err := t.StoreCode(ctx, "E_Option NONE")
			if err != nil {
				return zero, err
			}
			return newHandle[Option[A]](t, s), nil
		}
		h, err := ca.Store(ctx, t, v.Value)
		if err != nil {
			return zero, err
		}
		defer h.Release()
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, "(fn (DList [x]) => E_Option (SOME (project_obj x)))", []ObjectId{id})
		if err != nil {
			return zero, err
		}
		return newHandle[Option[A]](t, s), nil
	}
	c.retrieve = func(ctx cancel.Context, h Handle[Option[A]]) (Option[A], error) {
		var zero Option[A]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		fnSlot, err := t.StoreCode(ctx, "(fn (E_Option o) => (case o of NONE => DInt 0 | SOME v => DList [DInt 1, DObject (store_obj v)]))")
		if err != nil {
			return zero, err
		}
		fnHandle := newHandle[any](t, fnSlot)
		defer fnHandle.Release()
		fnID, err := fnHandle.ID(ctx)
		if err != nil {
			return zero, err
		}
		resultSlot, err := t.ApplyRaw(ctx, fnID, DObject(id))
		if err != nil {
			return zero, err
		}
		data, err := resultSlot.wait(ctx, t)
		if err != nil {
			return zero, err
		}
		switch d := data.(type) {
		case DInt:
			if d != 0 {
				return zero, newConverterError("option", "expected tag 0 for None, got %d", d)
			}
			return Option[A]{}, nil
		case DList:
			if len(d) != 2 {
				return zero, newConverterError("option", "expected 2-element DList for Some, got %d elements", len(d))
			}
			obj, ok := d[1].(DObject)
			if !ok {
				return zero, newConverterError("option", "expected DObject payload, got %T", d[1])
			}
			v, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ObjectId(obj)))
			if err != nil {
				return zero, err
			}
			return Option[A]{Some: true, Value: v}, nil
		default:
			return zero, newConverterError("option", "unexpected reply shape %T", data)
		}
	}
	return c
}
