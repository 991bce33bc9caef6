package pisa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GoAethereal/cancel"
)

// Converter[A] associates a driver-side Go type A with the engine-side code fragments and
// store/retrieve logic needed to move values of that type across the bridge (§4.5). MLType,
// ValueToExn and ExnToValue are plain engine-expression strings — this package never parses or
// executes them, it only ever hands them to Transport.StoreCode as the body of a StoreExpr
// command. A Converter's fragments must be referentially transparent: they must not capture
// mutable engine state.
type Converter[A any] struct {
	// MLType names the engine-side type A corresponds to. It is only composed into the MLType of
	// tuple, list, option and compiled-function converters; it is never sent to the engine.
	MLType string
	// ValueToExn is an engine expression for a function wrapping a native engine value of the
	// unwrapped type into the universal exception carrier.
	ValueToExn string
	// ExnToValue is an engine expression for the inverse projection; it must raise if applied to
	// an exception of the wrong shape.
	ExnToValue string

	store    func(ctx cancel.Context, t *Transport, value A) (Handle[A], error)
	retrieve func(ctx cancel.Context, h Handle[A]) (A, error)
}

// Store encodes value and returns a handle to it.
func (c *Converter[A]) Store(ctx cancel.Context, t *Transport, value A) (Handle[A], error) {
	return c.store(ctx, t, value)
}

// Retrieve decodes the value referenced by h.
func (c *Converter[A]) Retrieve(ctx cancel.Context, h Handle[A]) (A, error) {
	return c.retrieve(ctx, h)
}

// RetrieveNow blocks the calling goroutine until retrieval completes, using a background signal
// with no deadline. It is the only intentionally blocking operation in this package (§5).
func (c *Converter[A]) RetrieveNow(h Handle[A]) (A, error) {
	return c.retrieve(cancel.New(), h)
}

// storeLiteral implements the "single-step remote function" store primitive converters share
// (§4.5): it is exactly CompileValue (§4.6) with engineCode set to a literal rendering of value.
func storeLiteral[A any](ctx cancel.Context, t *Transport, conv *Converter[A], literal string) (Handle[A], error) {
	code := fmt.Sprintf("(%s) (%s)", conv.ValueToExn, literal)
	s, err := t.StoreCode(ctx, code)
	if err != nil {
		var zero Handle[A]
		return zero, err
	}
	return newHandle[A](t, s), nil
}

// retrievePrimitive implements the symmetric retrieve primitive: a fresh one-off engine function
// projecting the stored exception back to its native shape is stored and immediately applied to
// the handle's id; the Apply reply is the raw primitive Data itself rather than a further
// DObject, since this projector is not compiled through CompileFunction's value_to_exn-wrapping
// convention (§4.5, §4.6).
func retrievePrimitive[A any](ctx cancel.Context, h Handle[A], conv *Converter[A], decode func(Data) (A, error)) (A, error) {
	var zero A
	id, err := h.ID(ctx)
	if err != nil {
		return zero, err
	}
	t := h.transport()
	code := fmt.Sprintf("fn x => (%s) x", conv.ExnToValue)
	fnSlot, err := t.StoreCode(ctx, code)
	if err != nil {
		return zero, err
	}
	fnHandle := newHandle[Data](t, fnSlot)
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
	return decode(data)
}

func decodeInt64(d Data) (int64, error) {
	v, ok := d.(DInt)
	if !ok {
		return 0, newConverterError("int64", "expected DInt, got %T", d)
	}
	return int64(v), nil
}

func decodeString(d Data) (string, error) {
	v, ok := d.(DString)
	if !ok {
		return "", newConverterError("string", "expected DString, got %T", d)
	}
	return string(v), nil
}

func decodeBool(d Data) (bool, error) {
	v, ok := d.(DInt)
	if !ok {
		return false, newConverterError("bool", "expected DInt, got %T", d)
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, newConverterError("bool", "expected 0 or 1, got %d", v)
	}
}

func decodeUnit(d Data) (struct{}, error) {
	list, ok := d.(DList)
	if !ok || len(list) != 0 {
		return struct{}{}, newConverterError("unit", "expected empty DList, got %T", d)
	}
	return struct{}{}, nil
}

func mlStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Int64Converter is the direct converter for 64-bit signed integers. The distilled spec's
// separate "int"/"long" driver types collapse to this single converter (§9 open question): any
// narrower integer converter an embedder needs should reject out-of-range values explicitly
// rather than introduce a second wire width.
func Int64Converter() *Converter[int64] {
	c := &Converter[int64]{
		MLType:     "int",
		ValueToExn: "E_Int",
		ExnToValue: `(fn E_Int i => i | _ => raise Fail "Int64Converter: not an E_Int")`,
	}
	c.store = func(ctx cancel.Context, t *Transport, v int64) (Handle[int64], error) {
		return storeLiteral(ctx, t, c, strconv.FormatInt(v, 10))
	}
	c.retrieve = func(ctx cancel.Context, h Handle[int64]) (int64, error) {
		return retrievePrimitive(ctx, h, c, decodeInt64)
	}
	return c
}

// BoolConverter is the direct converter for booleans. On the wire a bool rides as DInt(0) or
// DInt(1); Data has no dedicated boolean variant (§3).
func BoolConverter() *Converter[bool] {
	c := &Converter[bool]{
		MLType:     "bool",
		ValueToExn: "E_Bool",
		ExnToValue: `(fn E_Bool b => b | _ => raise Fail "BoolConverter: not an E_Bool")`,
	}
	c.store = func(ctx cancel.Context, t *Transport, v bool) (Handle[bool], error) {
		literal := "false"
		if v {
			literal = "true"
		}
		return storeLiteral(ctx, t, c, literal)
	}
	c.retrieve = func(ctx cancel.Context, h Handle[bool]) (bool, error) {
		return retrievePrimitive(ctx, h, c, decodeBool)
	}
	return c
}

// StringConverter is the direct converter for UTF-8 strings.
func StringConverter() *Converter[string] {
	c := &Converter[string]{
		MLType:     "string",
		ValueToExn: "E_String",
		ExnToValue: `(fn E_String s => s | _ => raise Fail "StringConverter: not an E_String")`,
	}
	c.store = func(ctx cancel.Context, t *Transport, v string) (Handle[string], error) {
		return storeLiteral(ctx, t, c, mlStringLiteral(v))
	}
	c.retrieve = func(ctx cancel.Context, h Handle[string]) (string, error) {
		return retrievePrimitive(ctx, h, c, decodeString)
	}
	return c
}

// UnitConverter is the direct converter for the engine's unit value, represented driver-side as
// struct{}.
func UnitConverter() *Converter[struct{}] {
	c := &Converter[struct{}]{
		MLType:     "unit",
		ValueToExn: "E_Unit",
		ExnToValue: `(fn E_Unit => () | _ => raise Fail "UnitConverter: not an E_Unit")`,
	}
	c.store = func(ctx cancel.Context, t *Transport, _ struct{}) (Handle[struct{}], error) {
		return storeLiteral(ctx, t, c, "()")
	}
	c.retrieve = func(ctx cancel.Context, h Handle[struct{}]) (struct{}, error) {
		return retrievePrimitive(ctx, h, c, decodeUnit)
	}
	return c
}

// HandleConverter is the identity converter for Handle[A] itself (§4.5): Store returns h
// unchanged, Retrieve returns h unchanged. It lets composite converters (tuple.go) be written in
// terms of "something already stored engine-side" without forcing an extra round trip.
func HandleConverter[A any]() *Converter[Handle[A]] {
	c := &Converter[Handle[A]]{MLType: "handle"}
	c.store = func(_ cancel.Context, _ *Transport, h Handle[A]) (Handle[Handle[A]], error) {
		return Handle[Handle[A]]{state: h.state}, nil
	}
	c.retrieve = func(_ cancel.Context, h Handle[Handle[A]]) (Handle[A], error) {
		return Handle[A]{state: h.state}, nil
	}
	return c
}
