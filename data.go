package pisa

import "io"

// ObjectId is the opaque 64-bit identifier the engine assigns to a stored value. Ids are issued
// strictly increasing from 0 and are never reused within a session.
type ObjectId uint64

// Data tag bytes, one byte on the wire followed by the payload described below.
const (
	tagInt    byte = 0x01
	tagString byte = 0x02
	tagList   byte = 0x03
	tagObject byte = 0x04
)

// Data is the recursive wire value: an Int, a String, a List of Data, or an Object reference.
// It is a closed sum — the four constructors below (DInt, DString, DList, DObject) are the only
// implementations, enforced by the unexported marker method.
//
// A Data value is well-formed on the wire only if every Object id it carries refers to a live
// entry in the engine store at the moment of transmission; the protocol never transmits object
// contents, only ids.
type Data interface {
	encode(w io.Writer) error
	isData()
}

var (
	_ Data = DInt(0)
	_ Data = DString("")
	_ Data = DList(nil)
	_ Data = DObject(0)
)

// DInt is a 64-bit signed integer value.
type DInt int64

func (DInt) isData() {}

func (d DInt) encode(w io.Writer) error {
	if err := putByte(w, tagInt); err != nil {
		return err
	}
	return putU64(w, uint64(d))
}

// DString is a length-prefixed UTF-8 string value. UTF-8 is expected but not enforced.
type DString string

func (DString) isData() {}

func (d DString) encode(w io.Writer) error {
	if err := putByte(w, tagString); err != nil {
		return err
	}
	return putString(w, string(d))
}

// DList is an ordered, finite sequence of Data values.
type DList []Data

func (DList) isData() {}

func (d DList) encode(w io.Writer) error {
	if err := putByte(w, tagList); err != nil {
		return err
	}
	if err := putU64(w, uint64(len(d))); err != nil {
		return err
	}
	for _, elem := range d {
		if err := elem.encode(w); err != nil {
			return err
		}
	}
	return nil
}

// DObject is a reference to a live entry in the engine's object store.
type DObject ObjectId

func (DObject) isData() {}

func (d DObject) encode(w io.Writer) error {
	if err := putByte(w, tagObject); err != nil {
		return err
	}
	return putU64(w, uint64(d))
}

// EncodeData writes a Data value to w in the wire format described above.
func EncodeData(w io.Writer, d Data) error {
	return d.encode(w)
}

// DecodeData reads one Data value from r. An unrecognized tag byte is a fatal *ProtocolError —
// callers on the inbound side of a session must treat it as grounds to tear the session down.
func DecodeData(r io.Reader) (Data, error) {
	tag, err := getByte(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagInt:
		v, err := getU64(r)
		if err != nil {
			return nil, err
		}
		return DInt(v), nil
	case tagString:
		s, err := getString(r)
		if err != nil {
			return nil, err
		}
		return DString(s), nil
	case tagList:
		n, err := getU64(r)
		if err != nil {
			return nil, err
		}
		list := make(DList, n)
		for i := range list {
			elem, err := DecodeData(r)
			if err != nil {
				return nil, err
			}
			list[i] = elem
		}
		return list, nil
	case tagObject:
		v, err := getU64(r)
		if err != nil {
			return nil, err
		}
		return DObject(v), nil
	default:
		return nil, newProtocolError("unknown Data tag 0x%02x", tag)
	}
}

// AsObject extracts the ObjectId from a Data value expected to be a DObject, failing with a
// *ProtocolError otherwise. This is the shape Apply replies and CompileFunction results must take.
func AsObject(d Data) (ObjectId, error) {
	obj, ok := d.(DObject)
	if !ok {
		return 0, newProtocolError("expected DObject, got %T", d)
	}
	return ObjectId(obj), nil
}

// AsList extracts the []Data from a Data value expected to be a DList, failing with a
// *ProtocolError otherwise. The composite converters in tuple.go check their DList shape with a
// type assertion instead and report a *ConverterError.
func AsList(d Data) (DList, error) {
	list, ok := d.(DList)
	if !ok {
		return nil, newProtocolError("expected DList, got %T", d)
	}
	return list, nil
}
