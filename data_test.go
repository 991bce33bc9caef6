package pisa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataRoundTrip(t *testing.T) {
	cases := []Data{
		DInt(0),
		DInt(-1),
		DInt(42),
		DString(""),
		DString("hello, world"),
		DList{},
		DList{DInt(1), DString("two"), DObject(3)},
		DList{DList{DInt(1)}, DList{DInt(2), DInt(3)}},
		DObject(0),
		DObject(123456789),
	}
	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, EncodeData(&buf, c))
		got, err := DecodeData(&buf)
		require.NoError(t, err)
		require.Equal(t, c, got)
		require.Equal(t, 0, buf.Len(), "decode should consume the entire encoding")
	}
}

func TestDecodeDataUnknownTag(t *testing.T) {
	_, err := DecodeData(bytes.NewReader([]byte{0xff}))
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestAsObjectAsList(t *testing.T) {
	id, err := AsObject(DObject(7))
	require.NoError(t, err)
	require.Equal(t, ObjectId(7), id)

	_, err = AsObject(DInt(7))
	require.Error(t, err)

	list, err := AsList(DList{DInt(1)})
	require.NoError(t, err)
	require.Equal(t, DList{DInt(1)}, list)

	_, err = AsList(DInt(1))
	require.Error(t, err)
}
