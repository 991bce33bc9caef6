package pisa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveHelpersRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, putU32(&buf, 0xdeadbeef))
	require.NoError(t, putU64(&buf, 0x0123456789abcdef))
	require.NoError(t, putByte(&buf, 0x42))
	require.NoError(t, putString(&buf, "hello"))

	u32, err := getU32(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := getU64(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0123456789abcdef), u64)

	b, err := getByte(&buf)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)

	s, err := getString(&buf)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestRequestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRequestHeader(&buf, 17, cmdApply))

	// writeRequestHeader and readReplyHeader share the same u64-then-byte layout.
	seq, tag, err := readReplyHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(17), seq)
	require.Equal(t, cmdApply, tag)
}

func TestReadReplyHeaderOnEmptyStream(t *testing.T) {
	_, _, err := readReplyHeader(&bytes.Buffer{})
	require.Error(t, err)
}
