package pisa

import (
	"testing"

	"github.com/GoAethereal/cancel"
	"github.com/stretchr/testify/require"
)

func TestBoolConverterRoundTrip(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	conv := BoolConverter()

	for _, v := range []bool{true, false} {
		h, err := conv.Store(ctx, tr, v)
		require.NoError(t, err)
		got, err := conv.Retrieve(ctx, h)
		require.NoError(t, err)
		require.Equal(t, v, got)
		h.Release()
	}
}

func TestStringConverterRoundTripWithEscapes(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	conv := StringConverter()

	for _, v := range []string{"", "plain", `has "quotes" and \backslash`, "line\nbreak"} {
		h, err := conv.Store(ctx, tr, v)
		require.NoError(t, err)
		defer h.Release()
		got, err := conv.Retrieve(ctx, h)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestUnitConverterRoundTrip(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	conv := UnitConverter()

	h, err := conv.Store(ctx, tr, struct{}{})
	require.NoError(t, err)
	defer h.Release()

	v, err := conv.RetrieveNow(h)
	require.NoError(t, err)
	require.Equal(t, struct{}{}, v)
}

func TestHandleConverterIsIdentity(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	inner := Int64Converter()
	identity := HandleConverter[int64]()

	h, err := inner.Store(ctx, tr, 5)
	require.NoError(t, err)
	defer h.Release()

	wrapped, err := identity.Store(ctx, tr, h)
	require.NoError(t, err)

	back, err := identity.Retrieve(ctx, wrapped)
	require.NoError(t, err)

	v, err := inner.Retrieve(ctx, back)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}
