package pisa

import (
	"testing"

	"github.com/GoAethereal/cancel"
	"github.com/stretchr/testify/require"
)

func TestUnsafeHandleFromIDResolvesImmediately(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()

	h := UnsafeHandleFromID[int64](tr, 42)
	id, err := h.ID(ctx)
	require.NoError(t, err)
	require.Equal(t, ObjectId(42), id)
}

func TestAliasedHandlesShareResolution(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	conv := Int64Converter()

	h1, err := conv.Store(ctx, tr, 7)
	require.NoError(t, err)

	h2 := Handle[int64]{state: h1.state}

	id1, err := h1.ID(ctx)
	require.NoError(t, err)
	id2, err := h2.ID(ctx)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	// Releasing one alias must not invalidate the other's ability to resolve.
	h1.Release()
	id2again, err := h2.ID(ctx)
	require.NoError(t, err)
	require.Equal(t, id1, id2again)
}

func TestReleaseIsIdempotent(t *testing.T) {
	tr, _ := newHarness(t, Options{RemoveBatchSize: 1})
	ctx := cancel.New()
	conv := Int64Converter()

	h, err := conv.Store(ctx, tr, 1)
	require.NoError(t, err)
	_, err = h.ID(ctx)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		h.Release()
		h.Release()
		h.Release()
	})
}
