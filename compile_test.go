package pisa

import (
	"testing"

	"github.com/GoAethereal/cancel"
	"github.com/stretchr/testify/require"
)

// TestApply2SumOfPair exercises the n-ary application path: a two-argument compiled function is
// applied to two independently-stored handles without the caller ever building a Tuple2 value.
func TestApply2SumOfPair(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	intConv := Int64Converter()

	f, err := CompileFunction[Tuple2[int64, int64], int64](ctx, tr, &Converter[Tuple2[int64, int64]]{}, intConv, "fn (a, b) => a + b")
	require.NoError(t, err)
	defer f.Release()

	a, err := intConv.Store(ctx, tr, 10)
	require.NoError(t, err)
	defer a.Release()
	b, err := intConv.Store(ctx, tr, 32)
	require.NoError(t, err)
	defer b.Release()

	result, err := Apply2(ctx, f, a, b)
	require.NoError(t, err)
	defer result.Release()

	v, err := intConv.Retrieve(ctx, result)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

// TestApply3ProductOfTriple is Apply2's test extended to three arguments.
func TestApply3ProductOfTriple(t *testing.T) {
	tr, _ := newHarness(t, Options{})
	ctx := cancel.New()
	intConv := Int64Converter()

	f, err := CompileFunction[Tuple3[int64, int64, int64], int64](ctx, tr, &Converter[Tuple3[int64, int64, int64]]{}, intConv, "fn (a, b, c) => a * b * c")
	require.NoError(t, err)
	defer f.Release()

	a, err := intConv.Store(ctx, tr, 2)
	require.NoError(t, err)
	defer a.Release()
	b, err := intConv.Store(ctx, tr, 3)
	require.NoError(t, err)
	defer b.Release()
	c, err := intConv.Store(ctx, tr, 7)
	require.NoError(t, err)
	defer c.Release()

	result, err := Apply3(ctx, f, a, b, c)
	require.NoError(t, err)
	defer result.Release()

	v, err := intConv.Retrieve(ctx, result)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}
