package association

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRef_ResolveMemoizesSingleRoundTrip(t *testing.T) {
	calls := 0
	ref := Lazy(7, func(_ context.Context, key int64) (string, error) {
		calls++
		require.Equal(t, int64(7), key)
		return "loaded", nil
	})

	require.False(t, ref.IsResolved())
	_, err := ref.Value()
	require.ErrorIs(t, err, ErrUnresolved)

	for i := 0; i < 3; i++ {
		value, err := ref.Resolve(context.Background())
		require.NoError(t, err)
		require.Equal(t, "loaded", value)
	}
	require.Equal(t, 1, calls)
	require.True(t, ref.IsResolved())
}

func TestRef_ResolveWithoutResolver(t *testing.T) {
	ref := &Ref[string]{key: 1}
	_, err := ref.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoResolver)
}

func TestRef_ResolveError(t *testing.T) {
	boom := errors.New("session closed")
	ref := Lazy(1, func(context.Context, int64) (string, error) {
		return "", boom
	})
	_, err := ref.Resolve(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, ref.IsResolved())
}

func TestRef_BindSkipsResolver(t *testing.T) {
	calls := 0
	ref := Lazy(3, func(context.Context, int64) (string, error) {
		calls++
		return "from resolver", nil
	})
	ref.Bind("from batch")

	value, err := ref.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from batch", value)
	require.Zero(t, calls)
}

func TestCollection_ResolveAndAppend(t *testing.T) {
	calls := 0
	col := LazyCollection(9, func(_ context.Context, owner int64) ([]int, error) {
		calls++
		require.Equal(t, int64(9), owner)
		return []int{1, 2}, nil
	})

	_, err := col.Items()
	require.ErrorIs(t, err, ErrUnresolved)

	items, err := col.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, items)
	items, err = col.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, items)
	require.Equal(t, 1, calls)

	col.Append(3)
	items, err = col.Items()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, items)
}
