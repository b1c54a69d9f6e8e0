package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocLookup(t *testing.T) {
	var pool Pool[string]

	a, err := pool.Alloc("a")
	require.NoError(t, err)
	b, err := pool.Alloc("b")
	require.NoError(t, err)

	assert.True(t, a.Valid())
	assert.NotEqual(t, a, b)

	value, ok := pool.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "a", value)
	assert.Equal(t, 2, pool.Len())

	_, ok = pool.Lookup(0)
	assert.False(t, ok)
}

func TestPoolReleaseInvalidatesHandle(t *testing.T) {
	var pool Pool[int]

	first, err := pool.Alloc(1)
	require.NoError(t, err)

	value, ok := pool.Release(first)
	require.True(t, ok)
	assert.Equal(t, 1, value)

	_, ok = pool.Lookup(first)
	assert.False(t, ok)
	_, ok = pool.Release(first)
	assert.False(t, ok)

	// The slot is reused with a new generation.
	second, err := pool.Alloc(2)
	require.NoError(t, err)
	assert.Equal(t, first.index(), second.index())
	assert.NotEqual(t, first, second)

	_, ok = pool.Lookup(first)
	assert.False(t, ok)
	value, ok = pool.Lookup(second)
	require.True(t, ok)
	assert.Equal(t, 2, value)
}

func TestPoolReplaceAndEach(t *testing.T) {
	var pool Pool[int]
	ids := make([]ID, 3)
	for i := range ids {
		id, err := pool.Alloc(i)
		require.NoError(t, err)
		ids[i] = id
	}
	pool.Release(ids[1])
	require.True(t, pool.Replace(ids[2], 20))
	assert.False(t, pool.Replace(ids[1], 10))

	var seen []int
	pool.Each(func(id ID, v int) {
		seen = append(seen, v)
	})
	assert.Equal(t, []int{0, 20}, seen)
}

func TestZeroHandlesAreInvalid(t *testing.T) {
	assert.False(t, Buffer(0).Valid())
	assert.False(t, Image(0).Valid())
	assert.False(t, Shader(0).Valid())
	assert.False(t, Pipeline(0).Valid())
}
