package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew__AllAllocated(t *testing.T) {
	m := New(16)
	for i := BlockNum(0); i < 16; i++ {
		assert.False(t, m.Test(i), "block %d should start allocated", i)
	}
}

func TestAllocate__LowestFreeFirst(t *testing.T) {
	m := New(8)
	m.Set(3)
	m.Set(5)

	b, ok := m.Allocate()
	require.True(t, ok)
	assert.Equal(t, BlockNum(3), b)
	assert.False(t, m.Test(3))

	b, ok = m.Allocate()
	require.True(t, ok)
	assert.Equal(t, BlockNum(5), b)

	_, ok = m.Allocate()
	assert.False(t, ok, "no free bits remain")
}

func TestFree__MakesBlockAllocatableAgain(t *testing.T) {
	m := New(4)
	m.Set(1)
	b, ok := m.Allocate()
	require.True(t, ok)
	require.Equal(t, BlockNum(1), b)

	m.Free(1)
	assert.True(t, m.Test(1))
	b, ok = m.Allocate()
	require.True(t, ok)
	assert.Equal(t, BlockNum(1), b)
}

func TestCountFree(t *testing.T) {
	m := New(10)
	assert.Equal(t, uint(0), m.CountFree())
	m.Set(0)
	m.Set(9)
	assert.Equal(t, uint(2), m.CountFree())
}

func TestFromBytes__AliasesBackingArray(t *testing.T) {
	data := make([]byte, 2)
	m := FromBytes(data, 16)
	m.Set(0)
	assert.NotZero(t, data[0], "Set should mutate the backing slice in place")
}
