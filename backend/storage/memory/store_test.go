package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_PutGetDelete(t *testing.T) {
	ms := NewMemStore[int]()

	require.True(t, ms.Put("B", 2))
	require.True(t, ms.Put("A", 1))
	assert.False(t, ms.Put("A", 10), "existing key must not be overwritten")

	v, ok := ms.Get("A")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, ms.Has("B"))
	assert.Equal(t, 2, ms.Len())
	assert.Equal(t, []int{1, 2}, ms.Values())

	ms.Delete("A")
	assert.False(t, ms.Has("A"))
	_, ok = ms.Get("A")
	assert.False(t, ok)
	assert.Equal(t, 1, ms.Len())
}

func TestMemStore_Empty(t *testing.T) {
	ms := NewMemStore[string]()

	assert.Equal(t, 0, ms.Len())
	assert.Empty(t, ms.Values())
	ms.Delete("missing")
}
