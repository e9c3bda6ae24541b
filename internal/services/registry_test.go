package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, r.Remove("a"))

	first := &ptySession{id: "a"}
	assert.Nil(t, r.Put(first))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, first, got)

	second := &ptySession{id: "a"}
	assert.Same(t, first, r.Put(second), "Put returns the replaced session")
	assert.Equal(t, 1, r.Len())

	r.Put(&ptySession{id: "b"})
	assert.Len(t, r.Snapshot(), 2)

	assert.Same(t, second, r.Remove("a"))
	assert.Nil(t, r.Remove("a"))

	drained := r.Drain()
	assert.Len(t, drained, 1)
	assert.Zero(t, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	ids := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id := ids[(i+j)%len(ids)]
				switch j % 4 {
				case 0:
					r.Put(&ptySession{id: id})
				case 1:
					_, _ = r.Get(id)
				case 2:
					r.Snapshot()
				case 3:
					r.Remove(id)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Len(), len(ids))
}
