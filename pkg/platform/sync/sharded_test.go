package sync

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			m.Lock("page-1")
			defer m.Unlock("page-1")
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutex_WithReturnsError(t *testing.T) {
	m := NewShardedMutex()
	want := errors.New("update failed")

	assert.ErrorIs(t, m.With("page-1", func() error { return want }), want)
	// lock released after fn returned
	assert.NoError(t, m.With("page-1", func() error { return nil }))
}

func TestShardFor(t *testing.T) {
	assert.Equal(t, 0, shardFor(""))
	assert.Equal(t, shardFor("page-1"), shardFor("page-1"))

	shards := make(map[int]bool)
	for i := range 64 {
		shards[shardFor(fmt.Sprintf("page-%d", i))] = true
	}
	assert.GreaterOrEqual(t, len(shards), 8, "expected keys to spread across shards")
}
