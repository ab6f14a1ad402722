// Package storetest is a conformance suite run against every
// statestore.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/statestore"
)

// Factory returns a fresh, empty store and a function that moves the
// store's notion of "now" forward. Backends that cannot fake time may
// return an advance function that sleeps.
type Factory func(t *testing.T) (statestore.Store, func(time.Duration))

// Run executes the whole suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore) })
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, newStore) })
	t.Run("Expiry", func(t *testing.T) { testExpiry(t, newStore) })
	t.Run("CompareAndSetAbsent", func(t *testing.T) { testCASAbsent(t, newStore) })
	t.Run("CompareAndSetValue", func(t *testing.T) { testCASValue(t, newStore) })
	t.Run("CompareAndSetExpired", func(t *testing.T) { testCASExpired(t, newStore) })
	t.Run("CompareAndSetConcurrent", func(t *testing.T) { testCASConcurrent(t, newStore) })
}

func testGetMissing(t *testing.T, newStore Factory) {
	s, _ := newStore(t)
	ctx := context.Background()

	v, ok, err := s.Get(ctx, "job-chain.missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	has, err := s.Has(ctx, "job-chain.missing")
	require.NoError(t, err)
	assert.False(t, has)
}

func testPutGet(t *testing.T, newStore Factory) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`{"a":1}`), time.Hour))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), v)

	// Put overwrites.
	require.NoError(t, s.Put(ctx, "k", []byte("2"), time.Hour))
	v, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	has, err := s.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
}

func testExpiry(t *testing.T, newStore Factory) {
	s, advance := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, s.Put(ctx, "forever", []byte("y"), 0))
	advance(2 * time.Second)

	has, err := s.Has(ctx, "short")
	require.NoError(t, err)
	assert.False(t, has, "expired entry must look absent")

	_, ok, err := s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok, "zero ttl never expires")
}

func testCASAbsent(t *testing.T, newStore Factory) {
	s, _ := newStore(t)
	ctx := context.Background()

	ok, err := s.CompareAndSet(ctx, "latch", nil, []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSet(ctx, "latch", nil, []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second absent-CAS must lose")
}

func testCASValue(t *testing.T, newStore Factory) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("a"), time.Hour))

	ok, err := s.CompareAndSet(ctx, "k", []byte("b"), []byte("c"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CompareAndSet(ctx, "k", []byte("a"), []byte("c"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), v)

	ok, err = s.CompareAndSet(ctx, "absent", []byte("a"), []byte("c"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "non-nil expected never matches an absent key")
}

func testCASExpired(t *testing.T, newStore Factory) {
	s, advance := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("old"), time.Second))
	advance(2 * time.Second)

	ok, err := s.CompareAndSet(ctx, "k", []byte("old"), []byte("new"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "expired value must not match")

	ok, err = s.CompareAndSet(ctx, "k", nil, []byte("new"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired entry counts as absent")
}

func testCASConcurrent(t *testing.T, newStore Factory) {
	s, _ := newStore(t)
	ctx := context.Background()

	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CompareAndSet(ctx, "race", nil, []byte(fmt.Sprint(i)), time.Hour)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "exactly one writer must win")
}
