// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/bus"
)

func newBucket() (*auth.Bucket, *bus.Bus) {
	b := bus.New(nil)
	return auth.NewBucket(b), b
}

func TestBucketAtMostOneEntry(t *testing.T) {
	bucket, _ := newBucket()
	acc := auth.NewAccount(auth.ByName, "Alice", "u")

	require.True(t, bucket.Add(acc, "10.0.0.1"))
	first := bucket.EnteredAtOrZero("alice")
	require.False(t, first.IsZero())

	// Second add is a no-op and the original enter timestamp survives.
	other := auth.NewAccount(auth.ByName, "Alice", "u")
	assert.False(t, bucket.Add(other, "10.0.0.2"))
	assert.Equal(t, first, bucket.EnteredAtOrZero("alice"))

	got, ok := bucket.Account("alice")
	require.True(t, ok)
	assert.Same(t, acc, got, "first account wins")
	assert.Equal(t, 1, bucket.Len())
}

func TestBucketRemovePublishesStateCleared(t *testing.T) {
	bucket, b := newBucket()

	var cleared []*auth.StateClearedEvent
	b.Subscribe(auth.EventStateCleared, func(_ context.Context, e bus.Event) {
		cleared = append(cleared, e.(*auth.StateClearedEvent))
	})

	acc := auth.NewAccount(auth.ByName, "Alice", "u")
	bucket.Add(acc, "10.0.0.1")
	bucket.Remove(context.Background(), "alice")

	require.Len(t, cleared, 1)
	assert.Same(t, acc, cleared[0].Account)
	assert.Equal(t, "alice", cleared[0].PlayerID)
	assert.False(t, bucket.IsAuthenticating("alice"))
}

func TestBucketRemoveIsIdempotent(t *testing.T) {
	bucket, b := newBucket()

	var events int
	b.Subscribe(auth.EventStateCleared, func(context.Context, bus.Event) { events++ })

	// Removing an absent identity neither panics nor publishes.
	bucket.Remove(context.Background(), "ghost")
	assert.Zero(t, events)

	acc := auth.NewAccount(auth.ByName, "Alice", "u")
	bucket.Add(acc, "10.0.0.1")
	bucket.Remove(context.Background(), "alice")
	bucket.Remove(context.Background(), "alice")
	assert.Equal(t, 1, events)
}

func TestBucketConcurrentRemoveClaimsOnce(t *testing.T) {
	bucket, b := newBucket()

	// The subscriber blocks mid-publish so the test can interleave a
	// second remove and a reconnect into the first remove's window.
	inPublish := make(chan struct{}, 2)
	release := make(chan struct{})
	var events atomic.Int64
	b.Subscribe(auth.EventStateCleared, func(context.Context, bus.Event) {
		events.Add(1)
		inPublish <- struct{}{}
		<-release
	})

	acc := auth.NewAccount(auth.ByName, "Alice", "u")
	require.True(t, bucket.Add(acc, "10.0.0.1"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bucket.Remove(context.Background(), "alice")
	}()
	<-inPublish

	// A racing remover finds nothing left to claim and publishes nothing.
	bucket.Remove(context.Background(), "alice")

	// The player reconnects while the first remove is still publishing;
	// the fresh entry must survive it.
	fresh := auth.NewAccount(auth.ByName, "Alice", "u")
	require.True(t, bucket.Add(fresh, "10.0.0.1"))

	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), events.Load(), "one claim, one notification")
	got, ok := bucket.Account("alice")
	require.True(t, ok, "re-added entry survives the in-flight remove")
	assert.Same(t, fresh, got)
}

func TestBucketEnteredAtOrZero(t *testing.T) {
	bucket, _ := newBucket()
	assert.True(t, bucket.EnteredAtOrZero("nobody").IsZero())
}

func TestBucketCountByIP(t *testing.T) {
	bucket, _ := newBucket()

	bucket.Add(auth.NewAccount(auth.ByName, "A", "1"), "10.0.0.1")
	bucket.Add(auth.NewAccount(auth.ByName, "B", "2"), "10.0.0.1")
	bucket.Add(auth.NewAccount(auth.ByName, "C", "3"), "10.0.0.2")

	assert.Equal(t, 2, bucket.CountByIP("10.0.0.1"))
	assert.Equal(t, 1, bucket.CountByIP("10.0.0.2"))
	assert.Zero(t, bucket.CountByIP("10.0.0.3"))
}

func TestBucketIdentifiersSnapshot(t *testing.T) {
	bucket, _ := newBucket()
	bucket.Add(auth.NewAccount(auth.ByName, "A", "1"), "ip")
	bucket.Add(auth.NewAccount(auth.ByName, "B", "2"), "ip")

	ids := bucket.Identifiers()
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	// Mutating the bucket does not affect the snapshot.
	bucket.Remove(context.Background(), "a")
	assert.Len(t, ids, 2)
}

func TestBucketConcurrentAdds(t *testing.T) {
	bucket, _ := newBucket()
	acc := auth.NewAccount(auth.ByName, "Alice", "u")

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if bucket.Add(acc, "ip") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "insert-if-absent admits exactly one")
	assert.Equal(t, 1, bucket.Len())
}
