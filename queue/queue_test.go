// SPDX-License-Identifier: GPL-3.0-or-later

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOfferDequeue(t *testing.T) {
	q := New[int](2, 4)

	require.True(t, q.Offer(1))
	require.True(t, q.Offer(2))
	assert.Equal(t, 2, q.Size())

	// Capacity starts at 2; a third offer must grow the buffer rather
	// than reject, since maxCapacity is 4.
	require.True(t, q.Offer(3))
	assert.Equal(t, 3, q.Size())

	require.True(t, q.Offer(4))
	assert.Equal(t, 4, q.Size())
	assert.False(t, q.AcceptsNext())

	// At maxCapacity, further offers are rejected rather than blocking
	// or silently dropping.
	assert.False(t, q.Offer(5))

	got := q.DequeueN(2)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 2, q.Size())

	rest := q.DequeueN(0)
	assert.Equal(t, []int{3, 4}, rest)
	assert.Equal(t, 0, q.Size())
}

func TestQueueFIFOOrderAcrossGrowth(t *testing.T) {
	q := New[int](2, 16)
	for i := 1; i <= 10; i++ {
		require.True(t, q.Offer(i))
	}
	got := q.DequeueN(0)
	want := make([]int, 10)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, got)
}

func TestQueueConcurrentOffers(t *testing.T) {
	q := New[int](4, 1024)
	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Offer(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Size())
	assert.Len(t, q.DequeueN(0), producers*perProducer)
}
