// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSource(t *testing.T) {
	t.Run("delivers offered elements and completes on Complete", func(t *testing.T) {
		cfg := testConfig()
		src, handle := NewPushSource[int](cfg, 4, 16)
		sink := newRecordingSink(cfg, 10, 0)
		require.NoError(t, Connect(src.Out(0), sink.In(0)))

		run, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		require.True(t, handle.Offer(1))
		require.True(t, handle.Offer(2))
		handle.Complete()

		require.NoError(t, run.Wait())

		loc := sink.locals.(*recordingSinkLocals)
		assert.Equal(t, []any{1, 2}, loc.nexts)
		assert.True(t, loc.completed)
	})

	t.Run("ErrorComplete surfaces an onError after the queue drains", func(t *testing.T) {
		cfg := testConfig()
		src, handle := NewPushSource[int](cfg, 4, 16)
		sink := newRecordingSink(cfg, 10, 0)
		require.NoError(t, Connect(src.Out(0), sink.In(0)))

		run, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		wantErr := errors.New("producer failed")
		require.True(t, handle.Offer(1))
		handle.ErrorComplete(wantErr)

		require.NoError(t, run.Wait())

		loc := sink.locals.(*recordingSinkLocals)
		assert.Equal(t, []any{1}, loc.nexts)
		assert.False(t, loc.completed)
		require.Error(t, loc.err)
		assert.ErrorIs(t, loc.err, wantErr)

		var resErr *ResourceError
		require.ErrorAs(t, loc.err, &resErr)
		assert.NotEmpty(t, resErr.Class)
	})

	t.Run("Offer rejects once the queue is at its maximum capacity", func(t *testing.T) {
		cfg := testConfig()
		// A requested maximum below 4 is raised to 4 (see queue.New).
		_, handle := NewPushSource[int](cfg, 2, 2)
		assert.True(t, handle.Offer(1))
		assert.True(t, handle.Offer(2))
		assert.True(t, handle.Offer(3))
		assert.True(t, handle.Offer(4))
		assert.False(t, handle.Offer(5))
		assert.Equal(t, 4, handle.QueueSize())
	})

	t.Run("cancel invokes the registered OnCancel callback exactly once", func(t *testing.T) {
		cfg := testConfig()
		src, handle := NewPushSource[int](cfg, 4, 16)
		sink := newRecordingSink(cfg, 0, 0)
		require.NoError(t, Connect(src.Out(0), sink.In(0)))

		var calls int
		handle.OnCancel(func() { calls++ })

		_, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		sink.inbound[0].send(CancelSignal{})
		// Give the async region's single dispatcher goroutine a chance to
		// run; Region.drain is scheduled via Config.Executor, off the
		// calling goroutine.
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, 1, calls)
	})
}
