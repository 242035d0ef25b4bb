// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferNode(t *testing.T) {
	t.Run("panics on zero capacity", func(t *testing.T) {
		cfg := testConfig()
		assert.Panics(t, func() { NewBufferNode[int](cfg, 0) })
	})

	t.Run("keeps upstream topped up and drains to downstream demand", func(t *testing.T) {
		cfg := testConfig()
		elems := make([]any, 20)
		for i := range elems {
			elems[i] = i
		}
		src := newScriptedSource(cfg, elems)
		buf := NewBufferNode[int](cfg, 4)
		sink := newRecordingSink(cfg, 1, 1)

		require.NoError(t, Connect(src.Out(0), buf.In(0)))
		require.NoError(t, Connect(buf.Out(0), sink.In(0)))

		_, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		loc := sink.locals.(*recordingSinkLocals)
		assert.Equal(t, elems, loc.nexts)
		assert.True(t, loc.completed)
	})

	t.Run("completes downstream once the queue drains after upstream completes", func(t *testing.T) {
		cfg := testConfig()
		src := newScriptedSource(cfg, []any{1, 2, 3})
		buf := NewBufferNode[int](cfg, 10)
		sink := newRecordingSink(cfg, 0, 0)

		require.NoError(t, Connect(src.Out(0), buf.In(0)))
		require.NoError(t, Connect(buf.Out(0), sink.In(0)))

		_, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		loc := sink.locals.(*recordingSinkLocals)
		assert.Empty(t, loc.nexts)
		assert.False(t, loc.completed)

		sink.inbound[0].send(RequestSignal{N: 3})
		assert.Equal(t, []any{1, 2, 3}, loc.nexts)
		assert.True(t, loc.completed)
	})
}
