// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenConcatNode(t *testing.T) {
	t.Run("panics on zero parallelism", func(t *testing.T) {
		cfg := testConfig()
		assert.Panics(t, func() {
			NewFlattenConcatNode[int](cfg, 0, func(int) *Node { return nil })
		})
	})

	t.Run("concatenates sub-sources in order without interleaving", func(t *testing.T) {
		cfg := testConfig()
		src := newScriptedSource(cfg, []any{1, 2, 3})
		adapt := func(n int) *Node {
			switch n {
			case 1:
				return newScriptedSource(cfg, []any{"a", "b"})
			case 2:
				return newScriptedSource(cfg, []any{"c"})
			default:
				return newScriptedSource(cfg, []any{"d", "e", "f"})
			}
		}
		fc := NewFlattenConcatNode[int](cfg, 1, adapt)
		sink := newRecordingSink(cfg, 10, 0)

		require.NoError(t, Connect(src.Out(0), fc.In(0)))
		require.NoError(t, Connect(fc.Out(0), sink.In(0)))

		_, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		loc := sink.locals.(*recordingSinkLocals)
		assert.Equal(t, []any{"a", "b", "c", "d", "e", "f"}, loc.nexts)
		assert.True(t, loc.completed)
	})

	t.Run("forwards downstream demand one element at a time to the head sub-source", func(t *testing.T) {
		cfg := testConfig()
		src := newScriptedSource(cfg, []any{1, 2})
		adapt := func(n int) *Node {
			if n == 1 {
				return newScriptedSource(cfg, []any{"x", "y"})
			}
			return newScriptedSource(cfg, []any{"z"})
		}
		fc := NewFlattenConcatNode[int](cfg, 1, adapt)
		sink := newRecordingSink(cfg, 1, 1)

		require.NoError(t, Connect(src.Out(0), fc.In(0)))
		require.NoError(t, Connect(fc.Out(0), sink.In(0)))

		_, err := SealAndRun(cfg, sink)
		require.NoError(t, err)

		loc := sink.locals.(*recordingSinkLocals)
		assert.Equal(t, []any{"x", "y", "z"}, loc.nexts)
		assert.True(t, loc.completed)
	})

	t.Run("exceeding configured parallelism fails the node", func(t *testing.T) {
		cfg := testConfig()
		adapt := func(n int) *Node { return newScriptedSource(cfg, []any{n}) }
		fc := NewFlattenConcatNode[int](cfg, 1, adapt)
		sink := newRecordingSink(cfg, 10, 0)
		require.NoError(t, Connect(fc.Out(0), sink.In(0)))

		// Seal directly into a fresh region (bypassing SealAndRun) and call
		// flattenMaterialize twice back to back, so the second call finds
		// the first sub-source's semaphore slot still held — the only way
		// to exercise the over-parallelism guard, since normal operation
		// never requests more elements from upstream than parallelism
		// allows outstanding at once.
		r := newRegion(cfg, ModeSync)
		fc.seal(r)
		sink.seal(r)

		loc := fc.locals.(*flattenConcatLocals)
		flattenMaterialize(fc, loc, newScriptedSource(cfg, []any{1}))
		flattenMaterialize(fc, loc, newScriptedSource(cfg, []any{2}))

		assert.True(t, fc.Terminal())
		sinkLoc := sink.locals.(*recordingSinkLocals)
		require.Error(t, sinkLoc.err)
		var protoErr *ProtocolError
		assert.ErrorAs(t, sinkLoc.err, &protoErr)
	})
}
