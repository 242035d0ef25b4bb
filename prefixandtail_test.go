// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixAndTailNode(t *testing.T) {
	t.Run("panics on zero prefixSize", func(t *testing.T) {
		cfg := testConfig()
		assert.Panics(t, func() { NewPrefixAndTailNode[int](cfg, 0) })
	})

	t.Run("emits the prefix paired with a tail that drains the remainder", func(t *testing.T) {
		cfg := testConfig()
		src := newScriptedSource(cfg, []any{1, 2, 3, 4, 5})
		pt := NewPrefixAndTailNode[int](cfg, 2)
		// A one-at-a-time consumer (requestPerNext > 0) re-requests on its
		// inbound edge as soon as it sees the pair's onNext, before
		// prefixAndTail's main output has actually gone terminal from the
		// consumer's point of view — exercises drainingState receiving a
		// RequestSignal for the now-dead main edge.
		headSink := newRecordingSink(cfg, 1, 1)

		require.NoError(t, Connect(src.Out(0), pt.In(0)))
		require.NoError(t, Connect(pt.Out(0), headSink.In(0)))

		_, err := SealAndRun(cfg, headSink)
		require.NoError(t, err)

		headLoc := headSink.locals.(*recordingSinkLocals)
		require.Len(t, headLoc.nexts, 1)
		assert.True(t, headLoc.completed)

		pair := headLoc.nexts[0].(*PrefixAndTailResult)
		assert.Equal(t, []any{1, 2}, pair.Prefix)
		require.NotNil(t, pair.Tail)

		tailSink := newRecordingSink(cfg, 10, 0)
		require.NoError(t, Connect(pair.Tail.Out(0), tailSink.In(0)))

		_, err = SealAndRun(cfg, tailSink)
		require.NoError(t, err)

		tailLoc := tailSink.locals.(*recordingSinkLocals)
		assert.Equal(t, []any{3, 4, 5}, tailLoc.nexts)
		assert.True(t, tailLoc.completed)
	})

	t.Run("upstream completing before the prefix fills emits a partial prefix with an empty tail", func(t *testing.T) {
		cfg := testConfig()
		src := newScriptedSource(cfg, []any{1})
		pt := NewPrefixAndTailNode[int](cfg, 3)
		headSink := newRecordingSink(cfg, 10, 0)

		require.NoError(t, Connect(src.Out(0), pt.In(0)))
		require.NoError(t, Connect(pt.Out(0), headSink.In(0)))

		_, err := SealAndRun(cfg, headSink)
		require.NoError(t, err)

		headLoc := headSink.locals.(*recordingSinkLocals)
		require.Len(t, headLoc.nexts, 1)
		pair := headLoc.nexts[0].(*PrefixAndTailResult)
		assert.Equal(t, []any{1}, pair.Prefix)

		tailSink := newRecordingSink(cfg, 10, 0)
		require.NoError(t, Connect(pair.Tail.Out(0), tailSink.In(0)))

		_, err = SealAndRun(cfg, tailSink)
		require.NoError(t, err)

		tailLoc := tailSink.locals.(*recordingSinkLocals)
		assert.Empty(t, tailLoc.nexts)
		assert.True(t, tailLoc.completed)
	})
}
