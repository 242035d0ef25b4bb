// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealAndRunSyncRegion(t *testing.T) {
	cfg := testConfig()
	src := newScriptedSource(cfg, []any{1, 2, 3})
	m := NewMapNode[int, int](cfg, func(ctx context.Context, n int) (int, error) { return n, nil })
	sink := newRecordingSink(cfg, 10, 0)

	require.NoError(t, Connect(src.Out(0), m.In(0)))
	require.NoError(t, Connect(m.Out(0), sink.In(0)))

	run, err := SealAndRun(cfg, sink)
	require.NoError(t, err)

	// A sync-only graph has no async regions, so RunHandle is already
	// done by the time SealAndRun returns.
	select {
	case <-run.Done():
	default:
		t.Fatal("expected a sync-only run to already be done")
	}
	assert.NoError(t, run.Wait())

	loc := sink.locals.(*recordingSinkLocals)
	assert.True(t, loc.completed)
}

func TestSealAndRunPropagatesFatalError(t *testing.T) {
	cfg := testConfig()
	wantCause := errors.New("disk full")
	src := newScriptedSource(cfg, []any{1, 2, 3})
	m := NewMapNode[int, int](cfg, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			PanicFatal(wantCause)
		}
		return n, nil
	})
	sink := newRecordingSink(cfg, 10, 0)

	require.NoError(t, Connect(src.Out(0), m.In(0)))
	require.NoError(t, Connect(m.Out(0), sink.In(0)))

	_, err := SealAndRun(cfg, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, wantCause)

	loc := sink.locals.(*recordingSinkLocals)
	// The first element passed through the map but was still held in the
	// sink's intercept buffer (the sink was mid-dispatch of its own
	// xStart) when the fatal panic unwound that dispatch, so the sink
	// never recorded any element.
	assert.Empty(t, loc.nexts)
}

func TestDiscoverNodesFindsBothDirections(t *testing.T) {
	cfg := testConfig()
	src := newScriptedSource(cfg, []any{1})
	m := NewMapNode[int, int](cfg, func(ctx context.Context, n int) (int, error) { return n, nil })
	sink := newRecordingSink(cfg, 1, 0)

	require.NoError(t, Connect(src.Out(0), m.In(0)))
	require.NoError(t, Connect(m.Out(0), sink.In(0)))

	nodes := discoverNodes([]*Node{m})
	assert.Len(t, nodes, 3)
}
