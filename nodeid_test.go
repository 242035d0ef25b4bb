// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	id := NewNodeID()

	// Should be a valid UUID string
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)

	// Should be version 7 (time-ordered)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNewNodeIDUniqueness(t *testing.T) {
	// Generate multiple node ids and verify they're all unique
	const count = 100
	seen := make(map[string]struct{}, count)

	for range count {
		id := NewNodeID()
		_, duplicate := seen[id]
		require.False(t, duplicate, "duplicate node id generated: %s", id)
		seen[id] = struct{}{}
	}
}
