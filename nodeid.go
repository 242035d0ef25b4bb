// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewNodeID returns a UUIDv7 uniquely identifying a node.
//
// A node's id is assigned once, at construction, and never changes. It
// is the only thing a graph-rendering or post-mortem error report has
// to correlate a failure back to a specific node (spec.md §9, "node
// identification for diagnostics").
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewNodeID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
