// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "fmt"

// NodeError is embedded by every non-fatal error this package returns.
//
// It carries the offending node's id and kind alongside the underlying
// cause, matching spec.md §6's "user-visible failure surface" contract:
// "an error carrying the offending node's id, kind, and the underlying
// cause."
type NodeError struct {
	NodeID   string
	NodeKind NodeKind
	Cause    error
}

// Unwrap exposes Cause to [errors.Is] and [errors.As].
func (e *NodeError) Unwrap() error {
	return e.Cause
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s node %s: %v", e.NodeKind, e.NodeID, e.Cause)
}

// UserError wraps a panic or error raised by a user-supplied callback
// (e.g. the function passed to [NewMapNode]). Recovered locally: the
// node cancels its still-live upstreams, emits onError downstream, and
// becomes terminal (spec.md §7).
type UserError struct {
	*NodeError
}

func newUserError(id string, kind NodeKind, cause error) *UserError {
	return &UserError{&NodeError{NodeID: id, NodeKind: kind, Cause: cause}}
}

// ProtocolError reports a protocol violation a node observed: a signal
// its current state does not accept, an element of the wrong type, or a
// [NewFlattenConcatNode] sub-source that exceeds its parallelism or
// cannot be attached. Demand overruns are not checked, and a signal sent
// on an edge that has already gone terminal is dropped rather than
// reported. Recovered the same way as [UserError], but flagged
// separately so a test harness can reject the run outright rather than
// treating it as an ordinary user-callback failure.
type ProtocolError struct {
	*NodeError
	Invariant string
}

func newProtocolError(id string, kind NodeKind, invariant string) *ProtocolError {
	cause := fmt.Errorf("protocol invariant violated: %s", invariant)
	return &ProtocolError{NodeError: &NodeError{NodeID: id, NodeKind: kind, Cause: cause}, Invariant: invariant}
}

// ResourceError reports that a downstream resource (e.g. a drain sink,
// or the offerer side of a push-source) failed on signal. Recovered the
// same way as [UserError], but additionally logged with an
// [ErrClassifier]-derived label for its underlying cause.
type ResourceError struct {
	*NodeError
	Class string
}

func newResourceError(id string, kind NodeKind, cause error, class string) *ResourceError {
	return &ResourceError{NodeError: &NodeError{NodeID: id, NodeKind: kind, Cause: cause}, Class: class}
}

// fatalError marks a host-level unrecoverable condition. It is raised
// only as the argument to panic (see [PanicFatal]), and node dispatch
// re-panics it instead of turning it into a [UserError]. The region
// boundary recovers it (by type assertion), stops the region, and
// reports it as the region's error: [SealAndRun] returns it for a sync
// region, [RunHandle.Wait] for an async one.
type fatalError struct {
	cause error
}

func (e *fatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.cause)
}

func (e *fatalError) Unwrap() error {
	return e.cause
}

// PanicFatal panics with a [fatalError] wrapping cause. A state function
// that detects a host-level unrecoverable condition (as opposed to a
// user callback error or a protocol invariant violation) should call
// this rather than return an ordinary error.
func PanicFatal(cause error) {
	panic(&fatalError{cause: cause})
}
