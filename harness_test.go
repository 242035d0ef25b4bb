// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// Shared test doubles used across this package's _test.go files: a
// scripted, pull-driven source and a recording sink, both built on the
// same Node/stateFunc machinery production nodes use rather than on any
// special-cased test seam.

// scriptedSourceLocals is the state behind [newScriptedSource]: the
// fixed element list, how far into it the source has emitted, and the
// demand not yet satisfied.
type scriptedSourceLocals struct {
	elems    []any
	idx      int
	demand   uint64
	canceled bool
}

// newScriptedSource returns a zero-in-one-out node that emits elems, in
// order, one per unit of downstream demand, then completes.
func newScriptedSource(cfg *Config, elems []any) *Node {
	n := newNode(cfg, NodeKind("testScriptedSource"), 0, 1)
	n.locals = &scriptedSourceLocals{elems: elems}
	n.onSeal = func(n *Node) {
		n.setState(scriptedSourceState, true)
	}
	return n
}

func scriptedSourceState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*scriptedSourceLocals)
	switch s := sig.(type) {
	case RequestSignal:
		loc.demand += s.N
		for loc.demand > 0 && loc.idx < len(loc.elems) {
			loc.demand--
			e := loc.elems[loc.idx]
			loc.idx++
			if n.outbound[0].alive() {
				n.outbound[0].send(OnNextSignal{Elem: e})
			}
		}
		if loc.idx >= len(loc.elems) {
			if n.outbound[0].alive() {
				n.outbound[0].send(OnCompleteSignal{})
			}
			n.complete()
		}
	case CancelSignal:
		loc.canceled = true
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at scripted source"))
	}
}

// recordingSinkLocals is the state behind [newRecordingSink]: everything
// observed, plus the demand policy driving the node.
type recordingSinkLocals struct {
	initialDemand  uint64
	requestPerNext uint64
	nexts          []any
	completed      bool
	err            error
}

// newRecordingSink returns a one-in-zero-out node that requests
// initialDemand (if > 0) as soon as its region starts, records every element and
// terminal signal it receives, and (if requestPerNext > 0) requests
// requestPerNext more after each onNext — a simple way to drive a
// bounded, pull-at-your-own-pace consumer in a test.
func newRecordingSink(cfg *Config, initialDemand, requestPerNext uint64) *Node {
	n := newNode(cfg, NodeKind("testRecordingSink"), 1, 0)
	n.locals = &recordingSinkLocals{initialDemand: initialDemand, requestPerNext: requestPerNext}
	n.onSeal = func(n *Node) {
		n.setState(recordingSinkState, true)
		n.region.registerXStart(n)
	}
	return n
}

func recordingSinkState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*recordingSinkLocals)
	switch s := sig.(type) {
	case XStartSignal:
		if loc.initialDemand > 0 && n.inbound[0].alive() {
			n.inbound[0].send(RequestSignal{N: loc.initialDemand})
		}
	case OnNextSignal:
		loc.nexts = append(loc.nexts, s.Elem)
		if loc.requestPerNext > 0 && n.inbound[0].alive() {
			n.inbound[0].send(RequestSignal{N: loc.requestPerNext})
		}
	case OnCompleteSignal:
		loc.completed = true
		n.complete()
	case OnErrorSignal:
		loc.err = s.Err
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at recording sink"))
	}
}

// testConfig returns a [*Config] with a synchronous-friendly Executor
// (still a goroutine, since an async region must not block its caller,
// but nothing here depends on timing beyond "eventually").
func testConfig() *Config {
	return NewConfig()
}
