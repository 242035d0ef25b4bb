// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// bufferLocals is the mutable state behind a [NewBufferNode]: the
// backlog itself, how much the buffer still owes downstream, and how
// much it has already asked upstream for but not yet received.
type bufferLocals struct {
	capacity            uint32
	queue               []any
	downstreamDemand    uint64
	upstreamOutstanding uint64
	upstreamCompleted   bool
}

// NewBufferNode returns a one-in-one-out bounded FIFO gate with room
// for capacity elements (SPEC_FULL.md §4.8). At all times it keeps its
// outstanding upstream request plus its queued backlog topped up to
// capacity, so it can answer a downstream request the instant it
// arrives instead of waiting on a fresh round trip upstream.
//
// This is the node to place on a [NewCoupling]-closed cycle: it can
// emit the cycle's first elements without first having been handed
// one, by requesting from its real upstream edge before the cycle's
// first element has round tripped.
func NewBufferNode[T any](cfg *Config, capacity uint32) *Node {
	if capacity == 0 {
		panic("streamline: buffer capacity must be > 0")
	}
	n := newNode(cfg, KindBuffer, 1, 1)
	n.locals = &bufferLocals{capacity: capacity}
	n.onSeal = func(n *Node) {
		n.setState(bufferState, true)
		n.region.registerXStart(n)
	}
	return n
}

func bufferState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*bufferLocals)
	switch s := sig.(type) {
	case XStartSignal:
		bufferTopUp(n, loc)
	case RequestSignal:
		loc.downstreamDemand += s.N
		bufferDrain(n, loc)
		bufferTopUp(n, loc)
	case CancelSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
		n.complete()
	case OnNextSignal:
		if loc.upstreamOutstanding > 0 {
			loc.upstreamOutstanding--
		}
		loc.queue = append(loc.queue, s.Elem)
		bufferDrain(n, loc)
		bufferTopUp(n, loc)
	case OnCompleteSignal:
		loc.upstreamCompleted = true
		bufferMaybeFinish(n, loc)
	case OnErrorSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at buffer"))
	}
}

func bufferDrain(n *Node, loc *bufferLocals) {
	for loc.downstreamDemand > 0 && len(loc.queue) > 0 {
		elem := loc.queue[0]
		loc.queue = loc.queue[1:]
		loc.downstreamDemand--
		if n.outbound[0].alive() {
			n.outbound[0].send(OnNextSignal{Elem: elem})
		}
	}
	bufferMaybeFinish(n, loc)
}

func bufferMaybeFinish(n *Node, loc *bufferLocals) {
	if loc.upstreamCompleted && len(loc.queue) == 0 {
		if n.outbound[0].alive() {
			n.outbound[0].send(OnCompleteSignal{})
		}
		n.complete()
	}
}

func bufferTopUp(n *Node, loc *bufferLocals) {
	if loc.upstreamCompleted {
		return
	}
	have := uint64(len(loc.queue)) + loc.upstreamOutstanding
	cap64 := uint64(loc.capacity)
	if have >= cap64 || !n.inbound[0].alive() {
		return
	}
	want := cap64 - have
	loc.upstreamOutstanding += want
	n.inbound[0].send(RequestSignal{N: want})
}
