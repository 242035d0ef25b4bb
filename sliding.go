// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// slidingLocals is the mutable state behind a [NewSlidingNode]: the
// window under construction, how many further windows downstream still
// wants, and how many raw elements are already requested upstream but
// not yet delivered.
type slidingLocals struct {
	size, step          uint32
	window              []any
	pendingWindowDemand uint64
	upstreamOutstanding uint64
	upstreamCompleted   bool
	primed              bool
}

// NewSlidingNode returns a one-in-one-out node that emits overlapping
// fixed-size windows of size elements, advancing by step elements each
// time (SPEC_FULL.md §4.9). One downstream request unit corresponds to
// one emitted window; the node translates that into however many raw
// upstream elements are needed to produce it.
//
// An incomplete trailing window (fewer than size elements buffered when
// upstream completes) is discarded rather than emitted short.
//
// Panics if size is 0, step is 0, or step > size: a step larger than
// the window would silently skip input elements, which this node does
// not support.
func NewSlidingNode[T any](cfg *Config, size, step uint32) *Node {
	if size == 0 {
		panic("streamline: sliding size must be > 0")
	}
	if step == 0 {
		panic("streamline: sliding step must be > 0")
	}
	if step > size {
		panic("streamline: sliding step must be <= size")
	}
	n := newNode(cfg, KindSliding, 1, 1)
	n.locals = &slidingLocals{size: size, step: step}
	n.onSeal = func(n *Node) {
		n.setState(slidingState, true)
		n.region.registerXStart(n)
	}
	return n
}

func slidingState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*slidingLocals)
	switch s := sig.(type) {
	case XStartSignal:
		slidingPrime(n, loc)
	case RequestSignal:
		loc.pendingWindowDemand += s.N
		slidingEmitReady(n, loc)
		slidingTopUp(n, loc)
	case CancelSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
		n.complete()
	case OnNextSignal:
		if loc.upstreamOutstanding > 0 {
			loc.upstreamOutstanding--
		}
		loc.window = append(loc.window, s.Elem)
		slidingEmitReady(n, loc)
		slidingTopUp(n, loc)
	case OnCompleteSignal:
		loc.upstreamCompleted = true
		if n.outbound[0].alive() {
			n.outbound[0].send(OnCompleteSignal{})
		}
		n.complete()
	case OnErrorSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at sliding"))
	}
}

// slidingPrime issues the greedy, demand-independent request for the
// first window's raw elements (SPEC_FULL.md §4.9, "before the first
// window it requests the full size greedily regardless of downstream
// demand" — mirrors PrefixAndTail's own XStart priming in spec.md §4.2).
// It does nothing if a downstream request has already made
// [slidingTopUp] ask upstream for elements.
func slidingPrime(n *Node, loc *slidingLocals) {
	if loc.primed {
		return
	}
	loc.primed = true
	loc.upstreamOutstanding += uint64(loc.size)
	if n.inbound[0].alive() {
		n.inbound[0].send(RequestSignal{N: uint64(loc.size)})
	}
}

// slidingEmitReady emits the held window once both a full window is
// buffered and downstream actually wants one. A window primed ahead of
// demand (the first one) sits complete-but-unsent until the first
// RequestSignal arrives, exactly like PrefixAndTail's
// prefixAwaitingDemandState holds a filled prefix.
func slidingEmitReady(n *Node, loc *slidingLocals) {
	if loc.pendingWindowDemand == 0 || uint32(len(loc.window)) != loc.size {
		return
	}
	emitted := make([]any, loc.size)
	copy(emitted, loc.window)
	loc.window = append([]any(nil), loc.window[loc.step:]...)
	loc.pendingWindowDemand--
	if n.outbound[0].alive() {
		n.outbound[0].send(OnNextSignal{Elem: emitted})
	}
}

func slidingTopUp(n *Node, loc *slidingLocals) {
	if loc.upstreamCompleted {
		return
	}
	if loc.pendingWindowDemand == 0 || loc.upstreamOutstanding > 0 {
		return
	}
	need := loc.size - uint32(len(loc.window))
	if need == 0 || !n.inbound[0].alive() {
		return
	}
	loc.primed = true
	loc.upstreamOutstanding += uint64(need)
	n.inbound[0].send(RequestSignal{N: uint64(need)})
}
