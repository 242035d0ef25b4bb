// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// PrefixAndTailResult is the single element the main output of a
// [NewPrefixAndTailNode] delivers: the buffered prefix, paired with a
// node standing in for everything after it. Connect Tail's outbound
// port to drain the remainder; it inherits whatever demand you issue
// on it directly from the original upstream (spec.md §4.2).
type PrefixAndTailResult struct {
	Prefix []any
	Tail   *Node
}

// prefixAndTailLocals is the mutable state behind a
// [NewPrefixAndTailNode]. pending counts prefix elements still needed;
// it reaches 0 once the prefix is fully buffered.
type prefixAndTailLocals struct {
	prefixSize            uint32
	prefix                []any
	pending               uint32
	mainRequested         bool
	upstreamCompletedEarly bool
	sub                   *Node
	tailTerminal          Signal
}

// NewPrefixAndTailNode returns a one-in-one-out node that buffers the
// first prefixSize elements of its upstream, delivers them once as a
// [PrefixAndTailResult] paired with a tail sub-source node, then
// completes its own main output — while continuing, internally, to
// relay every further upstream signal to that tail node (spec.md §4.2).
//
// Panics if prefixSize is 0.
func NewPrefixAndTailNode[T any](cfg *Config, prefixSize uint32) *Node {
	if prefixSize == 0 {
		panic("streamline: prefixAndTail prefixSize must be > 0")
	}
	n := newNode(cfg, KindPrefixAndTail, 1, 1)
	n.locals = &prefixAndTailLocals{prefixSize: prefixSize, pending: prefixSize}
	n.onSeal = func(n *Node) {
		n.setState(prefixAssemblingState, true)
		n.region.registerXStart(n)
	}
	return n
}

// prefixAssemblingState corresponds to spec.md §4.2's assembling(pending,
// mainRequested): invariant pending > 0. It also handles XStartSignal
// directly (issuing the node's own upstream request for the prefix)
// rather than waiting in a separate state first, since a downstream
// consumer's own XStart-triggered request can arrive either before or
// after this node's XStart depending on region xStart registration
// order, and both must be valid here.
func prefixAssemblingState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*prefixAndTailLocals)
	switch s := sig.(type) {
	case XStartSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(RequestSignal{N: uint64(loc.pending)})
		}
	case RequestSignal:
		loc.mainRequested = true
	case CancelSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
		n.complete()
	case OnNextSignal:
		loc.prefix = append(loc.prefix, s.Elem)
		loc.pending--
		if loc.pending == 0 {
			if loc.mainRequested {
				prefixEmit(n, loc, false)
			} else {
				n.setState(prefixAwaitingDemandState, true)
			}
		}
	case OnCompleteSignal:
		// Upstream ran out before the prefix filled: emit the partial
		// prefix with an empty tail and terminate (spec.md §4.2, P5).
		prefixEmit(n, loc, true)
	case OnErrorSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal assembling prefixAndTail"))
	}
}

func prefixAwaitingDemandState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*prefixAndTailLocals)
	switch s := sig.(type) {
	case RequestSignal:
		loc.mainRequested = true
		prefixEmit(n, loc, loc.upstreamCompletedEarly)
	case CancelSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
		n.complete()
	case OnCompleteSignal:
		// Prefix exactly exhausted upstream; remember it, emit an empty
		// tail once downstream finally asks for the head pair.
		loc.upstreamCompletedEarly = true
	case OnErrorSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal awaiting demand at prefixAndTail"))
	}
}

func prefixEmit(n *Node, loc *prefixAndTailLocals, tailEmpty bool) {
	sub := newNode(n.cfg, KindTailSource, 0, 1)
	sub.locals = n
	sub.onSeal = func(s *Node) {
		s.setState(tailSourceState, true)
	}
	sub.seal(n.region)
	loc.sub = sub

	pair := &PrefixAndTailResult{Prefix: append([]any(nil), loc.prefix...), Tail: sub}
	if n.outbound[0].alive() {
		n.outbound[0].send(OnNextSignal{Elem: pair})
	}
	if n.outbound[0].alive() {
		n.outbound[0].send(OnCompleteSignal{})
	}
	if tailEmpty {
		sub.deliver(OnCompleteSignal{}, nil)
		n.complete()
		return
	}
	n.setState(drainingState, true)
}

// drainingState relays every further real-upstream signal to the tail
// sub-source, exactly as spec.md §4.2's draining state describes.
func drainingState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*prefixAndTailLocals)
	switch sig.(type) {
	case OnNextSignal:
		loc.sub.deliver(sig, nil)
	case OnCompleteSignal:
		loc.sub.deliver(sig, nil)
		n.complete()
	case OnErrorSignal:
		loc.sub.deliver(sig, nil)
		n.complete()
	case RequestSignal, CancelSignal:
		// The main output already carried onNext(pair)+onComplete before
		// this state was entered; a standard one-at-a-time consumer reacts
		// to that onNext with its own request, which can still be in
		// flight (buffered by the intercept) when draining starts. Nothing
		// downstream of the main output is live anymore, so there is
		// nothing to forward it to.
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal while draining prefixAndTail"))
	}
}

// tailSourceState backs the dynamically created tail node: it has no
// real inbound port of its own, so request/cancel issued on its real
// outbound edge are relayed to the owning prefixAndTail node's real
// upstream edge directly, and onNext/onComplete/onError relayed in by
// that owner (via is nil) are forwarded on the tail's own real outbound
// edge. A terminal signal relayed in before anything is connected to the
// tail is held and delivered on the tail's first request.
func tailSourceState(sub *Node, sig Signal, via *port) {
	owner := sub.locals.(*Node)
	loc := owner.locals.(*prefixAndTailLocals)
	switch s := sig.(type) {
	case RequestSignal:
		if loc.tailTerminal != nil {
			sub.outbound[0].send(loc.tailTerminal)
			sub.complete()
			return
		}
		if owner.inbound[0].alive() {
			owner.inbound[0].send(s)
		}
	case CancelSignal:
		if owner.inbound[0].alive() {
			owner.inbound[0].send(s)
		}
		sub.complete()
		owner.complete()
	case OnNextSignal:
		if sub.outbound[0].alive() {
			sub.outbound[0].send(s)
		}
	case OnCompleteSignal:
		if sub.outbound[0].peer == nil {
			loc.tailTerminal = s
			return
		}
		if sub.outbound[0].alive() {
			sub.outbound[0].send(s)
		}
		sub.complete()
	case OnErrorSignal:
		if sub.outbound[0].peer == nil {
			loc.tailTerminal = s
			return
		}
		if sub.outbound[0].alive() {
			sub.outbound[0].send(s)
		}
		sub.complete()
	default:
		sub.fail(newProtocolError(sub.id, sub.kind, "unexpected signal at prefixAndTail tail source"))
	}
}
