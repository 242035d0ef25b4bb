// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// broadcastLocals is the mutable state behind a [NewBroadcastNode]:
// per-outlet demand and liveness. Unlike [fanOutLocals] there is no
// cursor, since every alive outlet receives every element.
type broadcastLocals struct {
	eagerCancel bool
	demand      []uint64
	alive       []bool
	inFlight    bool
}

// NewBroadcastNode returns a one-in-N-out node that sends each upstream
// element to every alive outlet (spec.md's S5 scenario names this
// "fan out broadcast", distinct from the round-robin fan-out in §4.3).
// Upstream is asked for one element at a time, only once every alive
// outlet has at least one unit of outstanding demand, and that element
// is not requested again until it has gone out to all of them.
//
// If eagerCancel is true, any one outlet cancelling tears the whole
// node down immediately; otherwise the node keeps broadcasting to the
// remaining alive outlets and only tears down once all of them have
// cancelled.
func NewBroadcastNode(cfg *Config, eagerCancel bool, outlets int) *Node {
	if outlets <= 0 {
		panic("streamline: broadcast outlets must be > 0")
	}
	n := newNode(cfg, KindBroadcast, 1, outlets)
	loc := &broadcastLocals{
		eagerCancel: eagerCancel,
		demand:      make([]uint64, outlets),
		alive:       make([]bool, outlets),
	}
	for i := range loc.alive {
		loc.alive[i] = true
	}
	n.locals = loc
	n.onSeal = func(n *Node) {
		n.setState(broadcastState, true)
	}
	return n
}

func broadcastState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*broadcastLocals)
	switch s := sig.(type) {
	case RequestSignal:
		idx := via.index
		loc.demand[idx] += s.N
		broadcastMaybeRequestUpstream(n, loc)
	case CancelSignal:
		idx := via.index
		loc.alive[idx] = false
		stillAlive := false
		for _, a := range loc.alive {
			if a {
				stillAlive = true
				break
			}
		}
		if loc.eagerCancel || !stillAlive {
			broadcastTeardown(n, loc)
		} else {
			broadcastMaybeRequestUpstream(n, loc)
		}
	case OnNextSignal:
		loc.inFlight = false
		for i, a := range loc.alive {
			if !a {
				continue
			}
			loc.demand[i]--
			if n.outbound[i].alive() {
				n.outbound[i].send(s)
			}
		}
		broadcastMaybeRequestUpstream(n, loc)
	case OnCompleteSignal:
		broadcastBroadcast(n, loc, s)
		n.complete()
	case OnErrorSignal:
		broadcastBroadcast(n, loc, s)
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at broadcast"))
	}
}

// broadcastMaybeRequestUpstream requests the next upstream element once
// every alive outlet has at least one unit of outstanding demand; each
// element is held back from a further upstream request until it has
// been forwarded to all of them (loc.inFlight).
func broadcastMaybeRequestUpstream(n *Node, loc *broadcastLocals) {
	if loc.inFlight {
		return
	}
	for i, a := range loc.alive {
		if a && loc.demand[i] == 0 {
			return
		}
	}
	loc.inFlight = true
	if n.inbound[0].alive() {
		n.inbound[0].send(RequestSignal{N: 1})
	}
}

func broadcastBroadcast(n *Node, loc *broadcastLocals, sig Signal) {
	for i, a := range loc.alive {
		if a && n.outbound[i].alive() {
			n.outbound[i].send(sig)
		}
	}
}

func broadcastTeardown(n *Node, loc *broadcastLocals) {
	if n.inbound[0].alive() {
		n.inbound[0].send(CancelSignal{})
	}
	for i, a := range loc.alive {
		if a && n.outbound[i].alive() {
			n.outbound[i].send(OnCompleteSignal{})
		}
		loc.alive[i] = false
	}
	n.complete()
}
