// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// fanOutLocals is the mutable state behind a [NewFanOutNode]: per-outlet
// demand and liveness, plus the cursor used to round-robin onNext
// across the alive outlets (spec.md §4.3).
type fanOutLocals struct {
	eagerCancel bool
	demand      []uint64
	alive       []bool
	cursor      int
	inFlight    bool
}

// NewFanOutNode returns a one-in-N-out node that round-robins each
// upstream element to the next alive outlet after the one that last
// received (spec.md §4.3). Upstream is asked for one element at a time,
// only once every alive outlet has at least one unit of outstanding
// demand.
//
// If eagerCancel is true, any one outlet cancelling tears the whole
// node down immediately; otherwise the node keeps routing to the
// remaining alive outlets and only tears down once all of them have
// cancelled.
func NewFanOutNode(cfg *Config, eagerCancel bool, outlets int) *Node {
	if outlets <= 0 {
		panic("streamline: fanOut outlets must be > 0")
	}
	n := newNode(cfg, KindFanOut, 1, outlets)
	loc := &fanOutLocals{
		eagerCancel: eagerCancel,
		demand:      make([]uint64, outlets),
		alive:       make([]bool, outlets),
		cursor:      outlets - 1,
	}
	for i := range loc.alive {
		loc.alive[i] = true
	}
	n.locals = loc
	n.onSeal = func(n *Node) {
		n.setState(fanOutState, true)
	}
	return n
}

func fanOutState(n *Node, sig Signal, via *port) {
	loc := n.locals.(*fanOutLocals)
	switch s := sig.(type) {
	case RequestSignal:
		idx := via.index
		loc.demand[idx] += s.N
		fanOutMaybeRequestUpstream(n, loc)
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
			fanOutTeardown(n, loc)
		} else {
			fanOutMaybeRequestUpstream(n, loc)
		}
	case OnNextSignal:
		idx, ok := fanOutNextAlive(loc)
		loc.inFlight = false
		if !ok {
			return
		}
		loc.demand[idx]--
		loc.cursor = idx
		if n.outbound[idx].alive() {
			n.outbound[idx].send(s)
		}
		fanOutMaybeRequestUpstream(n, loc)
	case OnCompleteSignal:
		fanOutBroadcast(n, loc, s)
		n.complete()
	case OnErrorSignal:
		fanOutBroadcast(n, loc, s)
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at fanOut"))
	}
}

// fanOutNextAlive finds the next alive outlet after cursor, wrapping
// around, breaking ties by insertion order (spec.md §4.3).
func fanOutNextAlive(loc *fanOutLocals) (int, bool) {
	n := len(loc.alive)
	for i := 1; i <= n; i++ {
		idx := (loc.cursor + i) % n
		if loc.alive[idx] {
			return idx, true
		}
	}
	return 0, false
}

func fanOutMaybeRequestUpstream(n *Node, loc *fanOutLocals) {
	if loc.inFlight {
		return
	}
	var minDemand uint64
	found := false
	for i, a := range loc.alive {
		if !a {
			continue
		}
		if !found || loc.demand[i] < minDemand {
			minDemand = loc.demand[i]
			found = true
		}
	}
	if found && minDemand > 0 {
		loc.inFlight = true
		if n.inbound[0].alive() {
			n.inbound[0].send(RequestSignal{N: 1})
		}
	}
}

func fanOutBroadcast(n *Node, loc *fanOutLocals, sig Signal) {
	for i, a := range loc.alive {
		if a && n.outbound[i].alive() {
			n.outbound[i].send(sig)
		}
	}
}

func fanOutTeardown(n *Node, loc *fanOutLocals) {
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
