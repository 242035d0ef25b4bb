// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

// coupling is the shared, unexported state behind a [NewCoupling]
// inlet/outlet pair: elements and terminal signals handed to the inlet
// are relayed to the outlet, and request/cancel handed to the outlet are
// relayed to the inlet, so a graph edge can
// route back to an earlier point in the same graph without deadlocking
// the two halves against each other (spec.md §4.5).
//
// inlet and outlet are not joined by a [port] the way two ordinary
// nodes are, so they can land in different regions (a coupling may
// bridge two otherwise unconnected components). The two halves talk to
// each other through direct [Node.deliver] calls instead, which keeps
// the exchange safe regardless of whether either side is async.
type coupling struct {
	inlet  *Node
	outlet *Node
}

// NewCoupling returns a paired inlet and outlet for closing a cycle in
// the graph. Connect something's outbound port to inlet's single
// inbound port, and outlet's single outbound port to something's
// inbound port; whatever flows into the inlet is relayed out of the
// outlet, and a request or cancel issued on the outlet's downstream
// edge is relayed back as the same signal on the inlet's upstream edge.
//
// A cycle closed this way needs a [NewBufferNode] somewhere on it to
// absorb the phase offset between the demand a consumer issues and the
// demand a coupling can satisfy before its first element has round
// tripped (spec.md §4.5's "bridging a graph's own output back to its
// input needs a node in between that can emit without first being
// handed an element").
func NewCoupling(cfg *Config) (inlet *Node, outlet *Node) {
	c := &coupling{}

	inlet = newNode(cfg, KindCouplingInlet, 1, 1)
	outlet = newNode(cfg, KindCouplingOutlet, 1, 1)
	c.inlet = inlet
	c.outlet = outlet
	inlet.locals = c
	outlet.locals = c

	inlet.onSeal = func(n *Node) {
		n.setState(couplingInletState, true)
	}
	outlet.onSeal = func(n *Node) {
		n.setState(couplingOutletState, true)
	}
	return inlet, outlet
}

// couplingInletState handles two distinct origins of signal:
//   - onNext/onComplete/onError arriving on its real, upstream-facing
//     port: relayed to the outlet via a direct deliver call.
//   - request/cancel relayed in by the outlet (via is nil, since there
//     is no port behind that hop): forwarded on the inlet's own real
//     upstream-facing port.
func couplingInletState(n *Node, sig Signal, via *port) {
	c := n.locals.(*coupling)
	switch s := sig.(type) {
	case RequestSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
	case CancelSignal:
		if n.inbound[0].alive() {
			n.inbound[0].send(s)
		}
		n.complete()
	case OnNextSignal:
		c.outlet.deliver(s, nil)
	case OnCompleteSignal:
		c.outlet.deliver(s, nil)
		n.complete()
	case OnErrorSignal:
		c.outlet.deliver(s, nil)
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal on coupling inlet"))
	}
}

// couplingOutletState is the mirror image of couplingInletState:
//   - request/cancel arriving on its real, downstream-facing port:
//     relayed to the inlet via a direct deliver call.
//   - onNext/onComplete/onError relayed in by the inlet (via is nil):
//     forwarded on the outlet's own real downstream-facing port.
func couplingOutletState(n *Node, sig Signal, via *port) {
	c := n.locals.(*coupling)
	switch s := sig.(type) {
	case RequestSignal:
		c.inlet.deliver(s, nil)
	case CancelSignal:
		c.inlet.deliver(s, nil)
		n.complete()
	case OnNextSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
	case OnCompleteSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	case OnErrorSignal:
		if n.outbound[0].alive() {
			n.outbound[0].send(s)
		}
		n.complete()
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal on coupling outlet"))
	}
}
