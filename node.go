// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "fmt"

// NodeKind is a structural tag for graph analysis. It has no runtime
// effect on dispatch (spec.md §4.0, "kind(): structural tag ... no
// runtime effect").
type NodeKind string

const (
	KindMap            NodeKind = "map"
	KindBuffer         NodeKind = "buffer"
	KindSliding        NodeKind = "sliding"
	KindPrefixAndTail  NodeKind = "prefixAndTail"
	KindTailSource     NodeKind = "tailSource"
	KindFanOut         NodeKind = "fanOutRoundRobin"
	KindBroadcast      NodeKind = "broadcast"
	KindFlattenConcat  NodeKind = "flattenConcat"
	KindPushSource     NodeKind = "pushSource"
	KindCouplingInlet  NodeKind = "couplingInlet"
	KindCouplingOutlet NodeKind = "couplingOutlet"
)

// stateFunc is a node's current behavior: the function invoked for the
// next signal it receives. Transitions install a new stateFunc via
// [Node.setState] (spec.md §4.0).
type stateFunc func(n *Node, sig Signal, via *port)

type queuedSignal struct {
	sig Signal
	via *port
}

// Node is the atomic unit of the graph (spec.md §3).
//
// A Node is always constructed by one of the New*Node functions; its
// zero value is not useful. Node is not safe for concurrent use from
// more than one goroutine except through the region it has been sealed
// into (an async region's mailbox serializes access); see spec.md §5.
type Node struct {
	id   string
	kind NodeKind
	cfg  *Config

	inbound  []*port
	outbound []*port

	state            stateFunc
	interceptEnabled bool
	dispatching      bool
	pending          []queuedSignal

	sealed     bool
	terminal   bool
	forceAsync bool
	region     *Region

	// locals holds node-kind-specific mutable state; each kind's state
	// functions type-assert it to their own private struct.
	locals any

	// onSeal is invoked once, at seal time, typically to install the
	// node's initial state and register it for xStart.
	onSeal func(n *Node)
}

func newNode(cfg *Config, kind NodeKind, numIn, numOut int) *Node {
	n := &Node{
		id:               cfg.IDGenerator(),
		kind:             kind,
		cfg:              cfg,
		interceptEnabled: true,
	}
	n.inbound = make([]*port, numIn)
	for i := range n.inbound {
		n.inbound[i] = &port{node: n, outbound: false, index: i}
	}
	n.outbound = make([]*port, numOut)
	for i := range n.outbound {
		n.outbound[i] = &port{node: n, outbound: true, index: i}
	}
	return n
}

// ID returns the node's stable, construction-time identifier.
func (n *Node) ID() string { return n.id }

// Kind returns the node's structural tag.
func (n *Node) Kind() NodeKind { return n.kind }

// NumInbound returns the number of inbound ports the node currently has.
func (n *Node) NumInbound() int { return len(n.inbound) }

// NumOutbound returns the number of outbound ports the node currently has.
func (n *Node) NumOutbound() int { return len(n.outbound) }

// In returns a handle to the node's i-th inbound port, for [Connect].
func (n *Node) In(i int) InboundPort { return InboundPort{n.inbound[i]} }

// Out returns a handle to the node's i-th outbound port, for [Connect].
func (n *Node) Out(i int) OutboundPort { return OutboundPort{n.outbound[i]} }

// addInboundPort grows the node's inbound port set by one, returning a
// handle to the new port. Used by [NewFlattenConcatNode] to attach a
// freshly materialized sub-source (spec.md §4.4).
func (n *Node) addInboundPort() InboundPort {
	p := &port{node: n, outbound: false, index: len(n.inbound)}
	n.inbound = append(n.inbound, p)
	return InboundPort{p}
}

// setState installs the node's next behavior. intercept controls
// whether reentrant signals that arrive while this state is still
// being dispatched are buffered (the common, safe case) or allowed to
// flow straight through (the documented optimization for a provably
// pass-through state — spec.md §4.0).
func (n *Node) setState(f stateFunc, intercept bool) {
	n.state = f
	n.interceptEnabled = intercept
}

// seal installs the node's region, registers it as a member, and fires
// its seal-time hook. Idempotent (spec.md §3, "sealed exactly once").
func (n *Node) seal(r *Region) {
	if n.sealed {
		return
	}
	n.sealed = true
	n.region = r
	r.addMember(n)
	n.logSealed()
	if n.onSeal != nil {
		n.onSeal(n)
	}
}

// deliver is the single entry point peers use to hand this node a
// signal (via [port.send]). It honors the region boundary: a signal
// destined for a node in an asynchronous region always goes through
// that region's mailbox (spec.md §4.7, §5).
func (n *Node) deliver(sig Signal, via *port) {
	if n.terminal {
		return
	}
	if n.region != nil && n.region.mode == ModeAsync {
		n.region.enqueue(mailboxEvent{node: n, sig: sig, via: via})
		return
	}
	n.dispatchLocal(sig, via)
}

// dispatchLocal runs sig through the node's current state on the
// calling goroutine, honoring the intercept protocol (spec.md §4.0):
// a signal that arrives while the node is already dispatching is
// either buffered (and drained in FIFO order once the outer dispatch
// returns) or, for a non-intercepting state, run straight through.
func (n *Node) dispatchLocal(sig Signal, via *port) {
	if n.terminal {
		return
	}
	if n.dispatching {
		if n.interceptEnabled {
			n.pending = append(n.pending, queuedSignal{sig, via})
			return
		}
		n.runState(sig, via)
		return
	}
	n.dispatching = true
	n.runState(sig, via)
	for len(n.pending) > 0 && !n.terminal {
		qs := n.pending[0]
		n.pending = n.pending[1:]
		n.runState(qs.sig, qs.via)
	}
	n.dispatching = false
}

// runState invokes the current state function for one signal, catching
// a panic raised by user code. A recovered [*fatalError] is
// re-panicked unchanged (spec.md §4.0, "fatal ... not caught; tear down
// the region"); anything else is treated as a [UserError] and handled
// via [Node.fail].
func (n *Node) runState(sig Signal, via *port) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*fatalError); ok {
				n.dispatching = false
				panic(fe)
			}
			var cause error
			switch v := r.(type) {
			case error:
				cause = v
			default:
				cause = fmt.Errorf("%v", v)
			}
			n.fail(newUserError(n.id, n.kind, cause))
		}
	}()
	n.logSignalIn(sig, via)
	n.state(n, sig, via)
}

// fail cancels every still-live inbound edge, emits onError on every
// still-live outbound edge, and becomes terminal (spec.md §7).
func (n *Node) fail(err error) {
	if n.terminal {
		return
	}
	for _, p := range n.inbound {
		if p.alive() {
			p.send(CancelSignal{})
		}
	}
	for _, p := range n.outbound {
		if p.alive() {
			p.send(OnErrorSignal{Err: err})
		}
	}
	n.becomeTerminal(err)
}

// complete marks the node terminal with no error, after it has already
// forwarded (or had no need to forward) a clean completion/cancel.
func (n *Node) complete() {
	n.becomeTerminal(nil)
}

func (n *Node) becomeTerminal(err error) {
	if n.terminal {
		return
	}
	n.terminal = true
	n.logTerminal(err)
	if n.region != nil {
		n.region.nodeTerminated(n)
	}
}

// Terminal reports whether the node has finished (spec.md §3, terminal flag).
func (n *Node) Terminal() bool { return n.terminal }

func (n *Node) logSealed() {
	n.cfg.Logger.Info("nodeSealed", "nodeID", n.id, "kind", string(n.kind), "t", n.cfg.Clock())
}

func (n *Node) logTerminal(err error) {
	if err == nil {
		n.cfg.Logger.Info("nodeTerminal", "nodeID", n.id, "kind", string(n.kind), "err", err, "t", n.cfg.Clock())
		return
	}
	class := n.cfg.ErrClassifier.Classify(err)
	n.cfg.Logger.Info("nodeTerminal", "nodeID", n.id, "kind", string(n.kind), "err", err, "class", class, "t", n.cfg.Clock())
}

func (n *Node) logSignalIn(sig Signal, via *port) {
	n.cfg.Logger.Debug("signalIn", "nodeID", n.id, "kind", string(n.kind), "signal", sig.name())
}
