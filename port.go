// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "errors"

// ErrPortAlreadyBound is returned by [Connect] when either port already
// has a peer.
var ErrPortAlreadyBound = errors.New("streamline: port already bound")

// port is a typed directional handle between two nodes (spec.md §3).
// Ports are thin: they carry the peer reference and the index used for
// routing multi-port signals (e.g. which upstream fed an onNext into a
// fan-in, or which outbound a fan-out should advance past).
type port struct {
	node        *Node
	outbound    bool
	index       int
	peer        *port
	terminated  bool // I2: true once a terminal signal has traveled on this edge
}

// OutboundPort is a handle exporting one of a node's outbound ports.
type OutboundPort struct{ p *port }

// InboundPort is a handle exporting one of a node's inbound ports.
type InboundPort struct{ p *port }

// Index returns this port's position among its node's ports of the same
// direction, stable from construction (or, for a dynamically added
// inbound port, from the moment it was added).
func (p OutboundPort) Index() int { return p.p.index }
func (p InboundPort) Index() int  { return p.p.index }

// Node returns the node that owns this port.
func (p OutboundPort) Node() *Node { return p.p.node }
func (p InboundPort) Node() *Node  { return p.p.node }

// Connect binds an outbound port to an inbound port. It fails if either
// port is already bound (spec.md §6.2).
func Connect(out OutboundPort, in InboundPort) error {
	if out.p.peer != nil || in.p.peer != nil {
		return ErrPortAlreadyBound
	}
	out.p.peer = in.p
	in.p.peer = out.p
	return nil
}

// send delivers sig to the peer of p, tagged with the peer's own port so
// the receiving node can identify which of its ports the signal arrived
// on. Sending on an unbound port is a no-op (the edge simply has no peer
// yet, or was already torn down).
func (p *port) send(sig Signal) {
	if p.peer == nil || p.terminated {
		return
	}
	switch sig.(type) {
	case CancelSignal, OnCompleteSignal, OnErrorSignal:
		p.terminated = true
		p.peer.terminated = true
	}
	p.peer.node.deliver(sig, p.peer)
}

// alive reports whether this port's edge may still carry signals (I2).
func (p *port) alive() bool {
	return p.peer != nil && !p.terminated
}
