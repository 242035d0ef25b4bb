// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "context"

// NewMapNode returns a one-in-one-out node that applies f to every
// element it forwards (spec.md §4.1). Demand passes through unchanged:
// a map node never buffers, so it needs no queue of its own.
//
// If f returns an error, the node cancels its upstream edge, emits
// onError downstream, and becomes terminal (spec.md §7).
func NewMapNode[A, B any](cfg *Config, f func(context.Context, A) (B, error)) *Node {
	fn := FuncAdapter[A, B](f)
	n := newNode(cfg, KindMap, 1, 1)
	n.onSeal = func(n *Node) {
		n.setState(mapState[A, B](fn), false)
	}
	return n
}

// mapState is non-intercepting: applying f is a synchronous, one-shot
// transform with no internal state to protect from reentrancy, so a
// signal that arrives while a prior one is still being dispatched can
// run straight through instead of queueing behind it.
func mapState[A, B any](fn Func[A, B]) stateFunc {
	return func(n *Node, sig Signal, via *port) {
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
			a, ok := s.Elem.(A)
			if !ok {
				n.fail(newProtocolError(n.id, n.kind, "onNext element type mismatch at map"))
				return
			}
			b, err := fn.Call(context.Background(), a)
			if err != nil {
				n.fail(newUserError(n.id, n.kind, err))
				return
			}
			if n.outbound[0].alive() {
				n.outbound[0].send(OnNextSignal{Elem: b})
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
			n.fail(newProtocolError(n.id, n.kind, "unexpected signal at map"))
		}
	}
}
