// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "golang.org/x/sync/semaphore"

// flattenSub tracks one materialized sub-source: the node itself, the
// index of the inbound port it was attached to, and how much demand is
// currently outstanding against it (sent but not yet fulfilled by an
// onNext it delivered).
type flattenSub struct {
	node       *Node
	inboundIdx int
	requested  uint64
}

// flattenConcatLocals is the mutable state behind a
// [NewFlattenConcatNode]: the ordered list of currently live
// sub-sources (head is the one currently allowed to emit) and the
// downstream demand not yet satisfied (spec.md §4.4).
type flattenConcatLocals struct {
	parallelism       uint32
	sem               *semaphore.Weighted
	subs              []*flattenSub
	remaining         uint64
	upstreamCompleted bool
}

// NewFlattenConcatNode returns a one-in-one-out node that concatenates
// a stream of sub-sources, built on demand from upstream elements via
// adapt, without ever interleaving their outputs (spec.md §4.4). At most
// parallelism sub-sources, counting the one currently being drained, are
// subscribed at once, bounding how far the stage runs ahead of the consumer
// without affecting output order.
//
// Panics if parallelism is 0.
func NewFlattenConcatNode[T any](cfg *Config, parallelism uint32, adapt func(T) *Node) *Node {
	if parallelism == 0 {
		panic("streamline: flattenConcat parallelism must be > 0")
	}
	n := newNode(cfg, KindFlattenConcat, 1, 1)
	n.locals = &flattenConcatLocals{
		parallelism: parallelism,
		sem:         semaphore.NewWeighted(int64(parallelism)),
	}
	n.onSeal = func(n *Node) {
		n.setState(flattenConcatState[T](adapt), true)
		n.region.registerXStart(n)
	}
	return n
}

func flattenConcatState[T any](adapt func(T) *Node) stateFunc {
	return func(n *Node, sig Signal, via *port) {
		loc := n.locals.(*flattenConcatLocals)
		switch s := sig.(type) {
		case XStartSignal:
			if n.inbound[0].alive() {
				n.inbound[0].send(RequestSignal{N: uint64(loc.parallelism)})
			}
		case OnSubscribeSignal:
			if len(loc.subs) > 0 && loc.subs[0].node == s.Sub && loc.remaining > 0 {
				flattenForwardDemand(n, loc.subs[0], loc.remaining)
			}
		case RequestSignal:
			loc.remaining += s.N
			if len(loc.subs) > 0 {
				flattenForwardDemand(n, loc.subs[0], loc.remaining)
			}
		case CancelSignal:
			flattenCancelAll(n, loc)
			n.complete()
		case OnNextSignal:
			if via != nil && via.index == 0 {
				t, ok := s.Elem.(T)
				if !ok {
					n.fail(newProtocolError(n.id, n.kind, "onNext element type mismatch at flattenConcat"))
					return
				}
				flattenMaterialize(n, loc, adapt(t))
				return
			}
			if n.outbound[0].alive() {
				n.outbound[0].send(s)
			}
			if loc.remaining > 0 {
				loc.remaining--
			}
			if len(loc.subs) > 0 && loc.subs[0].requested > 0 {
				loc.subs[0].requested--
			}
		case OnCompleteSignal:
			if via != nil && via.index == 0 {
				loc.upstreamCompleted = true
				if len(loc.subs) == 0 {
					n.complete()
				}
				return
			}
			flattenSubCompleted(n, loc, via)
		case OnErrorSignal:
			if n.outbound[0].alive() {
				n.outbound[0].send(s)
			}
			flattenCancelAll(n, loc)
			n.complete()
		default:
			n.fail(newProtocolError(n.id, n.kind, "unexpected signal at flattenConcat"))
		}
	}
}

// flattenForwardDemand tops up sub's outstanding request so that it
// matches the current global remaining demand: remaining and
// sub.requested both decrease, in lockstep, as the head sub delivers
// (see the OnNextSignal case above), so a sub that has already
// consumed part of what it was granted still gets topped up correctly
// when more downstream demand arrives, instead of being compared
// against a stale cumulative total.
func flattenForwardDemand(n *Node, sub *flattenSub, remaining uint64) {
	if remaining <= sub.requested {
		return
	}
	delta := remaining - sub.requested
	sub.requested = remaining
	if n.inbound[sub.inboundIdx].alive() {
		n.inbound[sub.inboundIdx].send(RequestSignal{N: delta})
	}
}

func flattenMaterialize(n *Node, loc *flattenConcatLocals, sub *Node) {
	if !loc.sem.TryAcquire(1) {
		n.fail(newProtocolError(n.id, n.kind, "flattenConcat exceeded configured parallelism"))
		return
	}
	in := n.addInboundPort()
	if err := Connect(sub.Out(0), in); err != nil {
		loc.sem.Release(1)
		n.fail(newProtocolError(n.id, n.kind, "flattenConcat sub-source output already bound"))
		return
	}
	for _, sn := range discoverNodes([]*Node{sub}) {
		sn.seal(n.region)
	}
	loc.subs = append(loc.subs, &flattenSub{node: sub, inboundIdx: in.Index()})
	n.dispatchLocal(OnSubscribeSignal{Sub: sub}, nil)
}

func flattenSubCompleted(n *Node, loc *flattenConcatLocals, via *port) {
	if len(loc.subs) == 0 || via == nil {
		return
	}
	if via.index == loc.subs[0].inboundIdx {
		loc.sem.Release(1)
		loc.subs = loc.subs[1:]
		if len(loc.subs) > 0 && loc.remaining > 0 {
			flattenForwardDemand(n, loc.subs[0], loc.remaining)
		}
		if !loc.upstreamCompleted && n.inbound[0].alive() {
			n.inbound[0].send(RequestSignal{N: 1})
		}
		if loc.upstreamCompleted && len(loc.subs) == 0 {
			if n.outbound[0].alive() {
				n.outbound[0].send(OnCompleteSignal{})
			}
			n.complete()
		}
		return
	}
	for i, sub := range loc.subs {
		if sub.inboundIdx == via.index {
			loc.sem.Release(1)
			loc.subs = append(loc.subs[:i], loc.subs[i+1:]...)
			break
		}
	}
}

func flattenCancelAll(n *Node, loc *flattenConcatLocals) {
	if n.inbound[0].alive() {
		n.inbound[0].send(CancelSignal{})
	}
	for _, sub := range loc.subs {
		if n.inbound[sub.inboundIdx].alive() {
			n.inbound[sub.inboundIdx].send(CancelSignal{})
		}
	}
}
