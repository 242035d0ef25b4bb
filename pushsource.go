// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"sync"

	"github.com/bassosimone/streamline/queue"
)

// PushHandle is the producer-facing side of a [NewPushSource]: the only
// part of this package meant to be called concurrently, from arbitrary
// external threads (spec.md §4.6).
type PushHandle[T any] struct {
	node *Node
	q    *queue.Queue[T]

	mu          sync.Mutex
	onDequeued  func(n int)
	onCancel    func()
	cancelFired bool
}

// Offer attempts to enqueue elem, returning false iff the queue is
// already at its maximum capacity ([queue.New] raises a requested
// maximum below 4 and rounds it up to a power of two above the initial
// capacity). On success it posts a
// NewAvailable xEvent so the node drains on its own region.
func (h *PushHandle[T]) Offer(elem T) bool {
	ok := h.q.Offer(elem)
	if ok {
		h.node.deliver(XEventSignal{Payload: newAvailableEvent{}}, nil)
	}
	return ok
}

// OfferMany enqueues elems greedily, stopping at the first rejection,
// and returns how many were actually enqueued. Posts at most one
// NewAvailable xEvent if anything was enqueued.
func (h *PushHandle[T]) OfferMany(elems []T) uint32 {
	var n uint32
	for _, e := range elems {
		if !h.q.Offer(e) {
			break
		}
		n++
	}
	if n > 0 {
		h.node.deliver(XEventSignal{Payload: newAvailableEvent{}}, nil)
	}
	return n
}

// Complete requests a clean completion once every already-queued
// element has been drained.
func (h *PushHandle[T]) Complete() {
	h.node.deliver(XEventSignal{Payload: completeEvent{}}, nil)
}

// ErrorComplete requests completion with err once every already-queued
// element has been drained.
func (h *PushHandle[T]) ErrorComplete(err error) {
	h.node.deliver(XEventSignal{Payload: errorCompleteEvent{err: err}}, nil)
}

// QueueSize is an approximate, non-synchronized observation of how many
// elements are currently queued.
func (h *PushHandle[T]) QueueSize() int { return h.q.Size() }

// AcceptsNext is an approximate, non-synchronized observation of
// whether the next Offer would likely succeed.
func (h *PushHandle[T]) AcceptsNext() bool { return h.q.AcceptsNext() }

// OnDequeued registers a callback invoked after a drain that actually
// dequeues n > 0 elements, possibly from the node's own dispatcher
// goroutine rather than the caller's.
func (h *PushHandle[T]) OnDequeued(cb func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDequeued = cb
}

// OnCancel registers a callback invoked exactly once, the first time
// downstream cancels — including if that happens after Complete or
// ErrorComplete was already called.
func (h *PushHandle[T]) OnCancel(cb func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCancel = cb
}

func (h *PushHandle[T]) notifyDequeued(n int) {
	h.mu.Lock()
	cb := h.onDequeued
	h.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

func (h *PushHandle[T]) notifyCancelOnce() {
	h.mu.Lock()
	if h.cancelFired {
		h.mu.Unlock()
		return
	}
	h.cancelFired = true
	cb := h.onCancel
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// pushSourceLocals is the mutable state behind a [NewPushSource] node:
// outstanding downstream demand and whatever terminal outcome was
// requested via the handle.
type pushSourceLocals[T any] struct {
	handle            *PushHandle[T]
	demand            uint64
	completeRequested bool
	errorRequested    error
}

// NewPushSource returns a zero-in-one-out node fed by an external,
// bounded MPSC queue, and the [PushHandle] producers use to feed it
// (spec.md §4.6). The node always runs in an asynchronous region, since
// it can be driven from outside the graph at any time.
func NewPushSource[T any](cfg *Config, initialCapacity, maxCapacity uint32) (*Node, *PushHandle[T]) {
	n := newNode(cfg, KindPushSource, 0, 1)
	n.forceAsync = true
	h := &PushHandle[T]{node: n, q: queue.New[T](initialCapacity, maxCapacity)}
	n.locals = &pushSourceLocals[T]{handle: h}
	n.onSeal = func(n *Node) {
		n.setState(pushSourceState[T], true)
	}
	return n, h
}

func pushSourceState[T any](n *Node, sig Signal, via *port) {
	loc := n.locals.(*pushSourceLocals[T])
	switch s := sig.(type) {
	case RequestSignal:
		loc.demand += s.N
		pushSourceDrain(n, loc)
	case CancelSignal:
		loc.handle.notifyCancelOnce()
		n.complete()
	case XEventSignal:
		switch p := s.Payload.(type) {
		case newAvailableEvent:
			pushSourceDrain(n, loc)
		case completeEvent:
			loc.completeRequested = true
			pushSourceDrain(n, loc)
		case errorCompleteEvent:
			loc.errorRequested = p.err
			pushSourceDrain(n, loc)
		default:
			n.fail(newProtocolError(n.id, n.kind, "unknown xEvent payload at pushSource"))
		}
	default:
		n.fail(newProtocolError(n.id, n.kind, "unexpected signal at pushSource"))
	}
}

// pushSourceDrain implements spec.md §4.6's drain loop: while demand is
// outstanding and the queue is non-empty, dequeue and emit; once the
// queue is empty, honor whichever terminal outcome (if any) was
// requested through the handle. An offerer-reported failure
// ([PushHandle.ErrorComplete]) is classified and wrapped in a
// [ResourceError] before it reaches downstream — this is the offerer
// side of a push-source that [ResourceError]'s doc comment describes.
func pushSourceDrain[T any](n *Node, loc *pushSourceLocals[T]) {
	if loc.demand > 0 {
		const maxInt = uint64(^uint(0) >> 1)
		want := loc.demand
		if want > maxInt {
			want = maxInt
		}
		elems := loc.handle.q.DequeueN(int(want))
		if len(elems) > 0 {
			loc.demand -= uint64(len(elems))
			for _, e := range elems {
				if n.outbound[0].alive() {
					n.outbound[0].send(OnNextSignal{Elem: e})
				}
			}
			loc.handle.notifyDequeued(len(elems))
		}
	}
	if loc.handle.q.Size() > 0 {
		return
	}
	if loc.errorRequested != nil {
		class := n.cfg.ErrClassifier.Classify(loc.errorRequested)
		err := newResourceError(n.id, n.kind, loc.errorRequested, class)
		if n.outbound[0].alive() {
			n.outbound[0].send(OnErrorSignal{Err: err})
		}
		n.complete()
		return
	}
	if loc.completeRequested {
		if n.outbound[0].alive() {
			n.outbound[0].send(OnCompleteSignal{})
		}
		n.complete()
	}
}
