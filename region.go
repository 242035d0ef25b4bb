// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunMode is a region's execution strategy, decided once at discovery
// time (spec.md §4.7).
type RunMode int

const (
	// ModeSync dispatches every signal by direct call, on whatever
	// goroutine produced it. No mailbox, no extra goroutine.
	ModeSync RunMode = iota
	// ModeAsync serializes every signal destined for the region through
	// a mailbox drained by a single goroutine at a time, scheduled via
	// [Config.Executor]. Required whenever a region has a member that
	// can be driven from outside the graph (currently: push-source).
	ModeAsync
)

// mailboxEvent is one pending delivery in an async region's mailbox.
type mailboxEvent struct {
	node *Node
	sig  Signal
	via  *port
}

// Region is a maximal set of topologically connected nodes that share
// one execution strategy (spec.md §4.7). Union-find over every
// [Connect]ed edge discovers regions; a region becomes [ModeAsync] if
// any of its members opted into asynchrony at construction, regardless
// of how it is connected to the rest of the region — including across
// a [NewCoupling]-closed cycle, which is purely topological and never
// splits a region on its own.
type Region struct {
	mode RunMode
	cfg  *Config

	members   []*Node
	liveCount int

	xstart []*Node

	mu        sync.Mutex
	mailbox   []mailboxEvent
	scheduled bool

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

func newRegion(cfg *Config, mode RunMode) *Region {
	return &Region{mode: mode, cfg: cfg, done: make(chan struct{})}
}

func (r *Region) addMember(n *Node) {
	r.members = append(r.members, n)
	r.liveCount++
}

// registerXStart enrolls n to receive [XStartSignal] exactly once, when
// its region starts running. Only nodes that must take independent
// initiative at the very beginning of a run (typically a consumer that
// issues the graph's first request) need to call this, from their
// onSeal hook.
func (r *Region) registerXStart(n *Node) {
	r.xstart = append(r.xstart, n)
}

func (r *Region) nodeTerminated(n *Node) {
	r.mu.Lock()
	r.liveCount--
	live := r.liveCount
	r.mu.Unlock()
	if live <= 0 {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

// enqueue appends ev to the region's mailbox and, if no drain is
// currently scheduled, schedules exactly one via [Config.Executor]
// ("wake-once": the caller that flips scheduled false->true is the only
// one that triggers a new drain).
func (r *Region) enqueue(ev mailboxEvent) {
	r.mu.Lock()
	r.mailbox = append(r.mailbox, ev)
	needSchedule := !r.scheduled
	if needSchedule {
		r.scheduled = true
	}
	r.mu.Unlock()
	if needSchedule {
		r.cfg.Executor(r.drain)
	}
}

// drain runs on at most one goroutine at a time per region. It pops and
// dispatches mailbox entries in FIFO order until the mailbox is empty,
// re-checking emptiness under the same lock it uses to clear the
// scheduled flag so a concurrent enqueue can never be lost.
func (r *Region) drain() {
	defer func() {
		if rec := recover(); rec != nil {
			fe, ok := rec.(*fatalError)
			if !ok {
				panic(rec)
			}
			r.mu.Lock()
			r.err = fe
			r.mailbox = nil
			r.scheduled = false
			r.mu.Unlock()
			r.doneOnce.Do(func() { close(r.done) })
		}
	}()
	for {
		r.mu.Lock()
		if len(r.mailbox) == 0 {
			r.scheduled = false
			r.mu.Unlock()
			return
		}
		ev := r.mailbox[0]
		r.mailbox = r.mailbox[1:]
		r.mu.Unlock()
		ev.node.dispatchLocal(ev.sig, ev.via)
	}
}

// start delivers XStartSignal to every xStart-registered member. For a
// sync region this runs inline, on the caller's goroutine, recovering a
// [*fatalError] and reporting it as the region's own error (spec.md
// §4.7, "tear down the region"). For an async region it seeds the
// mailbox and lets the normal drain protocol take over.
func (r *Region) start() error {
	if r.mode == ModeAsync {
		if len(r.xstart) == 0 {
			return nil
		}
		r.mu.Lock()
		for _, n := range r.xstart {
			r.mailbox = append(r.mailbox, mailboxEvent{node: n, sig: XStartSignal{}})
		}
		needSchedule := !r.scheduled
		if needSchedule {
			r.scheduled = true
		}
		r.mu.Unlock()
		if needSchedule {
			r.cfg.Executor(r.drain)
		}
		return nil
	}
	return r.runSyncGuarded(func() {
		for _, n := range r.xstart {
			n.dispatchLocal(XStartSignal{}, nil)
		}
	})
}

func (r *Region) runSyncGuarded(f func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			fe, ok := rec.(*fatalError)
			if !ok {
				panic(rec)
			}
			err = fe
			r.err = fe
		}
	}()
	f()
	return nil
}

// unionFind is a disjoint-set over *Node with path compression, used by
// [SealAndRun] to discover regions (spec.md §4.7).
type unionFind struct {
	parent map[*Node]*Node
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[*Node]*Node)}
}

func (u *unionFind) find(n *Node) *Node {
	p, ok := u.parent[n]
	if !ok {
		u.parent[n] = n
		return n
	}
	if p == n {
		return n
	}
	root := u.find(p)
	u.parent[n] = root
	return root
}

func (u *unionFind) union(a, b *Node) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// discoverNodes returns every node reachable from roots by following
// bound ports in either direction.
func discoverNodes(roots []*Node) []*Node {
	seen := make(map[*Node]bool)
	var order []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		for _, p := range n.inbound {
			if p.peer != nil {
				visit(p.peer.node)
			}
		}
		for _, p := range n.outbound {
			if p.peer != nil {
				visit(p.peer.node)
			}
		}
	}
	for _, root := range roots {
		visit(root)
	}
	return order
}

// RunHandle observes a graph started by [SealAndRun]. Synchronous
// regions have already finished by the time SealAndRun returns;
// RunHandle exists to observe the asynchronous ones (any region
// touching a push-source).
type RunHandle struct {
	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Done returns a channel closed once every asynchronous region has
// finished (all of its members reached terminal, or one raised a fatal
// error).
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done is closed and returns the first fatal error
// encountered across all asynchronous regions, or nil.
func (h *RunHandle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// SealAndRun discovers regions among every node reachable from roots,
// seals each not-yet-sealed node into its region, and, once every new
// group is sealed, starts every newly created region. Synchronous regions run to completion before
// SealAndRun returns; asynchronous regions run on
// [Config.Executor]-managed goroutines and are observed through the
// returned [*RunHandle] (spec.md §4.7).
//
// A root may already be reachable from a previously sealed node — this
// is the expected way to wire up a dynamically materialized sub-source
// handed back mid-run (e.g. [NewPrefixAndTailNode]'s Tail): connect a
// consumer to it, then call SealAndRun again naming that consumer as a
// root. SealAndRun detects the already-sealed members of such a group,
// seals only the new ones into that same existing region, and delivers
// XStart to whichever of them just registered for it, without creating
// a second, conflicting region for nodes that already belong to one.
//
// cfg may be nil, in which case [NewConfig] supplies the defaults. cfg
// is ignored for any group that turns out to already have a region.
func SealAndRun(cfg *Config, roots ...*Node) (*RunHandle, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	nodes := discoverNodes(roots)

	uf := newUnionFind()
	for _, n := range nodes {
		uf.find(n)
	}
	for _, n := range nodes {
		for _, p := range n.outbound {
			if p.peer != nil {
				uf.union(n, p.peer.node)
			}
		}
	}

	groups := make(map[*Node][]*Node)
	var order []*Node
	for _, n := range nodes {
		root := uf.find(n)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], n)
	}

	handle := &RunHandle{done: make(chan struct{})}

	var firstSyncErr error
	var syncRegions, asyncRegions []*Region

	for _, root := range order {
		members := groups[root]

		var existing *Region
		for _, n := range members {
			if n.sealed {
				existing = n.region
				break
			}
		}
		if existing != nil {
			lenBefore := len(existing.xstart)
			for _, n := range members {
				n.seal(existing)
			}
			fresh := existing.xstart[lenBefore:]
			if existing.mode == ModeAsync {
				for _, n := range fresh {
					existing.enqueue(mailboxEvent{node: n, sig: XStartSignal{}})
				}
			} else {
				for _, n := range fresh {
					n := n
					err := existing.runSyncGuarded(func() { n.dispatchLocal(XStartSignal{}, nil) })
					if err != nil && firstSyncErr == nil {
						firstSyncErr = err
					}
				}
			}
			continue
		}

		mode := ModeSync
		for _, n := range members {
			if n.forceAsync {
				mode = ModeAsync
				break
			}
		}
		r := newRegion(cfg, mode)
		for _, n := range members {
			n.seal(r)
		}
		if r.mode == ModeAsync {
			asyncRegions = append(asyncRegions, r)
			continue
		}
		syncRegions = append(syncRegions, r)
	}
	// Regions start only once every new group is sealed: a sync region's
	// first signals may reach a node of another group (across a coupling).
	for _, r := range syncRegions {
		if err := r.start(); err != nil && firstSyncErr == nil {
			firstSyncErr = err
		}
	}
	for _, r := range asyncRegions {
		_ = r.start()
	}

	if len(asyncRegions) == 0 {
		close(handle.done)
	} else {
		var g errgroup.Group
		for _, r := range asyncRegions {
			r := r
			g.Go(func() error {
				<-r.done
				r.mu.Lock()
				defer r.mu.Unlock()
				return r.err
			})
		}
		go func() {
			err := g.Wait()
			handle.mu.Lock()
			handle.err = err
			handle.mu.Unlock()
			close(handle.done)
		}()
	}
	if firstSyncErr != nil {
		return handle, firstSyncErr
	}
	return handle, nil
}
