// SPDX-License-Identifier: GPL-3.0-or-later

// Package streamline is a demand-driven dataflow runtime: it builds,
// seals, and executes typed graphs of nodes that communicate through a
// pull/push hybrid protocol with bounded memory, back-pressure, and
// well-defined failure propagation.
//
// # Core Abstraction
//
// Two nodes are connected by binding one node's [OutboundPort] to
// another node's [InboundPort] via [Connect]. Once connected, the edge carries
// the following data signals, one at a time:
//
//	request(n)   downstream -> upstream   (n > 0, grants demand)
//	cancel       downstream -> upstream   (terminal)
//	onNext(elem) upstream -> downstream
//	onComplete   upstream -> downstream   (terminal)
//	onError(e)   upstream -> downstream   (terminal)
//
// A node never emits onNext unless the cumulative request on that edge
// strictly exceeds the cumulative onNext already sent — see [Signal].
//
// # Available Node Kinds
//
// Linear transformers (one inbound, one outbound port; only Map passes
// demand straight through):
//   - [NewMapNode]: applies a user [Func] to every element
//   - [NewBufferNode]: a bounded FIFO gate that keeps upstream demand topped up
//   - [NewSlidingNode]: emits overlapping fixed-size windows
//
// Injecting nodes (buffer a prefix, then splice in a tail sub-source):
//   - [NewPrefixAndTailNode]
//
// Fan-out / fan-in:
//   - [NewFanOutNode]: round-robins elements across outbound ports
//   - [NewFlattenConcatNode]: concatenates a stream of sub-sources with bounded
//     pre-subscription parallelism
//
// Externally driven:
//   - [NewPushSource]: a node fed by an external, bounded MPSC queue
//     (see the streamline/queue package)
//
// Cycle closing:
//   - [NewCoupling]: a paired inlet/outlet used to route a graph edge
//     back to an earlier point in the same graph
//
// # Building and Running
//
// Construct nodes, [Connect] their ports, then call [SealAndRun] with the
// graph's root handles. SealAndRun discovers regions (maximal connected
// components that share one execution), seals every reachable node
// exactly once, and starts each region: synchronous regions run to
// completion on the calling goroutine before SealAndRun returns for
// them; asynchronous regions (anything connected to a push-source) run
// on a [Config.Executor]-managed goroutine and are observed through the
// returned [*RunHandle].
//
// # Observability
//
// All nodes support structured logging via [SLogger] (compatible with
// [log/slog]). By default, logging is disabled. Set [Config.Logger] to a
// custom [*slog.Logger] to enable it. Error classification for
// [ResourceError] is configurable via [Config.ErrClassifier]; by default,
// OS-errno-derived labels from the streamline/errclass package are used.
//
// Nodes emit two kinds of structured log events:
//
//   - Span events (nodeSealed, nodeTerminal): lifecycle, at
//     [slog.LevelInfo].
//   - Wire observations (signalIn): every signal a node dispatches, at
//     [slog.LevelDebug].
//
// Regions log nothing themselves, and outgoing signals and push-source
// queue drains are not logged.
//
// Use [NewNodeID] to generate a unique, time-ordered identifier (UUIDv7)
// for a node; every node already carries one, assigned at construction,
// for correlating log entries and error reports back to a specific node.
//
// # Error Handling
//
// A node that fails (a user callback panicked, or a protocol invariant
// was observed to be violated) cancels every still-live upstream edge,
// emits onError on every still-live downstream edge, and becomes
// terminal. See [UserError], [ProtocolError], [ResourceError], and
// [PanicFatal] for the full taxonomy.
//
// # Design Boundaries
//
// This package intentionally provides only the protocol core. The
// following are out of scope and belong in higher-level packages:
//
//   - A surface DSL for building graphs (attach/fanOut/drainTo/etc.)
//   - Graph rendering, introspection, and a public testkit harness
//   - An application-facing node catalog beyond the representative set above
//   - Exactly-once delivery across an async boundary, persistence, or
//     distribution across processes
package streamline
