// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "context"

// Func is a generic user-supplied transform: it accepts an input and
// returns a result.
//
// [NewMapNode] takes a plain function, wraps it in a [FuncAdapter], and
// calls its element transform through Func. [NewFlattenConcatNode] takes
// its sub-source adapter as a plain func(T) *Node and does not use Func.
//
// Resource cleanup contract: when a Func receives a closeable resource as
// input and returns an error, it is responsible for closing that resource
// before returning. A node that invokes a Func and receives an error
// reacts per spec.md §4.1/§7: cancel upstream, emit onError downstream.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
//
// Use this to create ad-hoc [Func] instances from closures when you need
// custom behavior that doesn't fit the existing primitives.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}
