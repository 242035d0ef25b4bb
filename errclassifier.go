// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "github.com/bassosimone/streamline/errclass"

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNRESET") that facilitate systematic analysis of a [ResourceError]'s
// underlying cause in structured logs.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies using [errclass.New]: it returns the
// empty string for a nil error and a short OS-errno-derived label
// ("ECONNRESET", "ETIMEDOUT", ...) or [errclass.Generic] otherwise.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
