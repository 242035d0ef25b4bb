// SPDX-License-Identifier: GPL-3.0-or-later

package streamline

import "time"

// Config holds common configuration for streamline's nodes and regions.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Logger receives structured span and signal-traffic events.
	//
	// Set by [NewConfig] to [DefaultSLogger] (a no-op).
	Logger SLogger

	// ErrClassifier classifies a [ResourceError]'s cause for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Clock returns the current time, used to timestamp span events.
	//
	// Set by [NewConfig] to [time.Now]. Override in tests for determinism.
	Clock func() time.Time

	// IDGenerator produces a stable id for a newly constructed node.
	//
	// Set by [NewConfig] to [NewNodeID]. Override in tests that need
	// deterministic, human-readable ids.
	IDGenerator func() string

	// Executor runs the async region's mailbox dispatcher loop.
	//
	// Set by [NewConfig] to spawning a bare goroutine. Override to route
	// region dispatch through a host-managed worker pool.
	Executor func(func())
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Logger:        DefaultSLogger(),
		ErrClassifier: DefaultErrClassifier,
		Clock:         time.Now,
		IDGenerator:   NewNodeID,
		Executor: func(f func()) {
			go f()
		},
	}
}
