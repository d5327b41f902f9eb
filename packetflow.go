// Package packetflow provides a top-level convenience entry point for
// assembling a relay runtime with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/packetflow"
//
//	rt, err := packetflow.New(packetflow.WithConfigPath("packetflow.yaml"))
//	rt, err := packetflow.New(packetflow.WithScopeName("camera"), packetflow.WithFilters(f))
//
// This is a thin wrapper around [quick.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package packetflow

import (
	"github.com/BaSui01/packetflow/quick"
)

// Option configures the runtime created by [New].
type Option = quick.Option

// Runtime bundles the assembled configuration, logger, scope tree and
// packet factory.
type Runtime = quick.Runtime

// New assembles a [quick.Runtime]: configuration, logging, metrics,
// telemetry, the root scope and its packet factory.
func New(opts ...Option) (*Runtime, error) {
	return quick.New(opts...)
}

// Re-export runtime options so callers never need to import quick/.

// WithConfig sets a pre-built configuration.
var WithConfig = quick.WithConfig

// WithConfigPath loads configuration from a YAML file.
var WithConfigPath = quick.WithConfigPath

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger

// WithScopeName names the root scope.
var WithScopeName = quick.WithScopeName

// WithFilters registers filters on the runtime's factory.
var WithFilters = quick.WithFilters
