package executor

import (
	"log/slog"

	"github.com/wbrown/janus-rdf/rdf/annotations"
)

// ExecutorOptions configures an Executor
type ExecutorOptions struct {
	// Parallel execution
	Workers      int  // Worker goroutines for pattern resolution (0 = NumCPU)
	ParallelJoin bool // Evaluate the rows of one join step on the worker pool

	// Planning
	FilterPushdown bool // Fold simple comparisons on object variables into index predicates

	// Observability
	Handler annotations.Handler // Optional, receives execution events
	Logger  *slog.Logger        // Optional, uses slog.Default() if nil
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() ExecutorOptions {
	return ExecutorOptions{
		FilterPushdown: true,
	}
}
