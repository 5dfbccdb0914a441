package engine

import (
	"context"

	"coderace/internal/sandbox/spec"
)

// RunResult captures raw sandbox execution data for one run.
type RunResult struct {
	ExitCode   int
	CPUTimeMs  int64
	WallTimeMs int64
	MemoryKB   int64
	Stdout     string
	Stderr     string
	TimedOut   bool
	OomKilled  bool
}

// Engine executes a RunSpec inside an isolated child process.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (RunResult, error)
}
