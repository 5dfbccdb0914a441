//go:build !linux

package engine

import (
	"context"
	"fmt"

	"coderace/internal/sandbox/spec"
)

type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, runSpec spec.RunSpec) (RunResult, error) {
	return RunResult{}, fmt.Errorf("sandbox engine is only supported on linux")
}
