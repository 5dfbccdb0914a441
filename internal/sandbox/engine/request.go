package engine

import "coderace/internal/sandbox/spec"

// initRequest is the JSON payload sent to the sandbox-init helper on stdin.
type initRequest struct {
	RunSpec        spec.RunSpec
	SeccompProfile string
	EnableSeccomp  bool
}
