// Package spec defines the execution specification and resource limits.
package spec

// ResourceLimit describes hard limits enforced by the sandbox.
type ResourceLimit struct {
	CPUTimeMs  int64 `yaml:"cpuTimeMs"`
	WallTimeMs int64 `yaml:"wallTimeMs"`
	MemoryMB   int64 `yaml:"memoryMB"`
	StackMB    int64 `yaml:"stackMB"`
	OutputMB   int64 `yaml:"outputMB"`
	// Procs is the number of processes the submission may hold beyond the
	// runner itself. Zero forbids forking entirely; negative leaves the
	// limit unset.
	Procs int64 `yaml:"procs"`
}

// RunSpec is the unified execution specification for one run.
type RunSpec struct {
	RunID      string
	WorkDir    string
	Cmd        []string
	Env        []string
	StdinPath  string
	StdoutPath string
	StderrPath string
	Limits     ResourceLimit
}
