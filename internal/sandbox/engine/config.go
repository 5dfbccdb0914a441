package engine

// Config controls sandbox engine behavior.
type Config struct {
	// HelperPath locates the sandbox-init binary that applies limits and
	// executes the runner.
	HelperPath string `yaml:"helperPath"`
	// SeccompProfile is the path to a JSON syscall filter. Empty disables
	// seccomp even when EnableSeccomp is set.
	SeccompProfile       string `yaml:"seccompProfile"`
	CgroupRoot           string `yaml:"cgroupRoot"`
	StdoutStderrMaxBytes int64  `yaml:"stdoutStderrMaxBytes"`
	EnableSeccomp        bool   `yaml:"enableSeccomp"`
	EnableCgroup         bool   `yaml:"enableCgroup"`
}
