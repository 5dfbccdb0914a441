// Package sandbox executes untrusted submissions against a test suite
// under hard resource ceilings. Faults (timeout, OOM, crash) are reported
// as non-solving outcomes, never as errors to the caller.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coderace/internal/sandbox/engine"
	"coderace/internal/sandbox/spec"
	apperr "coderace/pkg/errors"
	"coderace/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const (
	defaultCPUTimeMs    int64 = 5_000
	defaultWallTimeMs   int64 = 10_000
	defaultMemoryMB     int64 = 256
	defaultOutputMB     int64 = 1
	defaultMaxConcurrent      = 4

	payloadFileName = "payload.json"
	stdoutFileName  = "stdout.json"
	stderrFileName  = "stderr.log"
)

// Request contains one submission and the test suite to run it against.
type Request struct {
	SubmissionID string
	Code         string
	EntryPoint   string
	Preamble     string
	TestCases    []string
	AnyOrder     bool
}

// Outcome is the structured result of one execution. A fault is encoded in
// ErrorMessage with Passed left at zero.
type Outcome struct {
	Passed       int
	Total        int
	ErrorMessage string
	Stdout       string
	Stderr       string
	TimeMs       int64
}

// Config controls the executor service.
type Config struct {
	// WorkRoot is the host directory used to create per-submission
	// workspaces.
	WorkRoot string `yaml:"workRoot"`
	// RunnerCommand is the command template that evaluates the payload,
	// e.g. "python3 -I scripts/runner.py". It receives the payload JSON on
	// stdin and must print a single JSON verdict to stdout.
	RunnerCommand string             `yaml:"runnerCommand"`
	MaxConcurrent int                `yaml:"maxConcurrent"`
	Limits        spec.ResourceLimit `yaml:"limits"`
	Engine        engine.Config      `yaml:"engine"`
}

// Service runs submissions through the sandbox engine. Each execution is
// fully independent; the only shared state is the concurrency limiter.
type Service struct {
	eng       engine.Engine
	runnerCmd []string
	workRoot  string
	limits    spec.ResourceLimit
	limiter   *tokenLimiter
}

// runnerVerdict is the JSON contract printed by the runner on stdout.
type runnerVerdict struct {
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
	Error  string `json:"error"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// payload is the JSON contract piped to the runner on stdin.
type payload struct {
	Code       string   `json:"code"`
	EntryPoint string   `json:"entry_point"`
	TestCases  []string `json:"test_cases"`
	Preamble   string   `json:"preamble,omitempty"`
	AnyOrder   bool     `json:"any_order,omitempty"`
}

// NewService creates an executor service from config.
func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.RunnerCommand) == "" {
		return nil, apperr.Newf(apperr.SandboxUnavailable, "runner command is required")
	}
	runnerCmd, err := shlex.Split(cfg.RunnerCommand)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.SandboxUnavailable, "parse runner command: %v", err)
	}
	if len(runnerCmd) == 0 {
		return nil, apperr.Newf(apperr.SandboxUnavailable, "runner command is empty")
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = os.TempDir()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}

	eng, err := engine.NewEngine(cfg.Engine)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.SandboxUnavailable, "init sandbox engine: %v", err)
	}

	return &Service{
		eng:       eng,
		runnerCmd: runnerCmd,
		workRoot:  cfg.WorkRoot,
		limits:    applyLimitDefaults(cfg.Limits),
		limiter:   newTokenLimiter(cfg.MaxConcurrent),
	}, nil
}

func applyLimitDefaults(limits spec.ResourceLimit) spec.ResourceLimit {
	if limits.CPUTimeMs <= 0 {
		limits.CPUTimeMs = defaultCPUTimeMs
	}
	if limits.WallTimeMs <= 0 {
		limits.WallTimeMs = defaultWallTimeMs
	}
	if limits.MemoryMB <= 0 {
		limits.MemoryMB = defaultMemoryMB
	}
	if limits.OutputMB <= 0 {
		limits.OutputMB = defaultOutputMB
	}
	// Procs defaults to zero: the submission may not fork.
	if limits.Procs < 0 {
		limits.Procs = 0
	}
	return limits
}

// Execute runs one submission and always returns an outcome. Resource-limit
// kills, crashes and malformed runner output are folded into the outcome's
// ErrorMessage.
func (s *Service) Execute(ctx context.Context, req Request) Outcome {
	total := len(req.TestCases)

	if err := s.limiter.acquire(ctx); err != nil {
		return faultOutcome(total, "execution canceled")
	}
	defer s.limiter.release()

	workDir, err := os.MkdirTemp(s.workRoot, "run-"+sanitizeID(req.SubmissionID)+"-")
	if err != nil {
		logger.Error(ctx, "create workspace failed", zap.Error(apperr.Wrap(err, apperr.WorkspaceFailed)))
		return faultOutcome(total, apperr.WorkspaceFailed.Message())
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	payloadPath := filepath.Join(workDir, payloadFileName)
	if err := writePayload(payloadPath, req); err != nil {
		logger.Error(ctx, "write payload failed", zap.Error(apperr.Wrap(err, apperr.WorkspaceFailed)))
		return faultOutcome(total, apperr.WorkspaceFailed.Message())
	}

	runSpec := spec.RunSpec{
		RunID:      req.SubmissionID,
		WorkDir:    workDir,
		Cmd:        s.runnerCmd,
		StdinPath:  payloadPath,
		StdoutPath: filepath.Join(workDir, stdoutFileName),
		StderrPath: filepath.Join(workDir, stderrFileName),
		Limits:     s.limits,
	}

	res, err := s.eng.Run(ctx, runSpec)
	if err != nil {
		logger.Error(ctx, "sandbox run failed",
			zap.String("submission", req.SubmissionID),
			zap.Error(apperr.Wrap(err, apperr.ExecutionFailed)))
		return faultOutcome(total, apperr.ExecutionFailed.Message())
	}

	outcome := s.classify(res, total)
	outcome.TimeMs = res.WallTimeMs
	return outcome
}

// classify maps a raw engine result onto an outcome, in fault-precedence
// order: wall timeout, OOM kill, CPU-limit kill, crash without verdict,
// unparsable verdict.
func (s *Service) classify(res engine.RunResult, total int) Outcome {
	if res.TimedOut {
		return faultOutcome(total, fmt.Sprintf("Time limit exceeded (%ds)", s.limits.WallTimeMs/1000))
	}
	if res.OomKilled {
		return faultOutcome(total, fmt.Sprintf("Memory limit exceeded (%dMB)", s.limits.MemoryMB))
	}

	stdout := strings.TrimSpace(res.Stdout)
	if res.ExitCode != 0 && stdout == "" {
		// RLIMIT_CPU kills the runner before the wall timer fires when the
		// code burns CPU without sleeping. Attribute that to the time
		// ceiling, not a crash.
		if s.limits.CPUTimeMs > 0 && res.CPUTimeMs >= s.limits.CPUTimeMs {
			return faultOutcome(total, fmt.Sprintf("Time limit exceeded (%ds)", s.limits.CPUTimeMs/1000))
		}
		msg := strings.TrimSpace(res.Stderr)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			msg = fmt.Sprintf("Process crashed (exit %d)", res.ExitCode)
		}
		return faultOutcome(total, msg)
	}

	var verdict runnerVerdict
	if err := json.Unmarshal([]byte(stdout), &verdict); err != nil {
		return faultOutcome(total, apperr.RunnerBadOutput.Message())
	}
	if verdict.Total == 0 {
		verdict.Total = total
	}

	return Outcome{
		Passed:       verdict.Passed,
		Total:        verdict.Total,
		ErrorMessage: verdict.Error,
		Stdout:       verdict.Stdout,
		Stderr:       verdict.Stderr,
	}
}

func writePayload(path string, req Request) error {
	data, err := json.Marshal(payload{
		Code:       req.Code,
		EntryPoint: req.EntryPoint,
		TestCases:  req.TestCases,
		Preamble:   req.Preamble,
		AnyOrder:   req.AnyOrder,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func faultOutcome(total int, msg string) Outcome {
	return Outcome{Total: total, ErrorMessage: msg}
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
