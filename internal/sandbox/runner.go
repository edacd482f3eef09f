package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// TimeoutExitCode is reported when a block exceeds its time limit, matching coreutils timeout(1).
const TimeoutExitCode = 124

const containerWorkDir = "/workspace"

// Result is the outcome of running a sequence of code blocks.
type Result struct {
	ExitCode int
	Output   string
}

// Succeeded reports whether every block exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// String renders the result the way it is posted back into the conversation.
func (r Result) String() string {
	status := "execution succeeded"
	if !r.Succeeded() {
		status = "execution failed"
	}
	return fmt.Sprintf("exitcode: %d (%s)\nCode output: %s", r.ExitCode, status, r.Output)
}

// Config controls where and how code runs.
type Config struct {
	WorkDir     string
	UseDocker   bool
	DockerImage string
	Timeout     time.Duration // Per block; 0 means no limit

	// Env is appended to the child environment. Secrets are passed this way
	// and never written into WorkDir.
	Env []string
}

// Runner executes code blocks.
type Runner struct {
	cfg Config
	pm  *ProcessManager
}

// NewRunner creates a runner. pm may be nil.
func NewRunner(cfg Config, pm *ProcessManager) *Runner {
	return &Runner{cfg: cfg, pm: pm}
}

// Run executes blocks in order, stopping at the first failure. Output of all
// executed blocks is concatenated. A failing or timed-out block is reported in
// the Result, not as an error; the error is reserved for the sandbox itself
// being unusable or ctx being cancelled.
func (r *Runner) Run(ctx context.Context, blocks []CodeBlock) (Result, error) {
	workDir, err := filepath.Abs(r.cfg.WorkDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolving work dir: %w", err)
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating work dir %s: %w", workDir, err)
	}

	var out strings.Builder
	for i, block := range blocks {
		interp, ext, ok := interpreter(block.Lang)
		if !ok {
			out.WriteString(fmt.Sprintf("unknown language %s", block.Lang))
			return Result{ExitCode: 1, Output: out.String()}, nil
		}

		filename, err := writeCodeFile(workDir, block.Code, ext)
		if err != nil {
			return Result{}, err
		}

		code, output, err := r.runFile(ctx, workDir, interp, filename)
		if err != nil {
			return Result{}, fmt.Errorf("running code block %d: %w", i+1, err)
		}
		out.WriteString(output)

		if code != 0 {
			return Result{ExitCode: code, Output: out.String()}, nil
		}
	}

	return Result{ExitCode: 0, Output: out.String()}, nil
}

// runFile runs one script file and returns its exit code and combined output.
func (r *Runner) runFile(ctx context.Context, workDir, interp, filename string) (int, string, error) {
	blockCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		blockCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if r.cfg.UseDocker {
		cmd = newCommand(blockCtx, workDir, r.cfg.Env, "docker", r.dockerArgs(workDir, interp, filename)...)
	} else {
		cmd = newCommand(blockCtx, workDir, r.cfg.Env, interp, filename)
	}

	out, err := runCaptured(cmd, r.pm)
	output := string(out)

	if err == nil {
		return 0, output, nil
	}

	// Parent cancellation aborts the conversation; a block timeout does not.
	if ctx.Err() != nil {
		return 0, output, ctx.Err()
	}
	if errors.Is(blockCtx.Err(), context.DeadlineExceeded) {
		log.Printf("WARNING: code execution timed out after %s", r.cfg.Timeout)
		return TimeoutExitCode, output + "\nTimeout", nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}

	// Interpreter missing or not startable: report as a failed execution.
	return 1, output + err.Error(), nil
}

// dockerArgs builds a `docker run` invocation with the work dir mounted.
// Env entries are forwarded by name only so values never appear in argv.
func (r *Runner) dockerArgs(workDir, interp, filename string) []string {
	args := []string{
		"run", "--rm",
		"-v", workDir + ":" + containerWorkDir,
		"-w", containerWorkDir,
	}
	for _, kv := range r.cfg.Env {
		if name, _, ok := strings.Cut(kv, "="); ok {
			args = append(args, "-e", name)
		}
	}
	image := r.cfg.DockerImage
	if image == "" {
		image = "python:3-slim"
	}
	return append(args, image, interp, filename)
}

// interpreter maps a fence language to the program that runs it.
func interpreter(lang string) (program, ext string, ok bool) {
	switch lang {
	case "", "python", "py", "python3":
		return "python3", ".py", true
	case "sh", "bash", "shell", "console":
		return "bash", ".sh", true
	default:
		return "", "", false
	}
}

// writeCodeFile stores code under a content-addressed name and returns the
// name relative to workDir.
func writeCodeFile(workDir, code, ext string) (string, error) {
	sum := sha256.Sum256([]byte(code))
	name := "tmp_code_" + hex.EncodeToString(sum[:8]) + ext
	if err := os.WriteFile(filepath.Join(workDir, name), []byte(code), 0644); err != nil {
		return "", fmt.Errorf("writing code file: %w", err)
	}
	return name, nil
}
