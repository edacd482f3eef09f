package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aristath/agentcrew/internal/sandbox"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks invalid command-line input. It exits with exitUsage.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	// Existing variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}

	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subprocesses spawned for generated code are tracked so a signal can kill them
	pm := sandbox.NewProcessManager()
	go func() {
		<-ctx.Done()
		if pm.Count() == 0 {
			return
		}
		log.Println("Shutdown signal received, killing running code...")
		if err := pm.KillAll(); err != nil {
			log.Printf("ERROR: killing subprocesses: %v", err)
		}
	}()

	root := newRootCmd(&app{
		stdout:    stdout,
		stderr:    stderr,
		lookupEnv: os.LookupEnv,
		pm:        pm,
	})
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return exitCode(err, root.UsageString(), stderr)
}

// exitCode reports err on stderr and maps it to an exit code.
func exitCode(err error, usage string, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "\n%s", usage)
		return exitUsage
	}
	return exitError
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return newUsageError("unexpected argument %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return newUsageError("%q accepts %d argument(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}
