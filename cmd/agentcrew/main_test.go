package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aristath/agentcrew/internal/persistence"
	"github.com/aristath/agentcrew/internal/sandbox"
)

// isolate points config lookup at an empty home and clears credentials.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD"} {
		t.Setenv(k, "")
	}
	return home
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestResolvePrompt(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptFile, []byte("Build a CLI\n  keep indentation\n"), 0644); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		prompt    string
		file      string
		want      string
		wantUsage bool
	}{
		{"prompt only", "Build a CLI", "", "Build a CLI", false},
		{"file only", "", promptFile, "Build a CLI\n  keep indentation\n", false},
		{"neither", "", "", "", true},
		{"both", "x", promptFile, "", true},
		{"missing file", "", filepath.Join(dir, "nope.txt"), "", true},
		{"empty file", "", emptyFile, "", true},
		{"blank prompt", "   ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePrompt(tt.prompt, tt.file)
			if tt.wantUsage {
				if _, ok := err.(*usageError); !ok {
					t.Fatalf("expected usageError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUsageErrorsExitTwo(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no prompt", nil},
		{"both sources", []string{"-p", "x", "-f", "prompt.txt"}},
		{"unknown flag", []string{"--bogus"}},
		{"stray argument", []string{"-p", "x", "extra"}},
		{"tui with human input", []string{"-p", "x", "--tui", "--human-input"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			if code != exitUsage {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, exitUsage, stderr)
			}
			if !strings.Contains(stderr, "Error:") {
				t.Errorf("stderr should report the error: %q", stderr)
			}
		})
	}
}

func TestMissingAPIKeyExitsOne(t *testing.T) {
	isolate(t)

	code, stdout, stderr := runCLI(t, "-p", "Build a CLI", "--no-history")
	if code != exitError {
		t.Fatalf("exit code = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "OPENAI_API_KEY") {
		t.Errorf("stderr should name the missing key: %q", stderr)
	}
	if strings.Contains(stdout, "Starting workflow") {
		t.Error("workflow must not start without credentials")
	}
}

func TestSnowflakeWithoutAccountFailsSetup(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	code, stdout, stderr := runCLI(t, "-p", "Load data", "--use-snowflake", "--no-history")
	if code != exitError {
		t.Fatalf("exit code = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "warehouse setup failed") || !strings.Contains(stderr, "SNOWFLAKE_ACCOUNT") {
		t.Errorf("expected setup error naming SNOWFLAKE_ACCOUNT, got %q", stderr)
	}
	if strings.Contains(stdout, "Starting workflow") {
		t.Error("chat must not start after setup failure")
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != exitOK || !strings.Contains(stdout, "agentcrew "+version) {
		t.Errorf("code=%d stdout=%q", code, stdout)
	}
}

func TestConfigInit(t *testing.T) {
	home := isolate(t)

	code, stdout, stderr := runCLI(t, "config", "init", "--global")
	if code != exitOK {
		t.Fatalf("config init failed: %s", stderr)
	}
	path := filepath.Join(home, ".agentcrew", "config.json")
	if !strings.Contains(stdout, path) {
		t.Errorf("stdout should name the written file: %q", stdout)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if code, _, _ := runCLI(t, "config", "init", "--global"); code != exitError {
		t.Errorf("second init without --force should fail, got %d", code)
	}
	if code, _, _ := runCLI(t, "config", "init", "--global", "--force"); code != exitOK {
		t.Errorf("init --force should succeed, got %d", code)
	}
}

func TestHistoryCommands(t *testing.T) {
	isolate(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	code, stdout, stderr := runCLI(t, "history", "--db", dbPath)
	if code != exitOK {
		t.Fatalf("history failed: %s", stderr)
	}
	if !strings.Contains(stdout, "No conversations recorded.") {
		t.Errorf("unexpected output: %q", stdout)
	}

	ctx := context.Background()
	store, err := persistence.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateConversation(ctx, persistence.Conversation{ID: "conv-1", Prompt: "Build a CLI\nwith flags", Mode: "plain"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessages(ctx, "conv-1", []persistence.Turn{
		{Round: 1, Speaker: "user_proxy", Content: "Project Request: Build a CLI", Timestamp: time.Now()},
		{Round: 2, Speaker: "coder", Content: "done TERMINATE", IsTerminal: true, Timestamp: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishConversation(ctx, "conv-1", persistence.StatusCompleted, "sentinel", nil); err != nil {
		t.Fatal(err)
	}
	store.Close()

	_, stdout, _ = runCLI(t, "history", "--db", dbPath)
	if !strings.Contains(stdout, "conv-1") || !strings.Contains(stdout, "completed (sentinel)") {
		t.Errorf("list output missing conversation: %q", stdout)
	}
	if strings.Contains(stdout, "with flags") {
		t.Error("list should show only the first prompt line")
	}

	_, stdout, _ = runCLI(t, "history", "show", "conv-1", "--db", dbPath)
	if !strings.Contains(stdout, "done TERMINATE") {
		t.Errorf("show output missing transcript: %q", stdout)
	}

	if code, _, _ := runCLI(t, "history", "show", "ghost", "--db", dbPath); code != exitError {
		t.Errorf("unknown conversation should exit %d, got %d", exitError, code)
	}
}

// TestProcessManagerKillAllOnShutdown verifies that ProcessManager.KillAll()
// correctly terminates tracked processes during simulated shutdown.
func TestProcessManagerKillAllOnShutdown(t *testing.T) {
	pm := sandbox.NewProcessManager()

	cmd := exec.Command("sleep", "60")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Process group isolation
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start subprocess: %v", err)
	}
	pm.Track(cmd)

	if count := pm.Count(); count != 1 {
		t.Errorf("Expected 1 tracked process, got %d", count)
	}

	if err := pm.KillAll(); err != nil {
		t.Errorf("KillAll() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected process to be killed (non-zero exit), got nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not terminate after KillAll()")
	}

	pm.Untrack(cmd)
	if count := pm.Count(); count != 0 {
		t.Errorf("Expected 0 tracked processes after Untrack, got %d", count)
	}
}

// TestSignalContextCancellation verifies that signal.NotifyContext produces
// a context that cancels correctly when a signal is received.
func TestSignalContextCancellation(t *testing.T) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Failed to send SIGUSR1: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context did not cancel after SIGUSR1")
	}

	if err := ctx.Err(); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
