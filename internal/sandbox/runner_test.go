package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []CodeBlock
	}{
		{
			name: "python block",
			text: "Here you go:\n```python\nprint('hi')\n```\nDone.",
			want: []CodeBlock{{Lang: "python", Code: "print('hi')"}},
		},
		{
			name: "no language",
			text: "```\necho hi\n```",
			want: []CodeBlock{{Lang: "", Code: "echo hi"}},
		},
		{
			name: "multiple blocks keep order",
			text: "```sh\npip install x\n```\nthen\n```Python\nimport x\nx.run()\n```",
			want: []CodeBlock{
				{Lang: "sh", Code: "pip install x"},
				{Lang: "python", Code: "import x\nx.run()"},
			},
		},
		{
			name: "empty block skipped",
			text: "```python\n   \n```",
			want: []CodeBlock{},
		},
		{
			name: "no fences",
			text: "Just prose. TERMINATE",
			want: []CodeBlock{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCodeBlocks(tt.text))
		})
	}
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "exitcode: 0 (execution succeeded)\nCode output: 42\n", Result{ExitCode: 0, Output: "42\n"}.String())
	assert.Equal(t, "exitcode: 1 (execution failed)\nCode output: boom", Result{ExitCode: 1, Output: "boom"}.String())
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestRunner_ShellBlocks(t *testing.T) {
	requireBinary(t, "bash")
	dir := filepath.Join(t.TempDir(), "workspace")

	r := NewRunner(Config{WorkDir: dir, Timeout: 10 * time.Second}, NewProcessManager())
	res, err := r.Run(context.Background(), []CodeBlock{
		{Lang: "bash", Code: "echo first > out.txt; cat out.txt"},
		{Lang: "sh", Code: "echo second"},
	})
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Equal(t, "first\nsecond\n", res.Output)

	// Work dir is created and used as cwd
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	requireBinary(t, "bash")

	r := NewRunner(Config{WorkDir: t.TempDir(), Timeout: 10 * time.Second}, nil)
	res, err := r.Run(context.Background(), []CodeBlock{
		{Lang: "bash", Code: "echo before; exit 2"},
		{Lang: "bash", Code: "echo never"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Output, "before")
	assert.NotContains(t, res.Output, "never")
	assert.True(t, strings.HasPrefix(res.String(), "exitcode: 2 (execution failed)"))
}

func TestRunner_Timeout(t *testing.T) {
	requireBinary(t, "bash")

	r := NewRunner(Config{WorkDir: t.TempDir(), Timeout: 200 * time.Millisecond}, nil)
	res, err := r.Run(context.Background(), []CodeBlock{{Lang: "bash", Code: "sleep 30"}})
	require.NoError(t, err)

	assert.Equal(t, TimeoutExitCode, res.ExitCode)
	assert.Contains(t, res.Output, "Timeout")
}

func TestRunner_ParentCancelIsError(t *testing.T) {
	requireBinary(t, "bash")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := NewRunner(Config{WorkDir: t.TempDir(), Timeout: 10 * time.Second}, nil)
	_, err := r.Run(ctx, []CodeBlock{{Lang: "bash", Code: "sleep 30"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_UnknownLanguage(t *testing.T) {
	r := NewRunner(Config{WorkDir: t.TempDir()}, nil)
	res, err := r.Run(context.Background(), []CodeBlock{{Lang: "cobol", Code: "DISPLAY 'HI'."}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Output, "unknown language cobol")
}

func TestRunner_EnvInjectedNotWritten(t *testing.T) {
	requireBinary(t, "bash")
	dir := t.TempDir()

	r := NewRunner(Config{
		WorkDir: dir,
		Timeout: 10 * time.Second,
		Env:     []string{"SNOWFLAKE_PASSWORD=s3cret"},
	}, nil)
	res, err := r.Run(context.Background(), []CodeBlock{{Lang: "bash", Code: "echo ${#SNOWFLAKE_PASSWORD}"}})
	require.NoError(t, err)
	assert.Equal(t, "6\n", res.Output)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "s3cret", "secret leaked into %s", e.Name())
	}
}

func TestRunner_DockerArgs(t *testing.T) {
	r := NewRunner(Config{
		UseDocker:   true,
		DockerImage: "python:3.12-slim",
		Env:         []string{"SNOWFLAKE_USER=alice", "SNOWFLAKE_PASSWORD=s3cret"},
	}, nil)

	args := r.dockerArgs("/abs/workspace", "python3", "tmp_code_x.py")
	assert.Equal(t, []string{
		"run", "--rm",
		"-v", "/abs/workspace:/workspace",
		"-w", "/workspace",
		"-e", "SNOWFLAKE_USER",
		"-e", "SNOWFLAKE_PASSWORD",
		"python:3.12-slim", "python3", "tmp_code_x.py",
	}, args)
	assert.NotContains(t, strings.Join(args, " "), "s3cret")
}
