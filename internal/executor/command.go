package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// ActionTypeCommand runs an external program.
//
// Params:
//
//	{
//	    "command": "gofmt",             // required
//	    "args": ["-l", "."],            // optional
//	    "dir": "/path/to/workdir"       // optional, overrides the executor default
//	}
const ActionTypeCommand = "command"

// CommandExecutor runs subprocesses with process group isolation so that
// cancelling the context terminates the whole subprocess tree.
type CommandExecutor struct {
	// WorkDir is the default working directory for commands that do not set
	// the "dir" param. Empty means the process working directory.
	WorkDir string
}

// NewCommandExecutor creates a CommandExecutor rooted at workDir.
func NewCommandExecutor(workDir string) *CommandExecutor {
	return &CommandExecutor{WorkDir: workDir}
}

// Execute runs the command and returns its output.
//
// The result is a map with "stdout", "stderr", and "exit_code" keys. A
// non-zero exit reports an error carrying stderr so the failure is
// diagnosable from the subtask record alone.
func (e *CommandExecutor) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	name, err := stringParam(action, "command")
	if err != nil {
		return nil, err
	}
	args, err := stringSliceParam(action, "args")
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // new process group, so cancellation reaches children
	}
	cmd.Dir = optionalString(action, "dir", e.WorkDir)
	cmd.Cancel = func() error {
		// Negative PID signals the whole group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout, stderr, err := runCommand(cmd)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	result := map[string]any{
		"stdout":    string(stdout),
		"stderr":    string(stderr),
		"exit_code": exitCode,
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, context.Canceled
		}
		return result, err
	}
	return result, nil
}

// runCommand starts cmd and drains both pipes concurrently before calling
// Wait. Draining first prevents a deadlock when output exceeds the pipe
// buffer capacity.
func runCommand(cmd *exec.Cmd) (stdout, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start command: %w", err)
	}

	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf bytes.Buffer

	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderrBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()

	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("command failed: %w (stderr: %s)", waitErr, string(stderr))
		}
		return stdout, stderr, fmt.Errorf("command failed: %w", waitErr)
	}
	return stdout, stderr, nil
}
