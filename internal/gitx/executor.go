package gitx

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/klevermonicker/gitdance/internal/errors"
)

// CommandExecutor defines an interface for executing external commands.
// All execution is synchronous and blocks until the process exits; the
// context cancels the process if it is built with exec.CommandContext.
type CommandExecutor interface {
	// Execute runs a command and returns an error if it exits non-zero
	Execute(ctx context.Context, cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its stdout
	ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor that
// delegates to the os/exec package.
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		wrapped := errors.Wrap(errors.ErrGitOperationFailed, err.Error())
		return errors.NewGitError(operationOf(cmd), argsOf(cmd), wrapped, stderr.String())
	}
	return nil
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput
func (e *ExecExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		wrapped := errors.Wrap(errors.ErrGitOperationFailed, err.Error())
		return "", errors.NewGitError(operationOf(cmd), argsOf(cmd), wrapped, stderr.String())
	}

	return stdout.String(), nil
}

// operationOf extracts the executable name from a command.
func operationOf(cmd *exec.Cmd) string {
	if len(cmd.Args) > 0 {
		return cmd.Args[0]
	}
	return ""
}

// argsOf extracts the argument list from a command.
func argsOf(cmd *exec.Cmd) []string {
	if len(cmd.Args) > 1 {
		return cmd.Args[1:]
	}
	return nil
}
