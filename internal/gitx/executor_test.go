package gitx

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevermonicker/gitdance/internal/errors"
)

func TestExecuteWithOutputCapturesStdout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := NewExecExecutor()

	out, err := e.ExecuteWithOutput(ctx, exec.CommandContext(ctx, "sh", "-c", "echo hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecuteFailureCarriesStderr(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := NewExecExecutor()

	err := e.Execute(ctx, exec.CommandContext(ctx, "sh", "-c", "echo broken >&2; exit 3"))
	require.Error(t, err)

	var gitErr *errors.GitError
	require.True(t, errors.As(err, &gitErr))
	assert.Equal(t, "sh", gitErr.Operation)
	assert.Contains(t, gitErr.Output, "broken")
	assert.True(t, errors.Is(err, errors.ErrGitOperationFailed))
}

func TestExecuteWithOutputFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := NewExecExecutor()

	out, err := e.ExecuteWithOutput(ctx, exec.CommandContext(ctx, "sh", "-c", "echo oops >&2; exit 1"))
	require.Error(t, err)
	assert.Empty(t, out)

	var gitErr *errors.GitError
	require.True(t, errors.As(err, &gitErr))
	assert.Contains(t, gitErr.Output, "oops")
}

func TestExecuteHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecExecutor()
	err := e.Execute(ctx, exec.CommandContext(ctx, "sh", "-c", "true"))
	assert.Error(t, err)
}
