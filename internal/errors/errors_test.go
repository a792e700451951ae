package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitErrorFormatting(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err      *GitError
		expected string
	}{
		"Operation Only": {
			err:      NewGitError("push", []string{"origin", "main"}, nil, ""),
			expected: "git push failed",
		},
		"With Output": {
			err:      NewGitError("clone", nil, nil, "fatal: repository not found"),
			expected: "git clone failed: fatal: repository not found",
		},
		"With Underlying Error": {
			err:      NewGitError("fetch", nil, New("exit status 128"), ""),
			expected: "git fetch failed: exit status 128",
		},
		"With Reject Reason": {
			err: &GitError{
				Operation: "push",
				Err:       ErrPushRejected,
				Reject:    RejectNonFastForward,
			},
			expected: "git push failed (non-fast-forward): push rejected by remote",
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, test.err.Error())
		})
	}
}

func TestGitErrorUnwrap(t *testing.T) {
	t.Parallel()

	wrapped := Wrap(ErrGitOperationFailed, "exit status 1")
	gitErr := NewGitError("commit", []string{"-m", "msg"}, wrapped, "")

	assert.True(t, Is(gitErr, ErrGitOperationFailed))

	var target *GitError
	require.True(t, As(Wrap(gitErr, "outer context"), &target))
	assert.Equal(t, "commit", target.Operation)
}

func TestPushRejectReason(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err      error
		expected RejectReason
	}{
		"Classified Push Error": {
			err: &GitError{
				Operation: "push",
				Err:       ErrPushRejected,
				Reject:    RejectNonFastForward,
			},
			expected: RejectNonFastForward,
		},
		"Wrapped Classified Error": {
			err: Wrap(&GitError{
				Operation: "push",
				Err:       ErrPushRejected,
				Reject:    RejectStaleLease,
			}, "pushing batch"),
			expected: RejectStaleLease,
		},
		"Plain Error": {
			err:      New("no git error here"),
			expected: RejectNone,
		},
		"Nil Error": {
			err:      nil,
			expected: RejectNone,
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, PushRejectReason(test.err))
		})
	}
}

func TestLockErrorFormatting(t *testing.T) {
	t.Parallel()

	withPid := NewLockError("/tmp/gitdance-abc.lock", 4242, ErrAlreadyRunning)
	assert.Contains(t, withPid.Error(), "PID: 4242")
	assert.True(t, Is(withPid, ErrAlreadyRunning))

	withoutPid := NewLockError("/tmp/gitdance-abc.lock", 0, ErrLockAcquisitionFailure)
	assert.NotContains(t, withoutPid.Error(), "PID")
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := NewConfigError("pool_size", -1, Wrap(ErrInvalidConfiguration, "must be positive"))
	assert.Contains(t, err.Error(), "pool_size")
	assert.Contains(t, err.Error(), "-1")
	assert.True(t, Is(err, ErrInvalidConfiguration))
}
