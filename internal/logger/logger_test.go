package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, enabled, verbose bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer, string) {
	t.Helper()

	logFile := filepath.Join(t.TempDir(), "gitdance-test.log")
	var stdout, stderr bytes.Buffer
	l := NewWithOutput(enabled, logFile, verbose, &stdout, &stderr)
	t.Cleanup(func() { _ = l.Close() })
	return l, &stdout, &stderr, logFile
}

func TestUserFacingMessages(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		log        func(l *DefaultLogger)
		wantStdout string
		wantStderr string
	}{
		"InfoToUser": {
			log:        func(l *DefaultLogger) { l.InfoToUser("syncing %s", "main") },
			wantStdout: "syncing main",
		},
		"Success": {
			log:        func(l *DefaultLogger) { l.Success("pushed %d commits", 3) },
			wantStdout: "pushed 3 commits",
		},
		"WarningToUser": {
			log:        func(l *DefaultLogger) { l.WarningToUser("rebase failed, trying merge") },
			wantStdout: "rebase failed, trying merge",
		},
		"StatusMessage": {
			log:        func(l *DefaultLogger) { l.StatusMessage("current branch: %s", "main") },
			wantStdout: "current branch: main",
		},
		"Error": {
			log:        func(l *DefaultLogger) { l.Error("clone failed") },
			wantStderr: "clone failed",
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			l, stdout, stderr, _ := newBufferedLogger(t, false, false)

			test.log(l)

			if test.wantStdout != "" {
				assert.Contains(t, stdout.String(), test.wantStdout)
			}
			if test.wantStderr != "" {
				assert.Contains(t, stderr.String(), test.wantStderr)
			}
		})
	}
}

func TestFileOnlyMessagesStayOffStdout(t *testing.T) {
	t.Parallel()

	l, stdout, _, logFile := newBufferedLogger(t, true, false)

	l.Info("position in pattern: %d", 17)
	l.Warning("fetch failed, continuing")

	assert.Empty(t, stdout.String())

	require.NoError(t, l.Close())
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "position in pattern: 17")
	assert.Contains(t, string(data), "fetch failed, continuing")
}

func TestVerboseShowsWarnings(t *testing.T) {
	t.Parallel()

	l, stdout, _, _ := newBufferedLogger(t, false, true)

	l.Warning("stash produced no entry")

	assert.Contains(t, stdout.String(), "stash produced no entry")
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	l, _, _, _ := newBufferedLogger(t, true, false)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestDisabledLoggerWritesNoFile(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "never-created.log")
	var stdout, stderr bytes.Buffer
	l := NewWithOutput(false, logFile, false, &stdout, &stderr)
	defer func() { _ = l.Close() }()

	l.Info("should not be persisted")

	_, err := os.Stat(logFile)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, strings.Contains(stdout.String(), "should not be persisted"))
}
