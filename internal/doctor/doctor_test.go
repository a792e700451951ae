package doctor

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevermonicker/gitdance/internal/config"
	gderrors "github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
)

func testDoctor(t *testing.T, repoPath string) (*Doctor, *gitx.RecordingClient, *bytes.Buffer) {
	t.Helper()

	cfg := config.New("gitdance-doctor")
	cfg.RepoPath = repoPath
	cfg.PoolSize = 2
	require.NoError(t, cfg.Finalize())

	fake := gitx.NewRecordingClient()
	out := &bytes.Buffer{}
	return &Doctor{
		Config:  cfg,
		Git:     fake,
		Logger:  logger.NewWithOutput(false, "", false, io.Discard, io.Discard),
		Out:     out,
		Confirm: DenyAll,
	}, fake, out
}

func TestCheckAllHealthyRepository(t *testing.T) {
	d, fake, out := testDoctor(t, t.TempDir())
	fake.Remotes = "origin\tgit@github.com:klevermonicker/bookish-octo-fortnight.git (push)"
	fake.LogOutput = "abc123 Dancing stick figure - 2025-06-15 - 0"

	assert.True(t, d.CheckAll(context.Background()))
	assert.Contains(t, out.String(), "Valid git repository")
	assert.Contains(t, out.String(), "correctly configured")
}

func TestCheckAllMissingDirectory(t *testing.T) {
	d, _, out := testDoctor(t, filepath.Join(t.TempDir(), "missing"))

	assert.False(t, d.CheckAll(context.Background()))
	assert.Contains(t, out.String(), "does not exist")
}

func TestRemoteConfiguredWrongOwner(t *testing.T) {
	d, fake, out := testDoctor(t, t.TempDir())
	fake.Remotes = "origin\tgit@github.com:someone-else/other.git (push)"

	assert.False(t, d.RemoteConfigured(context.Background()))
	assert.Contains(t, out.String(), "Expected: git@github.com:klevermonicker/bookish-octo-fortnight.git")
}

func TestRecentLogEmptyHistory(t *testing.T) {
	d, fake, _ := testDoctor(t, t.TempDir())
	fake.LogOutput = ""

	assert.False(t, d.RecentLog(context.Background()))
}

func TestFixRepointsWrongRemote(t *testing.T) {
	d, fake, _ := testDoctor(t, t.TempDir())
	fake.Remotes = "origin\tgit@github.com:someone-else/other.git (push)"
	fake.LogOutput = "abc123 commit"

	require.NoError(t, d.Fix(context.Background()))

	assert.Equal(t, 1, fake.CountOp("set-remote-url"))
	assert.Equal(t, 1, fake.CountOp("commit"), "fix finishes with a test commit")
	assert.Zero(t, fake.CountOp("clone"))
}

func TestFixClonesMissingRepository(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "fresh")
	d, fake, _ := testDoctor(t, repoPath)
	fake.Remotes = "origin\tgit@github.com:klevermonicker/bookish-octo-fortnight.git (push)"
	fake.LogOutput = "abc123 commit"

	// The fake doesn't create the directory, but the work tree answer
	// carries the check past the clone.
	err := d.Fix(context.Background())
	require.Error(t, err, "test commit cannot write into a directory the fake never created")
	assert.Equal(t, 1, fake.CountOp("clone"))
}

func TestResetDeclinedConfirmation(t *testing.T) {
	repoPath := t.TempDir()
	d, fake, _ := testDoctor(t, repoPath)
	fake.WorkTree = false

	err := d.Reset(context.Background())
	require.Error(t, err)
	assert.True(t, gderrors.Is(err, gderrors.ErrNotGitRepository))
	assert.Zero(t, fake.CountOp("clone"))
}

func TestResetConfirmedReclones(t *testing.T) {
	repoPath := t.TempDir()
	d, fake, _ := testDoctor(t, repoPath)
	fake.WorkTree = false
	d.Confirm = func(string) bool { return true }

	require.NoError(t, d.Reset(context.Background()))
	assert.Equal(t, 1, fake.CountOp("clone"))
}

func TestResetHealthyRepository(t *testing.T) {
	d, fake, out := testDoctor(t, t.TempDir())

	require.NoError(t, d.Reset(context.Background()))

	assert.Equal(t, 1, fake.CountOp("fetch-all"))
	assert.Equal(t, 1, fake.CountOp("reset-hard"))
	assert.Equal(t, 1, fake.CountOp("checkout"))
	assert.Equal(t, 1, fake.CountOp("clean"))
	assert.Contains(t, out.String(), "Using default branch: main")
}

func TestResetDetectsMasterDefaultBranch(t *testing.T) {
	d, fake, out := testDoctor(t, t.TempDir())
	fake.Branch = "master"

	require.NoError(t, d.Reset(context.Background()))
	assert.Contains(t, out.String(), "Using default branch: master")
}

func TestResetFallsBackToCheckoutNew(t *testing.T) {
	d, fake, _ := testDoctor(t, t.TempDir())
	fake.Errs["checkout"] = gderrors.ErrGitOperationFailed

	require.NoError(t, d.Reset(context.Background()))
	assert.Equal(t, 1, fake.CountOp("checkout-new"))
}

func TestTestCommitReportsFailure(t *testing.T) {
	d, fake, out := testDoctor(t, t.TempDir())
	fake.Errs["commit"] = gderrors.ErrGitOperationFailed

	err := d.TestCommit(context.Background())
	require.Error(t, err)
	assert.Contains(t, out.String(), "Test commit failed")
}
