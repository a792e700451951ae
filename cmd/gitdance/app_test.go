package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevermonicker/gitdance/internal/config"
	gderrors "github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
	"github.com/klevermonicker/gitdance/internal/painter"
	"github.com/klevermonicker/gitdance/internal/pattern"
	"github.com/klevermonicker/gitdance/internal/repo"
)

type fakeLocker struct {
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeLocker) Acquire() error {
	f.acquired++
	return f.acquireErr
}

func (f *fakeLocker) Release() error {
	f.released++
	return nil
}

func testApp(t *testing.T) (*App, *gitx.RecordingClient, *fakeLocker) {
	t.Helper()

	cfg := config.New("gitdance")
	cfg.RepoPath = t.TempDir()
	cfg.PoolSize = 2
	require.NoError(t, cfg.Finalize())

	log := logger.NewWithOutput(false, "", false, io.Discard, io.Discard)
	fake := gitx.NewRecordingClient()
	mgr := repo.NewManagerWithClient(cfg, log, fake)

	pat, err := pattern.New([]pattern.Bitmap{{"1111111"}}, 0)
	require.NoError(t, err)

	locker := &fakeLocker{}
	app := &App{
		Config:  cfg,
		Logger:  log,
		Locker:  locker,
		Manager: mgr,
		Painter: &painter.Painter{
			Config:  cfg,
			Pattern: pat,
			Repo:    mgr,
			Git:     fake,
			Logger:  log,
			Now:     func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
		},
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
		execLookPath: func(string) (string, error) { return "/usr/bin/git", nil },
		ConfigFile:   filepath.Join(t.TempDir(), "no-such-config.ini"),
	}
	return app, fake, locker
}

func TestNoFlagsPrintsUsage(t *testing.T) {
	app, fake, _ := testApp(t)
	cmd := NewRootCmd(app)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Usage:")
	assert.Empty(t, fake.Calls, "usage must not touch the repository")
}

func TestDailyDispatch(t *testing.T) {
	app, fake, locker := testApp(t)
	app.Daily = true

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.GreaterOrEqual(t, fake.CountOp("commit"), 1, "an intensity-1 day commits")
}

func TestResetWinsOverDaily(t *testing.T) {
	app, fake, _ := testApp(t)
	app.ResetOp = true
	app.Daily = true

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, fake.CountOp("reset-hard"))
	assert.Zero(t, fake.CountOp("commit"))
}

func TestTestSSHSkipsLock(t *testing.T) {
	app, fake, locker := testApp(t)
	app.TestSSH = true
	fake.Authenticated = true

	require.NoError(t, app.Run(context.Background()))

	assert.Zero(t, locker.acquired)
	assert.Equal(t, 1, fake.CountOp("probe-ssh"))
}

func TestTestSSHFailure(t *testing.T) {
	app, fake, _ := testApp(t)
	app.TestSSH = true
	fake.Authenticated = false
	fake.SSHResponse = "Permission denied (publickey)."

	assert.Error(t, app.Run(context.Background()))
}

func TestInvalidSetupDate(t *testing.T) {
	app, _, _ := testApp(t)
	app.SetupDate = "June 1st"

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.True(t, gderrors.Is(err, gderrors.ErrInvalidConfiguration))
}

func TestSetupBackfills(t *testing.T) {
	app, fake, _ := testApp(t)
	app.SetupDate = "2025-06-13"

	require.NoError(t, app.Run(context.Background()))

	// Three days, every day lit at intensity 1: between 3 and 6 commits.
	commits := fake.CountOp("commit")
	assert.GreaterOrEqual(t, commits, 3)
	assert.LessOrEqual(t, commits, 6)
	require.NotEmpty(t, fake.CommitDates)
	for _, d := range fake.CommitDates {
		assert.GreaterOrEqual(t, d.Hour(), 9)
		assert.LessOrEqual(t, d.Hour(), 18)
	}
}

func TestCleanupDispatch(t *testing.T) {
	app, fake, _ := testApp(t)
	app.CleanupOp = true

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, fake.CountOp("add-all"))
	assert.Equal(t, 1, fake.CountOp("gc"))
}

func TestAlreadyRunning(t *testing.T) {
	app, _, locker := testApp(t)
	app.Daily = true
	locker.acquireErr = gderrors.NewLockError("/tmp/x.lock", 42, gderrors.ErrAlreadyRunning)

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.True(t, gderrors.Is(err, gderrors.ErrAlreadyRunning))
}

func TestFlagBinding(t *testing.T) {
	app, _, _ := testApp(t)
	cmd := NewRootCmd(app)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--setup", "2025-06-14", "--force"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "2025-06-14", app.SetupDate)
	assert.True(t, app.Force)
}

// layeredApp prepares an app with a config file and environment both
// setting the pattern file, for exercising layering precedence.
func layeredApp(t *testing.T) *App {
	t.Helper()

	app, fake, _ := testApp(t)
	fake.Authenticated = true

	iniPath := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte("[pattern]\nfile = from-ini.yaml\n"), 0o644))
	app.ConfigFile = iniPath
	t.Setenv("GITDANCE_PATTERN_FILE", "from-env.yaml")

	return app
}

func TestFlagsWinConfigLayering(t *testing.T) {
	app := layeredApp(t)

	cmd := NewRootCmd(app)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--test-ssh", "--pattern", "from-flag.yaml"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "from-flag.yaml", app.Config.PatternFile)
}

func TestEnvBeatsFileWithoutFlag(t *testing.T) {
	app := layeredApp(t)

	cmd := NewRootCmd(app)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--test-ssh"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "from-env.yaml", app.Config.PatternFile)
}
