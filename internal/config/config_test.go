package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevermonicker/gitdance/internal/errors"
)

func TestNewDefaults(t *testing.T) {
	cfg := New("gitdance")

	assert.Equal(t, DefaultOwner, cfg.Owner)
	assert.Equal(t, DefaultRepoName, cfg.RepoName)
	assert.Equal(t, DefaultSSHHost, cfg.SSHHost)
	assert.Equal(t, DefaultPoolSize, cfg.PoolSize)
	assert.Equal(t, 1, cfg.GapWeeks)
	assert.Equal(t, DefaultMinPause, cfg.MinPause)
	assert.Equal(t, DefaultMaxPause, cfg.MaxPause)
	assert.Empty(t, cfg.RemoteURL, "remote URL is derived at finalize time")
}

func TestFinalizeDerivesRemoteURL(t *testing.T) {
	cfg := New("gitdance")
	cfg.RepoPath = t.TempDir()

	require.NoError(t, cfg.Finalize())

	assert.Equal(t, "git@github.com:klevermonicker/bookish-octo-fortnight.git", cfg.RemoteURL)
}

func TestFinalizeKeepsExplicitRemoteURL(t *testing.T) {
	cfg := New("gitdance")
	cfg.RepoPath = t.TempDir()
	cfg.RemoteURL = "git@example.org:someone/elsewhere.git"

	require.NoError(t, cfg.Finalize())

	assert.Equal(t, "git@example.org:someone/elsewhere.git", cfg.RemoteURL)
}

func TestFinalizeValidation(t *testing.T) {
	tests := map[string]func(*Config){
		"empty owner":        func(c *Config) { c.Owner = "" },
		"empty repo":         func(c *Config) { c.RepoName = "" },
		"zero pool size":     func(c *Config) { c.PoolSize = 0 },
		"negative gap weeks": func(c *Config) { c.GapWeeks = -1 },
		"inverted pacing":    func(c *Config) { c.MinPause = time.Second; c.MaxPause = time.Millisecond },
		"negative pacing":    func(c *Config) { c.MinPause = -time.Second },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := New("gitdance")
			cfg.RepoPath = t.TempDir()
			mutate(cfg)

			err := cfg.Finalize()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfiguration))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	content := `[remote]
owner = alice
repo = canvas
host = codeberg.org

[local]
pool_size = 4

[pattern]
gap_weeks = 0

[pacing]
min_ms = 10
max_ms = 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := New("gitdance")
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "alice", cfg.Owner)
	assert.Equal(t, "canvas", cfg.RepoName)
	assert.Equal(t, "codeberg.org", cfg.SSHHost)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 0, cfg.GapWeeks)
	assert.Equal(t, 10*time.Millisecond, cfg.MinPause)
	assert.Equal(t, 20*time.Millisecond, cfg.MaxPause)

	cfg.RepoPath = t.TempDir()
	require.NoError(t, cfg.Finalize())
	assert.Equal(t, "git@codeberg.org:alice/canvas.git", cfg.RemoteURL)
}

func TestLoadFileMissingIsFine(t *testing.T) {
	cfg := New("gitdance")
	assert.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.ini")))
	assert.Equal(t, DefaultOwner, cfg.Owner)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[remote\nbroken"), 0o644))

	cfg := New("gitdance")
	err := cfg.LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfiguration))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GITDANCE_OWNER", "bob")
	t.Setenv("GITDANCE_POOL_SIZE", "7")
	t.Setenv("GITDANCE_DEBUG", "true")
	t.Setenv("GITDANCE_GAP_WEEKS", "not-a-number")

	cfg := New("gitdance")
	cfg.LoadFromEnvironment()

	assert.Equal(t, "bob", cfg.Owner)
	assert.Equal(t, 7, cfg.PoolSize)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 1, cfg.GapWeeks, "unparseable values keep the previous setting")
}

func TestPoolFiles(t *testing.T) {
	cfg := New("gitdance")
	cfg.PoolSize = 3

	assert.Equal(t, []string{"dance-0.txt", "dance-1.txt", "dance-2.txt"}, cfg.PoolFiles())
}

func TestPatternFromDefaults(t *testing.T) {
	cfg := New("gitdance")

	p, err := cfg.Pattern()
	require.NoError(t, err)
	assert.Equal(t, 3*7*7+2*7, p.Width())
}

func TestLogFileKeyedByRepoPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	a := New("gitdance")
	a.RepoPath = filepath.Join(t.TempDir(), "one")
	require.NoError(t, a.Finalize())

	b := New("gitdance")
	b.RepoPath = filepath.Join(t.TempDir(), "two")
	require.NoError(t, b.Finalize())

	assert.NotEqual(t, a.LogFile, b.LogFile)
}
