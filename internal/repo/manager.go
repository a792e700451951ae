package repo

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klevermonicker/gitdance/internal/config"
	gderrors "github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
)

// Manager owns the local working copy: it clones it into existence,
// keeps it in sync with the remote, maintains the tracked file pool,
// and provides the destructive reset and cleanup operations.
type Manager struct {
	config *config.Config
	git    gitx.Client
	logger logger.Logger
}

// NewManager creates a Manager driving the real git binary against the
// configured working copy path.
func NewManager(cfg *config.Config, log logger.Logger) *Manager {
	return NewManagerWithClient(cfg, log, gitx.NewClient(cfg.RepoPath))
}

// NewManagerWithClient creates a Manager with an injected client,
// primarily for tests.
func NewManagerWithClient(cfg *config.Config, log logger.Logger, client gitx.Client) *Manager {
	return &Manager{
		config: cfg,
		git:    client,
		logger: log,
	}
}

// CurrentBranch determines the branch the working copy is on. Detection
// failure falls back through the common default branch names, and as a
// last resort assumes "main". Callers re-invoke this rather than caching
// the result; a branch switch mid-run cannot be ruled out.
func (m *Manager) CurrentBranch(ctx context.Context) string {
	branch, err := m.git.CurrentBranch(ctx)
	if err == nil && branch != "" && branch != "HEAD" {
		return branch
	}

	for _, candidate := range []string{"main", "master"} {
		if m.git.HasLocalBranch(ctx, candidate) {
			m.logger.Info("Detected %s branch", candidate)
			return candidate
		}
	}

	m.logger.Warning("Could not determine branch, defaulting to main")
	return "main"
}

// EnsureLocalCopy makes sure a usable working copy exists at the
// configured path. A missing path is cloned from the remote; an existing
// one gets its remote URL repointed and is synced. Either way the
// tracked file pool is ensured afterwards. A failed clone is fatal to
// the run; a failed sync is not.
func (m *Manager) EnsureLocalCopy(ctx context.Context) error {
	if _, err := os.Stat(m.config.RepoPath); os.IsNotExist(err) {
		m.logger.Info("Cloning %s to %s", m.config.RemoteURL, m.config.RepoPath)

		if err := os.MkdirAll(filepath.Dir(m.config.RepoPath), 0o755); err != nil {
			return gderrors.Wrapf(err, "failed to create parent directory for %s", m.config.RepoPath)
		}

		if err := m.git.Clone(ctx, m.config.RemoteURL, m.config.RepoPath); err != nil {
			return err
		}

		if _, err := m.git.RemoteURL(ctx); err != nil {
			return gderrors.Wrap(err, "failed to verify remote of fresh clone")
		}
	} else {
		m.logger.Info("Using existing repository at %s", m.config.RepoPath)

		if err := m.git.SetRemoteURL(ctx, m.config.RemoteURL); err != nil {
			m.logger.Warning("Failed to repoint remote URL: %v", err)
		}

		if err := m.Sync(ctx); err != nil {
			m.logger.Warning("Failed to sync with remote repository, will try to continue anyway: %v", err)
		}
	}

	return m.EnsureFilePool(ctx)
}

// Sync reconciles the local branch with its remote counterpart without
// ever discarding local commits. Local modifications are stashed first.
// Identical tips are a no-op; a local tip behind the remote is
// fast-forwarded; diverged histories are rebased, falling back to a
// merge when the rebase fails.
func (m *Manager) Sync(ctx context.Context) error {
	m.logger.Info("Synchronizing repository with remote...")

	branch := m.CurrentBranch(ctx)
	m.logger.Info("Current branch: %s", branch)

	if err := m.git.Stash(ctx); err != nil {
		m.logger.Warning("Stash failed: %v", err)
	}

	if err := m.git.Fetch(ctx, branch); err != nil {
		m.logger.Warning("Failed to fetch from origin/%s: %v", branch, err)
	}

	remote := "origin/" + branch

	if _, err := m.git.MergeBase(ctx, remote, branch); err != nil {
		m.logger.Warning("Failed to find merge-base with %s", remote)
		if err := m.git.PullRebase(ctx, branch); err != nil {
			m.logger.Warning("Failed to pull with rebase, trying normal pull")
			return m.git.Pull(ctx, branch)
		}
		return nil
	}

	localTip, err := m.git.RevParse(ctx, branch)
	if err != nil {
		return gderrors.Wrapf(err, "failed to resolve %s", branch)
	}
	remoteTip, err := m.git.RevParse(ctx, remote)
	if err != nil {
		return gderrors.Wrapf(err, "failed to resolve %s", remote)
	}

	if localTip == remoteTip {
		m.logger.Info("Local and remote branches are in sync")
		return nil
	}

	if m.git.IsAncestor(ctx, branch, remote) {
		m.logger.Info("Fast-forwarding local branch")
		return m.git.MergeFF(ctx, remote)
	}

	m.logger.Info("Branches have diverged, attempting rebase")
	if err := m.git.Rebase(ctx, remote); err != nil {
		m.logger.Warning("Rebase failed, trying merge")
		if abortErr := m.git.AbortRebase(ctx); abortErr != nil {
			m.logger.Warning("Failed to abort rebase: %v", abortErr)
		}
		return m.git.Merge(ctx, remote)
	}

	return nil
}

// EnsureFilePool creates any missing tracked pool files with placeholder
// content and commits and pushes them when the working copy shows
// pending changes.
func (m *Manager) EnsureFilePool(ctx context.Context) error {
	pool := m.config.PoolFiles()

	for _, name := range pool {
		path := filepath.Join(m.config.RepoPath, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("Initial content for the dancing figures pattern.\n"), 0o644); err != nil {
				return gderrors.Wrapf(err, "failed to create pool file %s", name)
			}
		}
	}

	if err := m.git.Add(ctx, pool...); err != nil {
		return err
	}

	status, err := m.git.Status(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		return nil
	}

	if err := m.git.Commit(ctx, gitx.CommitOptions{Message: "Set up tracked file pool"}); err != nil {
		return err
	}
	return m.PushChanges(ctx, m.CurrentBranch(ctx))
}

// PushChanges pushes the branch with the escalation chain: a plain push
// first; when that is rejected as non-fast-forward, one sync followed by
// one retried plain push; and only then a force-with-lease push.
func (m *Manager) PushChanges(ctx context.Context, branch string) error {
	m.logger.Info("Pushing changes to %s...", branch)

	err := m.git.Push(ctx, gitx.PushPlain, branch)
	if err == nil {
		return nil
	}

	if gderrors.PushRejectReason(err) == gderrors.RejectNonFastForward {
		m.logger.Warning("Push rejected as non-fast-forward, syncing repository")
		if syncErr := m.Sync(ctx); syncErr == nil {
			if err = m.git.Push(ctx, gitx.PushPlain, branch); err == nil {
				return nil
			}
		} else {
			m.logger.Warning("Sync before retry failed: %v", syncErr)
		}
	}

	m.logger.Warning("Plain push failed, trying force-with-lease")
	return m.git.Push(ctx, gitx.PushForceWithLease, branch)
}

// Reset discards local-only state: it fetches all remotes, hard-resets
// the current branch to its remote counterpart, and removes untracked
// files. Local-only commits are lost.
func (m *Manager) Reset(ctx context.Context) error {
	if _, err := os.Stat(m.config.RepoPath); os.IsNotExist(err) {
		return gderrors.Wrapf(gderrors.ErrNotGitRepository, "repository does not exist at %s, cannot reset", m.config.RepoPath)
	}

	m.logger.Info("Resetting local repository to match remote...")

	branch := m.CurrentBranch(ctx)

	if err := m.git.FetchAll(ctx); err != nil {
		return gderrors.Wrap(err, "failed to fetch from remote")
	}

	if err := m.git.ResetHard(ctx, "origin/"+branch); err != nil {
		return gderrors.Wrapf(err, "failed to reset to origin/%s", branch)
	}

	if err := m.git.CleanUntracked(ctx); err != nil {
		m.logger.Warning("Failed to clean untracked files: %v", err)
	}

	m.logger.Info("Repository reset successfully")
	return nil
}

// Cleanup deletes every file in the working copy that is neither in the
// tracked pool nor an essential repository file, commits the deletion,
// pushes, and compacts the object store. File loss is irreversible for
// anything not protected.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.logger.Info("Cleaning up repository to reduce size...")

	protected := make(map[string]bool)
	for _, name := range m.config.PoolFiles() {
		protected[name] = true
	}
	for _, name := range []string{"README.md", ".gitignore", "LICENSE"} {
		protected[name] = true
	}

	err := filepath.WalkDir(m.config.RepoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if protected[d.Name()] || strings.HasSuffix(d.Name(), ".go") {
			return nil
		}

		m.logger.Info("Removing file: %s", path)
		return os.Remove(path)
	})
	if err != nil {
		return gderrors.Wrap(err, "cleanup walk failed")
	}

	if err := m.git.AddAll(ctx); err != nil {
		return err
	}

	status, statusErr := m.git.Status(ctx)
	if statusErr == nil && strings.TrimSpace(status) != "" {
		if err := m.git.Commit(ctx, gitx.CommitOptions{Message: "Clean up repository to reduce size"}); err != nil {
			return err
		}
		if err := m.PushChanges(ctx, m.CurrentBranch(ctx)); err != nil {
			m.logger.Warning("Failed to push cleanup commit: %v", err)
		}
	}

	if err := m.git.GC(ctx); err != nil {
		m.logger.Warning("Garbage collection failed: %v", err)
	}

	return nil
}

// TestSSH probes secure-shell connectivity to the configured host and
// reports the hosting service's response.
func (m *Manager) TestSSH(ctx context.Context) (bool, string) {
	m.logger.Info("Testing SSH connection to %s...", m.config.SSHHost)
	ok, response := m.git.ProbeSSH(ctx, m.config.SSHHost)
	if ok {
		m.logger.Info("SSH connection to %s successful", m.config.SSHHost)
	} else {
		m.logger.Error("SSH connection to %s failed: %s", m.config.SSHHost, response)
	}
	return ok, response
}

// PoolFilePath returns the repository-relative name and the absolute
// path of the pool file for the given commit index.
func (m *Manager) PoolFilePath(index int) (name, path string) {
	pool := m.config.PoolFiles()
	name = pool[index%len(pool)]
	return name, filepath.Join(m.config.RepoPath, name)
}
