package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/klevermonicker/gitdance/internal/config"
	gderrors "github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
	"github.com/klevermonicker/gitdance/internal/painter"
	"github.com/klevermonicker/gitdance/internal/pattern"
	"github.com/klevermonicker/gitdance/internal/repo"
)

// Confirmer approves a destructive action. The CLI wires an interactive
// prompt (or a pre-authorized --yes flag); tests wire a canned answer.
type Confirmer func(prompt string) bool

// DenyAll is the Confirmer used when no confirmation channel exists.
func DenyAll(string) bool { return false }

// Doctor inspects working-copy health and applies minimal repairs. All
// checks are read-only; Fix and Reset mutate.
type Doctor struct {
	Config  *config.Config
	Git     gitx.Client
	Logger  logger.Logger
	Out     io.Writer
	Confirm Confirmer
}

// New builds a Doctor against the real git binary, printing to stdout.
func New(cfg *config.Config, log logger.Logger) *Doctor {
	return &Doctor{
		Config:  cfg,
		Git:     gitx.NewClient(cfg.RepoPath),
		Logger:  log,
		Out:     os.Stdout,
		Confirm: DenyAll,
	}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// PathExists checks that the working copy directory is present.
func (d *Doctor) PathExists() bool {
	if _, err := os.Stat(d.Config.RepoPath); err != nil {
		fmt.Fprintf(d.Out, "  %s Repository directory does not exist at %s\n", red("✗"), d.Config.RepoPath)
		return false
	}
	fmt.Fprintf(d.Out, "  %s Repository directory exists at %s\n", green("✓"), d.Config.RepoPath)
	return true
}

// IsRepository checks that the directory is a usable git work tree.
func (d *Doctor) IsRepository(ctx context.Context) bool {
	if !d.PathExists() {
		return false
	}
	if !d.Git.IsWorkTree(ctx) {
		fmt.Fprintf(d.Out, "  %s Directory is not a git repository\n", red("✗"))
		return false
	}
	fmt.Fprintf(d.Out, "  %s Valid git repository\n", green("✓"))
	return true
}

// RemoteConfigured checks that origin points at the expected hosting
// account. The check is containment-based, matching owner rather than
// the exact URL, so both SSH and HTTPS remotes pass.
func (d *Doctor) RemoteConfigured(ctx context.Context) bool {
	if !d.Git.IsWorkTree(ctx) {
		return false
	}

	remotes, err := d.Git.RemoteURL(ctx)
	if err != nil {
		fmt.Fprintf(d.Out, "  %s Failed to read remotes: %v\n", red("✗"), err)
		return false
	}

	if strings.Contains(remotes, "origin") && strings.Contains(remotes, d.Config.Owner) {
		fmt.Fprintf(d.Out, "  %s Remote 'origin' is correctly configured\n", green("✓"))
		return true
	}

	fmt.Fprintf(d.Out, "  %s Remote 'origin' is not correctly configured\n", red("✗"))
	fmt.Fprintf(d.Out, "    Expected: %s\n", d.Config.RemoteURL)
	fmt.Fprintf(d.Out, "    Actual: %s\n", strings.TrimSpace(remotes))
	return false
}

// Branches lists local and remote branches and the current branch.
// Informational; fails only when the repository itself is unusable.
func (d *Doctor) Branches(ctx context.Context) bool {
	if !d.Git.IsWorkTree(ctx) {
		return false
	}

	if local, err := d.Git.LocalBranches(ctx); err == nil {
		fmt.Fprintf(d.Out, "  Local branches:\n%s\n", indent(local))
	}
	if remote, err := d.Git.RemoteBranches(ctx); err == nil {
		fmt.Fprintf(d.Out, "  Remote branches:\n%s\n", indent(remote))
	}

	branch, err := d.Git.CurrentBranch(ctx)
	if err != nil {
		fmt.Fprintf(d.Out, "  %s Failed to get current branch\n", red("✗"))
	} else {
		fmt.Fprintf(d.Out, "  %s Current branch: %s\n", green("✓"), branch)
	}
	return true
}

// RecentLog checks that the history is non-empty.
func (d *Doctor) RecentLog(ctx context.Context) bool {
	if !d.Git.IsWorkTree(ctx) {
		return false
	}

	out, err := d.Git.RecentLog(ctx, 10)
	if err != nil || strings.TrimSpace(out) == "" {
		fmt.Fprintf(d.Out, "  %s No commits found in the log\n", yellow("!"))
		return false
	}

	fmt.Fprintf(d.Out, "  %s Recent commits:\n%s\n", green("✓"), indent(out))
	return true
}

// CheckAll runs the full read-only check suite and reports whether every
// check passed.
func (d *Doctor) CheckAll(ctx context.Context) bool {
	fmt.Fprintf(d.Out, "Running gitdance health checks...\n\n")

	ok := true

	fmt.Fprintf(d.Out, "%s Working copy\n", cyan("→"))
	ok = d.IsRepository(ctx) && ok

	fmt.Fprintf(d.Out, "%s Remote configuration\n", cyan("→"))
	ok = d.RemoteConfigured(ctx) && ok

	fmt.Fprintf(d.Out, "%s Branches\n", cyan("→"))
	ok = d.Branches(ctx) && ok

	fmt.Fprintf(d.Out, "%s History\n", cyan("→"))
	ok = d.RecentLog(ctx) && ok

	return ok
}

// Fix applies minimal repairs: clone when absent, repoint a wrong
// remote, then verify the whole path end to end with a test commit.
func (d *Doctor) Fix(ctx context.Context) error {
	fmt.Fprintf(d.Out, "Starting repository diagnostics and fixes...\n\n")

	if _, err := os.Stat(d.Config.RepoPath); os.IsNotExist(err) {
		fmt.Fprintf(d.Out, "%s Repository doesn't exist, cloning fresh\n", cyan("→"))
		if err := os.MkdirAll(filepath.Dir(d.Config.RepoPath), 0o755); err != nil {
			return err
		}
		if err := d.Git.Clone(ctx, d.Config.RemoteURL, d.Config.RepoPath); err != nil {
			return err
		}
	}

	if !d.Git.IsWorkTree(ctx) {
		return gderrors.Wrapf(gderrors.ErrNotGitRepository, "%s exists but is not a git repository", d.Config.RepoPath)
	}

	if !d.RemoteConfigured(ctx) {
		fmt.Fprintf(d.Out, "%s Fixing remote configuration\n", cyan("→"))
		if err := d.Git.SetRemoteURL(ctx, d.Config.RemoteURL); err != nil {
			return err
		}
	}

	d.Branches(ctx)

	if !d.RecentLog(ctx) {
		fmt.Fprintf(d.Out, "  %s Empty log, this might be a new repository or the wrong branch\n", yellow("!"))
	}

	if err := d.testCommit(ctx); err != nil {
		return gderrors.Wrap(err, "test commit failed")
	}

	fmt.Fprintf(d.Out, "\n%s Repository diagnostics and fixes completed\n", green("✓"))
	return nil
}

// Reset brings the working copy to a clean state tracking the remote
// default branch. A directory that is not a repository is deleted and
// re-cloned, but only with explicit confirmation.
func (d *Doctor) Reset(ctx context.Context) error {
	if _, err := os.Stat(d.Config.RepoPath); os.IsNotExist(err) {
		fmt.Fprintf(d.Out, "%s Repository directory doesn't exist, cloning fresh\n", cyan("→"))
		if err := os.MkdirAll(filepath.Dir(d.Config.RepoPath), 0o755); err != nil {
			return err
		}
		return d.Git.Clone(ctx, d.Config.RemoteURL, d.Config.RepoPath)
	}

	if !d.Git.IsWorkTree(ctx) {
		fmt.Fprintf(d.Out, "%s Directory exists but is not a git repository: %s\n", red("✗"), d.Config.RepoPath)
		if !d.Confirm(fmt.Sprintf("Delete %s and clone fresh?", d.Config.RepoPath)) {
			return gderrors.Wrap(gderrors.ErrNotGitRepository, "reset declined")
		}
		if err := os.RemoveAll(d.Config.RepoPath); err != nil {
			return err
		}
		return d.Git.Clone(ctx, d.Config.RemoteURL, d.Config.RepoPath)
	}

	fmt.Fprintf(d.Out, "%s Fetching latest changes from remote\n", cyan("→"))
	if err := d.Git.FetchAll(ctx); err != nil {
		return err
	}

	branches, err := d.Git.AllBranches(ctx)
	if err != nil {
		return gderrors.Wrap(err, "failed to list branches")
	}

	defaultBranch := ""
	switch {
	case strings.Contains(branches, "remotes/origin/main"):
		defaultBranch = "main"
	case strings.Contains(branches, "remotes/origin/master"):
		defaultBranch = "master"
	default:
		// No recognizable remote branch; ask the remote itself.
		if head, headErr := d.Git.HeadBranchOfRemote(ctx); headErr == nil {
			defaultBranch = head
		} else {
			defaultBranch = "main"
		}
	}
	fmt.Fprintf(d.Out, "%s Using default branch: %s\n", cyan("→"), defaultBranch)

	if err := d.Git.ResetHard(ctx, "origin/"+defaultBranch); err != nil {
		return gderrors.Wrapf(err, "failed to reset to origin/%s", defaultBranch)
	}

	if err := d.Git.Checkout(ctx, defaultBranch); err != nil {
		// The local branch may not exist yet; create it from the remote.
		if err := d.Git.CheckoutNew(ctx, defaultBranch, "origin/"+defaultBranch); err != nil {
			return gderrors.Wrapf(err, "failed to switch to %s", defaultBranch)
		}
	}

	if err := d.Git.CleanUntracked(ctx); err != nil {
		d.Logger.Warning("Failed to clean untracked files: %v", err)
	}

	fmt.Fprintf(d.Out, "\n%s Repository reset successfully\n", green("✓"))
	return nil
}

// TestCommit runs the single-commit connectivity check and prints the
// outcome.
func (d *Doctor) TestCommit(ctx context.Context) error {
	if err := d.testCommit(ctx); err != nil {
		fmt.Fprintf(d.Out, "%s Test commit failed: %v\n", red("✗"), err)
		return err
	}
	fmt.Fprintf(d.Out, "%s Test commit pushed successfully\n", green("✓"))
	return nil
}

func (d *Doctor) testCommit(ctx context.Context) error {
	pat, err := d.Config.Pattern()
	if err != nil {
		pat = pattern.Default()
	}

	p := &painter.Painter{
		Config:  d.Config,
		Pattern: pat,
		Repo:    repo.NewManagerWithClient(d.Config, d.Logger, d.Git),
		Git:     d.Git,
		Logger:  d.Logger,
	}
	return p.TestCommit(ctx)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
