package gitx

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/klevermonicker/gitdance/internal/errors"
)

// PushMode selects how a push is performed.
type PushMode int

const (
	// PushPlain is a normal push.
	PushPlain PushMode = iota

	// PushForceWithLease overwrites the remote branch only if its tip
	// still matches the last-known value.
	PushForceWithLease

	// PushForce overwrites the remote branch unconditionally. Only used
	// behind an explicit opt-in flag.
	PushForce
)

// CommitOptions controls a single commit.
type CommitOptions struct {
	// Message is the commit message. Required.
	Message string

	// Date, when non-zero, backdates the commit by overriding both the
	// author and committer timestamps through the environment.
	Date time.Time
}

// Client is the injected version-control capability. Every mutation the
// tools perform goes through one of these methods, each of which shells
// out to the external git binary. A test double can record calls without
// touching real storage.
type Client interface {
	// Clone clones url into path. Runs outside the working copy.
	Clone(ctx context.Context, url, path string) error

	// RemoteURL returns the verbose remote listing (git remote -v).
	RemoteURL(ctx context.Context) (string, error)

	// SetRemoteURL repoints origin at url.
	SetRemoteURL(ctx context.Context, url string) error

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)

	// HasLocalBranch reports whether refs/heads/name exists.
	HasLocalBranch(ctx context.Context, name string) bool

	// LocalBranches returns the local branch listing.
	LocalBranches(ctx context.Context) (string, error)

	// RemoteBranches returns the remote-tracking branch listing.
	RemoteBranches(ctx context.Context) (string, error)

	// AllBranches returns the combined branch listing (git branch -a).
	AllBranches(ctx context.Context) (string, error)

	// Fetch fetches one branch from origin.
	Fetch(ctx context.Context, branch string) error

	// FetchAll fetches from all remotes.
	FetchAll(ctx context.Context) error

	// Stash stashes local modifications.
	Stash(ctx context.Context) error

	// MergeBase returns the merge base of two revisions.
	MergeBase(ctx context.Context, a, b string) (string, error)

	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ctx context.Context, ancestor, descendant string) bool

	// RevParse resolves a revision to a commit hash.
	RevParse(ctx context.Context, rev string) (string, error)

	// MergeFF fast-forwards to ref, refusing to create a merge commit.
	MergeFF(ctx context.Context, ref string) error

	// Merge merges ref into the current branch.
	Merge(ctx context.Context, ref string) error

	// Rebase rebases the current branch onto ref.
	Rebase(ctx context.Context, ref string) error

	// AbortRebase aborts an in-progress rebase.
	AbortRebase(ctx context.Context) error

	// PullRebase pulls branch from origin with rebase.
	PullRebase(ctx context.Context, branch string) error

	// Pull pulls branch from origin.
	Pull(ctx context.Context, branch string) error

	// Checkout switches to branch.
	Checkout(ctx context.Context, branch string) error

	// CheckoutNew creates branch from start and switches to it.
	CheckoutNew(ctx context.Context, branch, start string) error

	// ResetHard hard-resets the current branch to ref.
	ResetHard(ctx context.Context, ref string) error

	// CleanUntracked removes untracked files and directories.
	CleanUntracked(ctx context.Context) error

	// Add stages the given paths.
	Add(ctx context.Context, paths ...string) error

	// AddAll stages every change in the working copy.
	AddAll(ctx context.Context) error

	// Commit records staged changes, optionally backdated.
	Commit(ctx context.Context, opts CommitOptions) error

	// Push pushes branch to origin in the given mode. Failures carry a
	// classified RejectReason.
	Push(ctx context.Context, mode PushMode, branch string) error

	// Status returns porcelain status output.
	Status(ctx context.Context) (string, error)

	// RecentLog returns the last n one-line log entries.
	RecentLog(ctx context.Context, n int) (string, error)

	// HeadBranchOfRemote derives origin's default branch from its
	// descriptive listing.
	HeadBranchOfRemote(ctx context.Context) (string, error)

	// ConfigValue reads a git config value.
	ConfigValue(ctx context.Context, key string) (string, error)

	// GC runs aggressive garbage collection on the object store.
	GC(ctx context.Context) error

	// IsWorkTree reports whether the working copy is a git repository.
	IsWorkTree(ctx context.Context) bool

	// ProbeSSH tests secure-shell connectivity to the hosting service.
	// Returns the authenticated flag and the service's response text.
	ProbeSSH(ctx context.Context, host string) (bool, string)
}

// CLIClient implements Client by invoking the git command-line tool for
// every operation, scoped to a single working copy.
type CLIClient struct {
	repoPath string
	executor CommandExecutor
}

// NewClient creates a CLIClient for the working copy at repoPath.
func NewClient(repoPath string) *CLIClient {
	return NewClientWithExecutor(repoPath, NewExecExecutor())
}

// NewClientWithExecutor creates a CLIClient with a custom executor.
func NewClientWithExecutor(repoPath string, executor CommandExecutor) *CLIClient {
	return &CLIClient{repoPath: repoPath, executor: executor}
}

// IsRepository checks if the given path is a git repository.
func IsRepository(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", path, "rev-parse", "--is-inside-work-tree")
	return NewExecExecutor().Execute(ctx, cmd) == nil
}

// git builds a git command scoped to the working copy.
func (c *CLIClient) git(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-C", c.repoPath}, args...)
	return exec.CommandContext(ctx, "git", full...)
}

func (c *CLIClient) run(ctx context.Context, args ...string) error {
	return c.executor.Execute(ctx, c.git(ctx, args...))
}

func (c *CLIClient) output(ctx context.Context, args ...string) (string, error) {
	out, err := c.executor.ExecuteWithOutput(ctx, c.git(ctx, args...))
	return strings.TrimSpace(out), err
}

// Clone clones url into path. This is the one operation that runs outside
// the working copy, since the copy does not exist yet.
func (c *CLIClient) Clone(ctx context.Context, url, path string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, path)
	if err := c.executor.Execute(ctx, cmd); err != nil {
		return errors.Wrap(errors.ErrCloneFailed, err.Error())
	}
	return nil
}

// RemoteURL returns the verbose remote listing.
func (c *CLIClient) RemoteURL(ctx context.Context) (string, error) {
	return c.output(ctx, "remote", "-v")
}

// SetRemoteURL repoints origin at url.
func (c *CLIClient) SetRemoteURL(ctx context.Context, url string) error {
	return c.run(ctx, "remote", "set-url", "origin", url)
}

// CurrentBranch returns the checked-out branch name.
func (c *CLIClient) CurrentBranch(ctx context.Context) (string, error) {
	return c.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// HasLocalBranch reports whether refs/heads/name exists.
func (c *CLIClient) HasLocalBranch(ctx context.Context, name string) bool {
	return c.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name) == nil
}

// LocalBranches returns the local branch listing.
func (c *CLIClient) LocalBranches(ctx context.Context) (string, error) {
	return c.output(ctx, "branch")
}

// RemoteBranches returns the remote-tracking branch listing.
func (c *CLIClient) RemoteBranches(ctx context.Context) (string, error) {
	return c.output(ctx, "branch", "-r")
}

// AllBranches returns the combined branch listing.
func (c *CLIClient) AllBranches(ctx context.Context) (string, error) {
	return c.output(ctx, "branch", "-a")
}

// Fetch fetches one branch from origin.
func (c *CLIClient) Fetch(ctx context.Context, branch string) error {
	return c.run(ctx, "fetch", "origin", branch)
}

// FetchAll fetches from all remotes.
func (c *CLIClient) FetchAll(ctx context.Context) error {
	return c.run(ctx, "fetch", "--all")
}

// Stash stashes local modifications.
func (c *CLIClient) Stash(ctx context.Context) error {
	return c.run(ctx, "stash")
}

// MergeBase returns the merge base of two revisions.
func (c *CLIClient) MergeBase(ctx context.Context, a, b string) (string, error) {
	return c.output(ctx, "merge-base", a, b)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *CLIClient) IsAncestor(ctx context.Context, ancestor, descendant string) bool {
	return c.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant) == nil
}

// RevParse resolves a revision to a commit hash.
func (c *CLIClient) RevParse(ctx context.Context, rev string) (string, error) {
	return c.output(ctx, "rev-parse", rev)
}

// MergeFF fast-forwards to ref.
func (c *CLIClient) MergeFF(ctx context.Context, ref string) error {
	return c.run(ctx, "merge", "--ff-only", ref)
}

// Merge merges ref into the current branch.
func (c *CLIClient) Merge(ctx context.Context, ref string) error {
	return c.run(ctx, "merge", ref)
}

// Rebase rebases the current branch onto ref.
func (c *CLIClient) Rebase(ctx context.Context, ref string) error {
	return c.run(ctx, "rebase", ref)
}

// AbortRebase aborts an in-progress rebase.
func (c *CLIClient) AbortRebase(ctx context.Context) error {
	return c.run(ctx, "rebase", "--abort")
}

// PullRebase pulls branch from origin with rebase.
func (c *CLIClient) PullRebase(ctx context.Context, branch string) error {
	return c.run(ctx, "pull", "--rebase", "origin", branch)
}

// Pull pulls branch from origin.
func (c *CLIClient) Pull(ctx context.Context, branch string) error {
	return c.run(ctx, "pull", "origin", branch)
}

// Checkout switches to branch.
func (c *CLIClient) Checkout(ctx context.Context, branch string) error {
	return c.run(ctx, "checkout", branch)
}

// CheckoutNew creates branch from start and switches to it.
func (c *CLIClient) CheckoutNew(ctx context.Context, branch, start string) error {
	return c.run(ctx, "checkout", "-b", branch, start)
}

// ResetHard hard-resets the current branch to ref.
func (c *CLIClient) ResetHard(ctx context.Context, ref string) error {
	return c.run(ctx, "reset", "--hard", ref)
}

// CleanUntracked removes untracked files and directories.
func (c *CLIClient) CleanUntracked(ctx context.Context) error {
	return c.run(ctx, "clean", "-fd")
}

// Add stages the given paths.
func (c *CLIClient) Add(ctx context.Context, paths ...string) error {
	return c.run(ctx, append([]string{"add"}, paths...)...)
}

// AddAll stages every change in the working copy.
func (c *CLIClient) AddAll(ctx context.Context) error {
	return c.run(ctx, "add", "--all")
}

// Commit records staged changes. A non-zero opts.Date backdates the
// commit by overriding the author and committer timestamps.
func (c *CLIClient) Commit(ctx context.Context, opts CommitOptions) error {
	cmd := c.git(ctx, "commit", "-m", opts.Message)
	if !opts.Date.IsZero() {
		stamp := opts.Date.Format("2006-01-02 15:04:05")
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_DATE="+stamp,
			"GIT_COMMITTER_DATE="+stamp,
		)
	}
	return c.executor.Execute(ctx, cmd)
}

// Push pushes branch to origin in the given mode. On failure the stderr
// is classified into a RejectReason so callers can drive the escalation
// chain without matching message text.
func (c *CLIClient) Push(ctx context.Context, mode PushMode, branch string) error {
	args := []string{"push"}
	switch mode {
	case PushForceWithLease:
		args = append(args, "--force-with-lease")
	case PushForce:
		args = append(args, "--force")
	}
	args = append(args, "origin", branch)

	err := c.run(ctx, args...)
	if err != nil {
		var gitErr *errors.GitError
		if errors.As(err, &gitErr) {
			gitErr.Reject = ClassifyPushFailure(gitErr.Output)
		}
	}
	return err
}

// Status returns porcelain status output.
func (c *CLIClient) Status(ctx context.Context) (string, error) {
	return c.output(ctx, "status", "--porcelain")
}

// RecentLog returns the last n one-line log entries.
func (c *CLIClient) RecentLog(ctx context.Context, n int) (string, error) {
	return c.output(ctx, "log", "-n", strconv.Itoa(n), "--oneline")
}

// HeadBranchOfRemote parses origin's descriptive listing for its HEAD
// branch. Used as a fallback when a plain push cannot determine the
// target branch.
func (c *CLIClient) HeadBranchOfRemote(ctx context.Context) (string, error) {
	out, err := c.output(ctx, "remote", "show", "origin")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "HEAD branch") {
			parts := strings.Split(line, ":")
			return strings.TrimSpace(parts[len(parts)-1]), nil
		}
	}
	return "", errors.New("no HEAD branch in remote listing")
}

// ConfigValue reads a git config value.
func (c *CLIClient) ConfigValue(ctx context.Context, key string) (string, error) {
	return c.output(ctx, "config", key)
}

// GC runs aggressive garbage collection on the object store.
func (c *CLIClient) GC(ctx context.Context) error {
	return c.run(ctx, "gc", "--aggressive", "--prune=now")
}

// IsWorkTree reports whether the working copy is a git repository.
func (c *CLIClient) IsWorkTree(ctx context.Context) bool {
	return c.run(ctx, "rev-parse", "--is-inside-work-tree") == nil
}

// ProbeSSH tests connectivity to the hosting service. The service closes
// the session with a non-zero exit even on success, so success is
// detected by the authentication marker in the response instead.
func (c *CLIClient) ProbeSSH(ctx context.Context, host string) (bool, string) {
	cmd := exec.CommandContext(ctx, "ssh", "-T", "git@"+host)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	_ = c.executor.Execute(ctx, cmd)

	transcript := strings.TrimSpace(stderr.String())
	return strings.Contains(transcript, "successfully authenticated"), transcript
}
