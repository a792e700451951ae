package gitx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Call records one operation performed against a RecordingClient.
type Call struct {
	Op   string
	Args []string
}

// String renders the call as "op arg arg".
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	return c.Op + " " + strings.Join(c.Args, " ")
}

// RecordingClient is a test double for Client that records every call
// without touching real storage. Behavior is driven by its fields: Errs
// injects failures per operation, PushErrs is a queue consumed by
// successive Push calls so escalation chains can be scripted.
type RecordingClient struct {
	Calls []Call

	// Errs maps an operation name to the error it should return.
	Errs map[string]error

	// PushErrs is consumed in order by Push calls; once drained, pushes
	// fall back to Errs["push"] (usually nil, i.e. success).
	PushErrs []error

	// Canned outputs.
	Branch         string // CurrentBranch result; defaults to "main"
	Remotes        string
	StatusOutput   string
	LogOutput      string
	HeadBranch     string
	MergeBaseHash  string
	RevParseByRev  map[string]string
	ConfigValues   map[string]string
	LocalBranchSet map[string]bool
	Ancestor       bool
	WorkTree       bool
	Authenticated  bool
	SSHResponse    string

	// CommitDates collects the Date field of every Commit call.
	CommitDates []time.Time
}

// NewRecordingClient creates a RecordingClient with benign defaults: a
// "main" branch, a valid work tree, and every operation succeeding.
func NewRecordingClient() *RecordingClient {
	return &RecordingClient{
		Errs:     map[string]error{},
		Branch:   "main",
		WorkTree: true,
		Ancestor: false,
	}
}

// CallOps returns the rendered form of every recorded call, for asserting
// on operation order.
func (f *RecordingClient) CallOps() []string {
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.String()
	}
	return ops
}

// CountOp returns how many recorded calls have the given operation name.
func (f *RecordingClient) CountOp(op string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *RecordingClient) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Errs[op]
}

// Clone implements Client.
func (f *RecordingClient) Clone(ctx context.Context, url, path string) error {
	return f.record("clone", url, path)
}

// RemoteURL implements Client.
func (f *RecordingClient) RemoteURL(ctx context.Context) (string, error) {
	return f.Remotes, f.record("remote-v")
}

// SetRemoteURL implements Client.
func (f *RecordingClient) SetRemoteURL(ctx context.Context, url string) error {
	return f.record("set-remote-url", url)
}

// CurrentBranch implements Client.
func (f *RecordingClient) CurrentBranch(ctx context.Context) (string, error) {
	err := f.record("current-branch")
	branch := f.Branch
	if branch == "" {
		branch = "main"
	}
	if err != nil {
		return "", err
	}
	return branch, nil
}

// HasLocalBranch implements Client.
func (f *RecordingClient) HasLocalBranch(ctx context.Context, name string) bool {
	_ = f.record("has-local-branch", name)
	return f.LocalBranchSet[name]
}

// LocalBranches implements Client.
func (f *RecordingClient) LocalBranches(ctx context.Context) (string, error) {
	return "* " + f.Branch, f.record("local-branches")
}

// RemoteBranches implements Client.
func (f *RecordingClient) RemoteBranches(ctx context.Context) (string, error) {
	return "  origin/" + f.Branch, f.record("remote-branches")
}

// AllBranches implements Client.
func (f *RecordingClient) AllBranches(ctx context.Context) (string, error) {
	out := fmt.Sprintf("* %s\n  remotes/origin/%s", f.Branch, f.Branch)
	return out, f.record("all-branches")
}

// Fetch implements Client.
func (f *RecordingClient) Fetch(ctx context.Context, branch string) error {
	return f.record("fetch", branch)
}

// FetchAll implements Client.
func (f *RecordingClient) FetchAll(ctx context.Context) error {
	return f.record("fetch-all")
}

// Stash implements Client.
func (f *RecordingClient) Stash(ctx context.Context) error {
	return f.record("stash")
}

// MergeBase implements Client.
func (f *RecordingClient) MergeBase(ctx context.Context, a, b string) (string, error) {
	return f.MergeBaseHash, f.record("merge-base", a, b)
}

// IsAncestor implements Client.
func (f *RecordingClient) IsAncestor(ctx context.Context, ancestor, descendant string) bool {
	_ = f.record("is-ancestor", ancestor, descendant)
	return f.Ancestor
}

// RevParse implements Client.
func (f *RecordingClient) RevParse(ctx context.Context, rev string) (string, error) {
	err := f.record("rev-parse", rev)
	if hash, ok := f.RevParseByRev[rev]; ok {
		return hash, err
	}
	return "deadbeef", err
}

// MergeFF implements Client.
func (f *RecordingClient) MergeFF(ctx context.Context, ref string) error {
	return f.record("merge-ff", ref)
}

// Merge implements Client.
func (f *RecordingClient) Merge(ctx context.Context, ref string) error {
	return f.record("merge", ref)
}

// Rebase implements Client.
func (f *RecordingClient) Rebase(ctx context.Context, ref string) error {
	return f.record("rebase", ref)
}

// AbortRebase implements Client.
func (f *RecordingClient) AbortRebase(ctx context.Context) error {
	return f.record("rebase-abort")
}

// PullRebase implements Client.
func (f *RecordingClient) PullRebase(ctx context.Context, branch string) error {
	return f.record("pull-rebase", branch)
}

// Pull implements Client.
func (f *RecordingClient) Pull(ctx context.Context, branch string) error {
	return f.record("pull", branch)
}

// Checkout implements Client.
func (f *RecordingClient) Checkout(ctx context.Context, branch string) error {
	return f.record("checkout", branch)
}

// CheckoutNew implements Client.
func (f *RecordingClient) CheckoutNew(ctx context.Context, branch, start string) error {
	return f.record("checkout-new", branch, start)
}

// ResetHard implements Client.
func (f *RecordingClient) ResetHard(ctx context.Context, ref string) error {
	return f.record("reset-hard", ref)
}

// CleanUntracked implements Client.
func (f *RecordingClient) CleanUntracked(ctx context.Context) error {
	return f.record("clean")
}

// Add implements Client.
func (f *RecordingClient) Add(ctx context.Context, paths ...string) error {
	return f.record("add", paths...)
}

// AddAll implements Client.
func (f *RecordingClient) AddAll(ctx context.Context) error {
	return f.record("add-all")
}

// Commit implements Client.
func (f *RecordingClient) Commit(ctx context.Context, opts CommitOptions) error {
	f.CommitDates = append(f.CommitDates, opts.Date)
	return f.record("commit", opts.Message)
}

// Push implements Client. Consumes PushErrs in order, then falls back to
// Errs["push"].
func (f *RecordingClient) Push(ctx context.Context, mode PushMode, branch string) error {
	modeName := "plain"
	switch mode {
	case PushForceWithLease:
		modeName = "force-with-lease"
	case PushForce:
		modeName = "force"
	}
	f.Calls = append(f.Calls, Call{Op: "push", Args: []string{modeName, branch}})

	if len(f.PushErrs) > 0 {
		err := f.PushErrs[0]
		f.PushErrs = f.PushErrs[1:]
		return err
	}
	return f.Errs["push"]
}

// Status implements Client.
func (f *RecordingClient) Status(ctx context.Context) (string, error) {
	return f.StatusOutput, f.record("status")
}

// RecentLog implements Client.
func (f *RecordingClient) RecentLog(ctx context.Context, n int) (string, error) {
	return f.LogOutput, f.record("log", strconv.Itoa(n))
}

// HeadBranchOfRemote implements Client.
func (f *RecordingClient) HeadBranchOfRemote(ctx context.Context) (string, error) {
	err := f.record("head-branch")
	if err != nil {
		return "", err
	}
	if f.HeadBranch == "" {
		return "main", nil
	}
	return f.HeadBranch, nil
}

// ConfigValue implements Client.
func (f *RecordingClient) ConfigValue(ctx context.Context, key string) (string, error) {
	return f.ConfigValues[key], f.record("config", key)
}

// GC implements Client.
func (f *RecordingClient) GC(ctx context.Context) error {
	return f.record("gc")
}

// IsWorkTree implements Client.
func (f *RecordingClient) IsWorkTree(ctx context.Context) bool {
	_ = f.record("is-work-tree")
	return f.WorkTree
}

// ProbeSSH implements Client.
func (f *RecordingClient) ProbeSSH(ctx context.Context, host string) (bool, string) {
	_ = f.record("probe-ssh", host)
	return f.Authenticated, f.SSHResponse
}
