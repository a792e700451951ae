// Package gitx wraps the external git command-line tool behind a Client
// interface with one method per operation the tools perform. Nothing in
// gitdance mutates a repository directly; every clone, commit, push, and
// reset is delegated to the git binary through this package.
//
// Push failures are classified into a typed errors.RejectReason in
// exactly one place (ClassifyPushFailure), so callers drive the
// plain -> sync-and-retry -> force-with-lease escalation without
// depending on git's stderr wording.
//
// RecordingClient is a test double that records every call; tests script
// failures through its Errs map and PushErrs queue.
package gitx
