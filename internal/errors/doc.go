// Package errors provides error types and helpers used throughout gitdance.
//
// It defines sentinel errors for the failure categories the tools care
// about, wrapper helpers mirroring the standard library, and structured
// error types (GitError, LockError, ConfigError) that carry operation
// context alongside the underlying cause.
//
// GitError additionally carries a RejectReason so that push escalation
// logic can branch on a typed classification instead of matching git's
// stderr wording at every call site.
package errors
