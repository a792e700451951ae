// Package repo manages the lifecycle of the local working copy: clone
// on first use, remote synchronization with stash/rebase/merge
// fallbacks, the tracked file pool, the push escalation chain, and the
// destructive reset and cleanup operations.
package repo
