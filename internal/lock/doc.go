// Package lock provides per-repository mutual exclusion between
// gitdance processes using flock-based lock files with stale lock
// recovery.
package lock
