// Package doctor implements the repository health checks and the
// self-healing fix, reset, and test-commit paths of gitdance-doctor.
package doctor
