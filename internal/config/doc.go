// Package config defines the shared configuration for the gitdance
// tools and its layering: compiled-in defaults, then the INI config
// file, then GITDANCE_* environment variables, then command-line flags.
package config
