package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/pattern"
)

// Compiled-in defaults. Everything here can be overridden by the config
// file, the environment, or flags - in that order.
const (
	// DefaultOwner is the hosting account whose calendar gets painted
	DefaultOwner = "klevermonicker"

	// DefaultRepoName is the repository receiving the commits
	DefaultRepoName = "bookish-octo-fortnight"

	// DefaultSSHHost is the hosting service reached over secure shell
	DefaultSSHHost = "github.com"

	// DefaultPoolSize is the number of tracked files reused across commits
	DefaultPoolSize = 10

	// DefaultMinPause and DefaultMaxPause bound the randomized delay
	// between commit cycles
	DefaultMinPause = 500 * time.Millisecond
	DefaultMaxPause = time.Second
)

// Config holds all settings shared by the gitdance tools. Built once at
// startup and passed to each component; components never reach for
// ambient state.
type Config struct {
	// Remote identity
	Owner    string
	RepoName string
	SSHHost  string

	// RemoteURL is derived from the identity fields during Finalize
	// unless set explicitly.
	RemoteURL string

	// RepoPath is the local working copy location.
	RepoPath string

	// PoolSize is the fixed number of tracked files reused for commits.
	PoolSize int

	// Pattern selection. GapWeeks applies to the built-in figures;
	// PatternFile, when set, replaces them entirely.
	GapWeeks    int
	PatternFile string

	// Pacing bounds for the randomized inter-commit delay.
	MinPause time.Duration
	MaxPause time.Duration

	// Debugging
	Debug   bool
	LogFile string

	// AppName distinguishes the per-tool log files.
	AppName string
}

// New creates a Config with the compiled-in defaults for the named tool.
func New(appName string) *Config {
	return &Config{
		Owner:    DefaultOwner,
		RepoName: DefaultRepoName,
		SSHHost:  DefaultSSHHost,
		PoolSize: DefaultPoolSize,
		GapWeeks: pattern.DefaultGapWeeks,
		MinPause: DefaultMinPause,
		MaxPause: DefaultMaxPause,
		AppName:  appName,
	}
}

// DefaultFilePath returns the expected location of the optional config
// file, honoring XDG_CONFIG_HOME.
func DefaultFilePath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "gitdance", "config.ini")
}

// LoadFile layers settings from an INI file over the current values.
// A missing file is not an error; a malformed one is.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return errors.NewConfigError("file", path,
			errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
	}

	remote := f.Section("remote")
	if v := remote.Key("owner").String(); v != "" {
		c.Owner = v
	}
	if v := remote.Key("repo").String(); v != "" {
		c.RepoName = v
	}
	if v := remote.Key("host").String(); v != "" {
		c.SSHHost = v
	}
	if v := remote.Key("url").String(); v != "" {
		c.RemoteURL = v
	}

	local := f.Section("local")
	if v := local.Key("path").String(); v != "" {
		c.RepoPath = v
	}
	if v, err := local.Key("pool_size").Int(); err == nil && v != 0 {
		c.PoolSize = v
	}

	pat := f.Section("pattern")
	if v, err := pat.Key("gap_weeks").Int(); err == nil && pat.HasKey("gap_weeks") {
		c.GapWeeks = v
	}
	if v := pat.Key("file").String(); v != "" {
		c.PatternFile = v
	}

	pacing := f.Section("pacing")
	if v, err := pacing.Key("min_ms").Int(); err == nil && pacing.HasKey("min_ms") {
		c.MinPause = time.Duration(v) * time.Millisecond
	}
	if v, err := pacing.Key("max_ms").Int(); err == nil && pacing.HasKey("max_ms") {
		c.MaxPause = time.Duration(v) * time.Millisecond
	}

	return nil
}

// LoadFromEnvironment layers settings from GITDANCE_* environment
// variables over the current values.
func (c *Config) LoadFromEnvironment() {
	c.Owner = getEnvString("GITDANCE_OWNER", c.Owner)
	c.RepoName = getEnvString("GITDANCE_REPO", c.RepoName)
	c.SSHHost = getEnvString("GITDANCE_SSH_HOST", c.SSHHost)
	c.RemoteURL = getEnvString("GITDANCE_REMOTE_URL", c.RemoteURL)
	c.RepoPath = getEnvString("GITDANCE_REPO_PATH", c.RepoPath)
	c.PoolSize = getEnvInt("GITDANCE_POOL_SIZE", c.PoolSize)
	c.GapWeeks = getEnvInt("GITDANCE_GAP_WEEKS", c.GapWeeks)
	c.PatternFile = getEnvString("GITDANCE_PATTERN_FILE", c.PatternFile)
	c.Debug = getEnvBool("GITDANCE_DEBUG", c.Debug)
	c.LogFile = getEnvString("GITDANCE_LOG_FILE", c.LogFile)
}

// Finalize validates the configuration and fills in the derived values:
// the SSH remote URL, the local working copy path, and the log file path.
func (c *Config) Finalize() error {
	if c.Owner == "" {
		return errors.NewConfigError("owner", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "owner must not be empty"))
	}
	if c.RepoName == "" {
		return errors.NewConfigError("repo", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "repo must not be empty"))
	}
	if c.PoolSize < 1 {
		return errors.NewConfigError("pool_size", c.PoolSize,
			errors.Wrap(errors.ErrInvalidConfiguration, "pool size must be at least 1"))
	}
	if c.GapWeeks < 0 {
		return errors.NewConfigError("gap_weeks", c.GapWeeks,
			errors.Wrap(errors.ErrInvalidConfiguration, "gap weeks cannot be negative"))
	}
	if c.MinPause < 0 || c.MaxPause < c.MinPause {
		return errors.NewConfigError("pacing", fmt.Sprintf("%v..%v", c.MinPause, c.MaxPause),
			errors.Wrap(errors.ErrInvalidConfiguration, "pacing bounds must satisfy 0 <= min <= max"))
	}

	if c.RemoteURL == "" {
		c.RemoteURL = fmt.Sprintf("git@%s:%s/%s.git", c.SSHHost, c.Owner, c.RepoName)
	}

	if c.RepoPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.NewConfigError("repo_path", "",
				errors.Wrap(errors.ErrInvalidConfiguration,
					fmt.Sprintf("failed to determine home directory: %v", err)))
		}
		c.RepoPath = filepath.Join(homeDir, "dancing_figs", c.RepoName)
	}

	absRepoPath, err := filepath.Abs(c.RepoPath)
	if err != nil {
		return errors.NewConfigError("repo_path", c.RepoPath,
			errors.Wrap(errors.ErrInvalidConfiguration,
				fmt.Sprintf("failed to resolve absolute path: %v", err)))
	}
	c.RepoPath = absRepoPath

	if c.LogFile == "" {
		c.LogFile = c.defaultLogFile()
	}

	return nil
}

// Pattern builds the configured pattern: the file-based one when a
// pattern file is set, otherwise the built-in figures with the
// configured gap.
func (c *Config) Pattern() (*pattern.Pattern, error) {
	if c.PatternFile != "" {
		return pattern.LoadFile(c.PatternFile)
	}
	return pattern.New(pattern.DefaultFigures(), c.GapWeeks)
}

// PoolFiles returns the names of the tracked file pool.
func (c *Config) PoolFiles() []string {
	files := make([]string, c.PoolSize)
	for i := range files {
		files[i] = fmt.Sprintf("dance-%d.txt", i)
	}
	return files
}

// defaultLogFile follows the XDG Base Directory Specification, keyed by a
// hash of the working copy path so parallel setups get separate logs.
func (c *Config) defaultLogFile() string {
	logDir := os.Getenv("XDG_DATA_HOME")
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			logDir = filepath.Join(homeDir, ".local", "share")
		} else {
			logDir = os.TempDir()
		}
	}

	repoHash := fmt.Sprintf("%x", sha256.Sum256([]byte(c.RepoPath)))[:8]
	name := c.AppName
	if name == "" {
		name = "gitdance"
	}
	return filepath.Join(logDir, "gitdance", "logs", fmt.Sprintf("%s-%s.log", name, repoHash))
}

// getEnvString returns an environment variable string or a default value
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as int or a default value
func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvBool returns an environment variable as bool or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(valueStr) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
