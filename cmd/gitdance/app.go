package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/klevermonicker/gitdance/internal/config"
	gderrors "github.com/klevermonicker/gitdance/internal/errors"
	"github.com/klevermonicker/gitdance/internal/lock"
	"github.com/klevermonicker/gitdance/internal/logger"
	"github.com/klevermonicker/gitdance/internal/painter"
	"github.com/klevermonicker/gitdance/internal/repo"
)

// Locker manages file locking
type Locker interface {
	Acquire() error
	Release() error
}

// App is the main gitdance application. Dependencies left nil are
// constructed during Initialize, which lets tests inject doubles.
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Locker  Locker
	Manager *repo.Manager
	Painter *painter.Painter

	Stdout io.Writer
	Stderr io.Writer

	execLookPath func(file string) (string, error)

	// Flag state. Operations are mutually exclusive; the first matching
	// one wins in the order test-ssh, reset, setup, daily, cleanup.
	SetupDate  string
	Daily      bool
	TestSSH    bool
	CleanupOp  bool
	ResetOp    bool
	Force      bool
	ConfigFile string

	// Config-shadowing flags. Staged here rather than bound to Config
	// directly so Initialize can apply them after the file and
	// environment layers; flags win the layering.
	Debug       bool
	PatternFile string

	flags *pflag.FlagSet
}

// NewDefaultApp creates an App with standard dependencies.
func NewDefaultApp() *App {
	return &App{
		Config:       config.New("gitdance"),
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		execLookPath: exec.LookPath,
	}
}

// NewRootCmd builds the cobra command exposing the CLI surface and
// binding its flags to the app.
func NewRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gitdance",
		Short:         "Paint a bitmap pattern onto a contribution calendar",
		Long:          "gitdance paints dancing stick figures onto a hosting service's contribution calendar by committing at pattern-driven intensities.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.hasOperation() {
				return cmd.Usage()
			}
			return a.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&a.SetupDate, "setup", "", "backfill the pattern from START_DATE (YYYY-MM-DD) to today")
	flags.BoolVar(&a.Daily, "daily", false, "create today's commits according to the pattern")
	flags.BoolVar(&a.TestSSH, "test-ssh", false, "test the SSH connection to the hosting service")
	flags.BoolVar(&a.CleanupOp, "cleanup", false, "remove non-essential files from the working copy (use with caution)")
	flags.BoolVar(&a.ResetOp, "reset", false, "reset the local working copy to match the remote")
	flags.BoolVar(&a.Force, "force", false, "allow blind force pushes during backfill (use with caution)")
	flags.BoolVar(&a.Debug, "debug", false, "enable verbose logging")
	flags.StringVar(&a.ConfigFile, "config", "", "path to the config file")
	flags.StringVar(&a.PatternFile, "pattern", "", "path to a YAML pattern file replacing the built-in figures")
	a.flags = flags

	return cmd
}

// applyFlagOverrides re-applies values explicitly set on the command
// line over whatever the file and environment layers produced.
func (a *App) applyFlagOverrides() {
	if a.flags == nil {
		return
	}
	if a.flags.Changed("debug") {
		a.Config.Debug = a.Debug
	}
	if a.flags.Changed("pattern") {
		a.Config.PatternFile = a.PatternFile
	}
}

func (a *App) hasOperation() bool {
	return a.TestSSH || a.ResetOp || a.SetupDate != "" || a.Daily || a.CleanupOp
}

// Initialize finishes configuration layering and constructs the
// components not provided up front.
func (a *App) Initialize() error {
	configFile := a.ConfigFile
	if configFile == "" {
		configFile = config.DefaultFilePath()
	}
	if err := a.Config.LoadFile(configFile); err != nil {
		return err
	}
	a.Config.LoadFromEnvironment()
	a.applyFlagOverrides()

	if err := a.Config.Finalize(); err != nil {
		return err
	}

	if a.Logger == nil {
		a.Logger = logger.New(true, a.Config.LogFile, a.Config.Debug)
	}

	if _, err := a.execLookPath("git"); err != nil {
		return fmt.Errorf("git is not found in PATH")
	}

	if a.Locker == nil {
		locker, err := lock.New(a.Config.RepoPath)
		if err != nil {
			return gderrors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}

	if a.Manager == nil {
		a.Manager = repo.NewManager(a.Config, a.Logger)
	}

	if a.Painter == nil {
		pat, err := a.Config.Pattern()
		if err != nil {
			return err
		}
		a.Painter = painter.New(a.Config, pat, a.Logger)
	}

	return nil
}

// Run dispatches the selected operation. Mutating operations take the
// per-repository lock first; the SSH probe does not touch the working
// copy and runs without it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "Error during cleanup: %v\n", err)
		}
	}()

	if a.TestSSH {
		ok, response := a.Manager.TestSSH(ctx)
		if !ok {
			_, _ = fmt.Fprintf(a.Stderr, "SSH connection failed: %s\n", response)
			return fmt.Errorf("ssh connectivity check failed")
		}
		a.Logger.Success("SSH connection verified")
		return nil
	}

	if err := a.Locker.Acquire(); err != nil {
		if gderrors.Is(err, gderrors.ErrAlreadyRunning) {
			return err
		}
		return gderrors.Wrap(gderrors.ErrLockAcquisitionFailure, err.Error())
	}

	switch {
	case a.ResetOp:
		return a.Manager.Reset(ctx)

	case a.SetupDate != "":
		start, err := time.Parse("2006-01-02", a.SetupDate)
		if err != nil {
			return gderrors.Wrapf(gderrors.ErrInvalidConfiguration, "invalid start date %q, expected YYYY-MM-DD", a.SetupDate)
		}
		return a.Painter.Backfill(ctx, start, a.Force)

	case a.Daily:
		return a.Painter.DailyUpdate(ctx)

	case a.CleanupOp:
		return a.Manager.Cleanup(ctx)
	}

	return nil
}

// Close releases the lock and flushes the logger.
func (a *App) Close() error {
	var errs []error

	if a.Locker != nil {
		if err := a.Locker.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
