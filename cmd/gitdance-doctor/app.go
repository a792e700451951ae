package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klevermonicker/gitdance/internal/config"
	"github.com/klevermonicker/gitdance/internal/doctor"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
)

// App is the gitdance-doctor application.
type App struct {
	Config *config.Config
	Logger logger.Logger
	Doctor *doctor.Doctor

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	execLookPath func(file string) (string, error)

	// Flag state.
	Check      bool
	Fix        bool
	ResetOp    bool
	TestCommit bool
	Yes        bool
	ConfigFile string
}

// NewDefaultApp creates an App with standard dependencies.
func NewDefaultApp() *App {
	return &App{
		Config:       config.New("gitdance-doctor"),
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Stdin:        os.Stdin,
		execLookPath: exec.LookPath,
	}
}

// NewRootCmd builds the cobra command for the diagnostic tool.
func NewRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gitdance-doctor",
		Short:         "Inspect and repair the gitdance working copy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&a.Check, "check", false, "run the read-only health checks")
	flags.BoolVar(&a.Fix, "fix", false, "apply minimal repairs and verify with a test commit")
	flags.BoolVar(&a.ResetOp, "reset", false, "reset the working copy to a clean state")
	flags.BoolVar(&a.TestCommit, "test-commit", false, "create and push a single test commit")
	flags.BoolVar(&a.Yes, "yes", false, "pre-approve destructive repairs")
	flags.StringVar(&a.ConfigFile, "config", "", "path to the config file")

	return cmd
}

// Initialize finishes configuration layering and builds the Doctor.
func (a *App) Initialize() error {
	configFile := a.ConfigFile
	if configFile == "" {
		configFile = config.DefaultFilePath()
	}
	if err := a.Config.LoadFile(configFile); err != nil {
		return err
	}
	a.Config.LoadFromEnvironment()

	if err := a.Config.Finalize(); err != nil {
		return err
	}

	if a.Logger == nil {
		a.Logger = logger.New(true, a.Config.LogFile, a.Config.Debug)
	}

	if _, err := a.execLookPath("git"); err != nil {
		return fmt.Errorf("git is not found in PATH")
	}

	if a.Doctor == nil {
		a.Doctor = &doctor.Doctor{
			Config:  a.Config,
			Git:     gitx.NewClient(a.Config.RepoPath),
			Logger:  a.Logger,
			Out:     a.Stdout,
			Confirm: a.confirmer(),
		}
	}

	return nil
}

// confirmer returns the confirmation channel for destructive repairs:
// pre-approval via --yes, otherwise a terminal prompt.
func (a *App) confirmer() doctor.Confirmer {
	if a.Yes {
		return func(string) bool { return true }
	}
	reader := bufio.NewReader(a.Stdin)
	return func(prompt string) bool {
		_, _ = fmt.Fprintf(a.Stdout, "%s (y/n): ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		return strings.TrimSpace(strings.ToLower(answer)) == "y"
	}
}

// Run dispatches the selected operation; with no flags it runs the
// check suite and prints follow-up hints.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}
	defer func() {
		if a.Logger != nil {
			_ = a.Logger.Close()
		}
	}()

	switch {
	case a.Check:
		if !a.Doctor.CheckAll(ctx) {
			return fmt.Errorf("health checks failed")
		}
		return nil

	case a.ResetOp:
		return a.Doctor.Reset(ctx)

	case a.TestCommit:
		return a.Doctor.TestCommit(ctx)

	case a.Fix:
		return a.Doctor.Fix(ctx)
	}

	ok := a.Doctor.CheckAll(ctx)
	_, _ = fmt.Fprintln(a.Stdout)
	_, _ = fmt.Fprintln(a.Stdout, "To fix repository issues, run: gitdance-doctor --fix")
	_, _ = fmt.Fprintln(a.Stdout, "To create a test commit, run: gitdance-doctor --test-commit")
	_, _ = fmt.Fprintln(a.Stdout, "To reset the repository, run: gitdance-doctor --reset")
	if !ok {
		return fmt.Errorf("health checks failed")
	}
	return nil
}
