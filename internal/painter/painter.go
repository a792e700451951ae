package painter

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/klevermonicker/gitdance/internal/config"
	"github.com/klevermonicker/gitdance/internal/gitx"
	"github.com/klevermonicker/gitdance/internal/logger"
	"github.com/klevermonicker/gitdance/internal/pacing"
	"github.com/klevermonicker/gitdance/internal/pattern"
	"github.com/klevermonicker/gitdance/internal/repo"
)

// Push cadence. Pushing after every commit would multiply network round
// trips, so live runs push every third commit and backfills every fifth,
// plus always on the last commit of a batch.
const (
	livePushEvery     = 3
	backfillPushEvery = 5
)

// Backdated commits get a working-hours timestamp so a day's commits do
// not all land at midnight.
const (
	backdateHourMin = 9
	backdateHourMax = 18
)

// Painter drives commit cycles against the working copy: for a given
// day it asks the pattern for an intensity, turns that into a commit
// count, and performs that many file-mutate/add/commit cycles with
// periodic pushes.
type Painter struct {
	Config  *config.Config
	Pattern *pattern.Pattern
	Repo    *repo.Manager
	Git     gitx.Client
	Logger  logger.Logger

	// Pacing spaces out commit cycles. The zero value disables pacing.
	Pacing pacing.Policy

	// Rand drives commit counts and backdated hours; nil means a
	// time-seeded source.
	Rand *rand.Rand

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// New builds a Painter wired to the real git binary, pacing commits
// within the configured bounds.
func New(cfg *config.Config, pat *pattern.Pattern, log logger.Logger) *Painter {
	client := gitx.NewClient(cfg.RepoPath)
	return &Painter{
		Config:  cfg,
		Pattern: pat,
		Repo:    repo.NewManagerWithClient(cfg, log, client),
		Git:     client,
		Logger:  log,
		Pacing:  pacing.Policy{Min: cfg.MinPause, Max: cfg.MaxPause},
	}
}

func (p *Painter) rng() *rand.Rand {
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.Rand
}

func (p *Painter) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// DailyUpdate paints today: it ensures the working copy, reads today's
// intensity from the pattern, and creates the corresponding number of
// commits. A zero-intensity day performs no commits and still succeeds.
func (p *Painter) DailyUpdate(ctx context.Context) error {
	if err := p.Repo.EnsureLocalCopy(ctx); err != nil {
		return err
	}

	today := p.now()
	intensity := p.Pattern.IntensityFor(today)
	if intensity == pattern.IntensityNone {
		p.Logger.InfoToUser("No commits needed for today (%s) according to the pattern", today.Format("2006-01-02"))
		return nil
	}

	n := pattern.CommitCount(intensity, p.rng())
	if err := p.PaintDay(ctx, n); err != nil {
		return err
	}

	p.Logger.Success("Daily update completed for %s", today.Format("2006-01-02"))
	return nil
}

// PaintDay creates n commits dated now, overwriting pool files round
// robin and pushing every third commit and on the last one. A failed
// step is logged and the loop proceeds to the next index.
func (p *Painter) PaintDay(ctx context.Context, n int) error {
	today := p.now()
	dateStr := today.Format("2006-01-02")
	stamp := today.Format("20060102150405")

	p.Logger.Info("Creating %d commits for today (%s)", n, dateStr)

	branch := p.Repo.CurrentBranch(ctx)

	if err := p.Repo.Sync(ctx); err != nil {
		p.Logger.Warning("Pre-commit sync failed: %v", err)
	}

	for i := 0; i < n; i++ {
		name, path := p.Repo.PoolFilePath(i)

		content := fmt.Sprintf("Dancing stick figure commit - %s - %s - %d - %s\n", dateStr, stamp, i, uuid.NewString())
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			p.Logger.Error("Failed to write %s: %v", name, err)
			continue
		}

		if err := p.Git.Add(ctx, name); err != nil {
			p.Logger.Error("Failed to stage %s: %v", name, err)
			continue
		}

		msg := fmt.Sprintf("Dancing stick figure - %s - %d", dateStr, i)
		if err := p.Git.Commit(ctx, gitx.CommitOptions{Message: msg}); err != nil {
			p.Logger.Error("Commit %d failed: %v", i, err)
			continue
		}

		if i%livePushEvery == 0 || i == n-1 {
			if err := p.Repo.PushChanges(ctx, branch); err != nil {
				p.Logger.Error("Failed to push commit %d: %v", i, err)
				if syncErr := p.Repo.Sync(ctx); syncErr != nil {
					p.Logger.Warning("Recovery sync failed: %v", syncErr)
				}
			}
		}

		if err := p.Pacing.Pause(ctx); err != nil {
			return err
		}
	}

	// Final push covers commits whose periodic push failed or was skipped.
	return p.Repo.PushChanges(ctx, branch)
}

// Backfill paints every day from start through today with backdated
// commits. With force enabled, a push that still fails after the lease
// escalation is retried as a blind force push.
func (p *Painter) Backfill(ctx context.Context, start time.Time, force bool) error {
	if err := p.Repo.EnsureLocalCopy(ctx); err != nil {
		return err
	}

	today := p.now()
	p.Logger.InfoToUser("Creating pattern from %s to %s", start.Format("2006-01-02"), today.Format("2006-01-02"))

	branch := p.Repo.CurrentBranch(ctx)

	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		intensity := p.Pattern.IntensityFor(day)
		if intensity == pattern.IntensityNone {
			continue
		}

		n := pattern.CommitCount(intensity, p.rng())
		p.Logger.Info("Creating %d commits for %s", n, day.Format("2006-01-02"))

		if err := p.paintBackdated(ctx, day, n, branch, force); err != nil {
			return err
		}
	}

	p.finalPush(ctx, branch, force)
	p.Logger.Success("Initial setup completed")
	return nil
}

// paintBackdated creates n commits whose author and committer dates are
// overridden to the target day at a randomized working hour. Pushes
// happen every fifth commit and on the last one.
func (p *Painter) paintBackdated(ctx context.Context, day time.Time, n int, branch string, force bool) error {
	dateStr := day.Format("2006-01-02")

	for i := 0; i < n; i++ {
		name, path := p.Repo.PoolFilePath(i)

		content := fmt.Sprintf("Initial setup - %s - %d - %s\n", dateStr, i, uuid.NewString())
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			p.Logger.Error("Failed to write %s: %v", name, err)
			continue
		}

		if err := p.Git.Add(ctx, name); err != nil {
			p.Logger.Error("Failed to stage %s: %v", name, err)
			continue
		}

		hour := backdateHourMin + p.rng().Intn(backdateHourMax-backdateHourMin+1)
		commitDate := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())

		msg := fmt.Sprintf("Initial setup - %s - %d", dateStr, i)
		if err := p.Git.Commit(ctx, gitx.CommitOptions{Message: msg, Date: commitDate}); err != nil {
			p.Logger.Error("Backdated commit %d failed: %v", i, err)
			continue
		}

		if i%backfillPushEvery == 0 || i == n-1 {
			p.finalPush(ctx, branch, force)
		}

		if err := p.Pacing.Pause(ctx); err != nil {
			return err
		}
	}

	return nil
}

// finalPush runs the escalation chain and, only when force is enabled,
// falls back to a blind force push.
func (p *Painter) finalPush(ctx context.Context, branch string, force bool) {
	err := p.Repo.PushChanges(ctx, branch)
	if err == nil {
		return
	}

	p.Logger.Error("Push failed: %v", err)
	if force {
		p.Logger.Warning("Attempting force push due to --force flag")
		if forceErr := p.Git.Push(ctx, gitx.PushForce, branch); forceErr != nil {
			p.Logger.Error("Force push failed: %v", forceErr)
		}
	}
}

// TestCommit creates and pushes a single throwaway commit to verify the
// whole modify/stage/commit/push path. When the push fails it derives
// the remote's default branch and retries against it.
func (p *Painter) TestCommit(ctx context.Context) error {
	if !p.Git.IsWorkTree(ctx) {
		return fmt.Errorf("%s is not a git repository", p.Config.RepoPath)
	}

	timestamp := p.now().Format("2006-01-02 15:04:05")
	path := filepath.Join(p.Config.RepoPath, "test_commit.txt")

	if err := os.WriteFile(path, []byte(fmt.Sprintf("Test commit at %s\n", timestamp)), 0o644); err != nil {
		return err
	}
	p.Logger.Info("Created test file: %s", path)

	if email, err := p.Git.ConfigValue(ctx, "user.email"); err == nil && email != "" {
		p.Logger.Info("Committing as %s", email)
	} else {
		p.Logger.Warning("Could not determine git user.email")
	}

	if err := p.Git.Add(ctx, "test_commit.txt"); err != nil {
		return err
	}
	if err := p.Git.Commit(ctx, gitx.CommitOptions{Message: fmt.Sprintf("Test commit at %s", timestamp)}); err != nil {
		return err
	}

	if last, err := p.Git.RecentLog(ctx, 1); err == nil {
		p.Logger.Info("Latest commit: %s", strings.TrimSpace(last))
	}

	branch := p.Repo.CurrentBranch(ctx)
	if err := p.Git.Push(ctx, gitx.PushPlain, branch); err != nil {
		p.Logger.Error("Failed to push test commit: %v", err)

		defaultBranch, headErr := p.Git.HeadBranchOfRemote(ctx)
		if headErr != nil {
			return err
		}
		p.Logger.Info("Attempting to push to detected default branch: %s", defaultBranch)
		return p.Git.Push(ctx, gitx.PushPlain, defaultBranch)
	}

	return nil
}
