package git

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReloadCallback loads and validates every policy under policyPath. A
// non-nil error makes the watcher roll the checkout back.
type ReloadCallback func(policyPath string) error

// DefaultDebounce is how long the watcher waits after a change before
// reloading.
const DefaultDebounce = 100 * time.Millisecond

// Watcher polls a Repository and reloads policies when a pull brings in
// changed policy files. If the reload fails the checkout is rolled back to
// the last commit that loaded cleanly and reloaded from there.
type Watcher struct {
	repo         *Repository
	pollInterval time.Duration
	pollTimeout  time.Duration
	debounce     time.Duration
	reloadFn     ReloadCallback
	logger       *slog.Logger

	mu            sync.RWMutex
	running       bool
	stopCh        chan struct{}
	lastGoodSHA   string
	debounceTimer *time.Timer
	metrics       WatcherMetrics
}

// WatcherMetrics tracks watcher operation metrics.
type WatcherMetrics struct {
	PollCount         int64
	SuccessfulReloads int64
	FailedReloads     int64
	SkippedPolls      int64
	LastReloadTime    time.Time
	LastReloadDur     time.Duration
}

// NewWatcher creates a watcher. Call Start to begin polling.
func NewWatcher(repo *Repository, interval, timeout time.Duration, reloadFn ReloadCallback) *Watcher {
	return &Watcher{
		repo:         repo,
		pollInterval: interval,
		pollTimeout:  timeout,
		debounce:     DefaultDebounce,
		reloadFn:     reloadFn,
		logger:       slog.Default().With("component", "policy.git"),
	}
}

// Start records HEAD as the last good commit and polls in the background
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if w.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	commit, err := w.repo.CurrentCommit()
	if err != nil {
		return fmt.Errorf("failed to get initial commit: %w", err)
	}

	w.lastGoodSHA = commit.SHA
	w.running = true
	w.stopCh = make(chan struct{})

	w.logger.Info("git watcher started",
		"poll_interval", w.pollInterval,
		"initial_commit", commit.ShortSHA(),
	)

	go w.pollLoop(ctx, w.stopCh)
	return nil
}

// Stop ends polling and cancels a pending reload.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return fmt.Errorf("watcher not running")
	}
	close(w.stopCh)
	w.running = false
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.logger.Info("git watcher stopped")
	return nil
}

// IsRunning reports whether the poll loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// LastGoodSHA is the commit policies were last loaded from.
func (w *Watcher) LastGoodSHA() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastGoodSHA
}

// Metrics returns a snapshot of the watcher counters.
func (w *Watcher) Metrics() WatcherMetrics {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.metrics
}

// CheckNow pulls immediately and reloads synchronously if policy files
// changed.
func (w *Watcher) CheckNow(ctx context.Context) error {
	w.mu.Lock()
	if w.lastGoodSHA == "" {
		if c, err := w.repo.CurrentCommit(); err == nil {
			w.lastGoodSHA = c.SHA
		}
	}
	w.mu.Unlock()

	changed, sha, err := w.poll(ctx)
	if err != nil || !changed {
		return err
	}
	return w.reload(ctx, sha)
}

func (w *Watcher) pollLoop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			changed, sha, err := w.poll(ctx)
			if err != nil {
				w.logger.Error("error checking for policy changes", "error", err)
				continue
			}
			if changed {
				w.scheduleReload(ctx, sha)
			}
		}
	}
}

// poll pulls and reports whether any policy file changed.
func (w *Watcher) poll(ctx context.Context) (bool, string, error) {
	w.mu.Lock()
	w.metrics.PollCount++
	w.mu.Unlock()

	timeout := w.pollTimeout
	if timeout <= 0 {
		timeout = w.repo.config.timeout()
	}
	pullCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := w.repo.Pull(pullCtx)
	if err != nil {
		return false, "", err
	}
	if !result.HadChanges {
		return false, "", nil
	}

	w.logger.Info("detected repository changes",
		"from_sha", shortSHA(result.FromSHA),
		"to_sha", shortSHA(result.ToSHA),
		"changed_files", len(result.ChangedFiles),
	)

	if !HasPolicyChanges(result.ChangedFiles) {
		w.mu.Lock()
		w.metrics.SkippedPolls++
		w.lastGoodSHA = result.ToSHA
		w.mu.Unlock()
		return false, "", nil
	}
	return true, result.ToSHA, nil
}

func (w *Watcher) scheduleReload(ctx context.Context, sha string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(ctx, sha); err != nil {
			w.logger.Error("policy reload failed", "error", err)
		}
	})
}

func (w *Watcher) reload(ctx context.Context, sha string) error {
	start := time.Now()
	err := w.reloadFn(w.repo.PolicyPath())

	w.mu.Lock()
	w.metrics.LastReloadTime = time.Now()
	w.metrics.LastReloadDur = time.Since(start)
	lastGood := w.lastGoodSHA
	if err == nil {
		w.metrics.SuccessfulReloads++
		w.lastGoodSHA = sha
	} else {
		w.metrics.FailedReloads++
	}
	w.mu.Unlock()

	if err == nil {
		w.logger.Info("reloaded policies from git",
			"from_sha", shortSHA(lastGood),
			"to_sha", shortSHA(sha),
		)
		return nil
	}

	w.logger.Error("policy reload failed, rolling back",
		"error", err,
		"commit_sha", shortSHA(sha),
		"rollback_to", shortSHA(lastGood),
	)
	if rbErr := w.repo.Rollback(ctx, lastGood); rbErr != nil {
		return fmt.Errorf("reload failed: %w (rollback also failed: %v)", err, rbErr)
	}
	if rbErr := w.reloadFn(w.repo.PolicyPath()); rbErr != nil {
		return fmt.Errorf("reload failed: %w (reload after rollback failed: %v)", err, rbErr)
	}
	return fmt.Errorf("reload failed at %s: %w", shortSHA(sha), err)
}

// HasPolicyChanges reports whether any of files is a policy file.
func HasPolicyChanges(files []string) bool {
	for _, f := range files {
		if isPolicyFile(f) {
			return true
		}
	}
	return false
}
