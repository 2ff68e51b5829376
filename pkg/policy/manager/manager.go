package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/policy/git"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// Policy source modes.
const (
	ModeFile = "file"
	ModeGit  = "git"
)

// ErrWatchDisabled is returned by Watch when the source has nothing to
// watch.
var ErrWatchDisabled = errors.New("policy watching is not enabled")

// ReloadResult describes one load attempt.
type ReloadResult struct {
	Version  string
	Count    int
	Duration time.Duration
	Err      error
}

// ReloadHook is called after every load attempt.
type ReloadHook func(ReloadResult)

// Manager loads retention policies from files or Git, validates them and
// serves the current set as a retention.PolicySource. A failed reload
// leaves the previous policy set in place.
type Manager struct {
	config   *Config
	loader   *PolicyLoader
	registry *PolicyRegistry
	calc     *retention.Calculator
	hooks    []ReloadHook
	logger   *slog.Logger

	gitRepo    *git.Repository
	gitWatcher *git.Watcher

	mu            sync.Mutex
	lastLoadTime  time.Time
	lastLoadError error

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	fileWatcher *FileWatcher
}

var _ retention.PolicySource = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithLoaderConfig overrides the loader limits.
func WithLoaderConfig(cfg *LoaderConfig) Option {
	return func(m *Manager) {
		m.loader = NewPolicyLoader(cfg, m.calc)
	}
}

// WithReloadHook registers a callback run after each load attempt.
func WithReloadHook(h ReloadHook) Option {
	return func(m *Manager) {
		m.hooks = append(m.hooks, h)
	}
}

// NewManager creates a manager. In git mode the repository is cloned
// before returning. Policies are not loaded until LoadPolicies.
func NewManager(ctx context.Context, cfg *Config, calc *retention.Calculator, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if calc == nil {
		calc = retention.NewCalculator()
	}

	m := &Manager{
		config:   cfg,
		calc:     calc,
		loader:   NewPolicyLoader(nil, calc),
		registry: NewPolicyRegistry(),
		logger:   slog.Default().With("component", "policy.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}

	switch cfg.Mode {
	case ModeFile, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("policy path cannot be empty")
		}

	case ModeGit:
		m.logger.Info("initializing git policy source",
			"repository", cfg.Git.Repository,
			"branch", cfg.Git.Branch,
		)
		repo, err := git.NewRepository(&cfg.Git)
		if err != nil {
			return nil, fmt.Errorf("failed to create git repository: %w", err)
		}
		if err := repo.Clone(ctx); err != nil {
			return nil, fmt.Errorf("failed to clone repository: %w", err)
		}
		m.gitRepo = repo
		if cfg.Git.PollInterval > 0 {
			m.gitWatcher = git.NewWatcher(repo, cfg.Git.PollInterval, cfg.Git.Timeout, m.ReloadFrom)
		}

	default:
		return nil, fmt.Errorf("unknown policy mode %q", cfg.Mode)
	}

	return m, nil
}

// LoadPolicies loads and validates the configured source and installs it.
func (m *Manager) LoadPolicies() error {
	return m.load(m.sourcePath(), "load")
}

// ReloadPolicies is LoadPolicies for a running process; on failure the
// previous policies stay active.
func (m *Manager) ReloadPolicies() error {
	return m.load(m.sourcePath(), "reload")
}

// ReloadFrom loads policies from path. It is the git watcher callback.
func (m *Manager) ReloadFrom(path string) error {
	return m.load(path, "reload")
}

func (m *Manager) load(path, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	m.logger.Info("loading retention policies", "operation", op, "path", path)

	_, span := tracing.Start(context.Background(), "policy."+op)
	policies, err := m.loader.Load(path)
	if err == nil {
		err = m.registry.Replace(policies)
	}
	span.SetAttributes(
		tracing.AttrPolicyVersion.String(m.registry.Version()),
		tracing.AttrPolicyCount.Int(m.registry.Count()),
	)
	tracing.End(span, err)

	result := ReloadResult{Duration: time.Since(start), Err: err}
	if err != nil {
		m.lastLoadError = err
		msg := "failed to load retention policies"
		if m.registry.Count() > 0 {
			msg = "failed to reload retention policies, keeping previous policies"
		}
		m.logger.Error(msg,
			"error", err,
			"duration_ms", result.Duration.Milliseconds(),
		)
		result.Version = m.registry.Version()
		result.Count = m.registry.Count()
		m.notify(result)
		return err
	}

	m.lastLoadTime = time.Now()
	m.lastLoadError = nil
	result.Version = m.registry.Version()
	result.Count = len(policies)

	m.logger.Info("retention policies loaded",
		"count", result.Count,
		"active", len(m.registry.Policies()),
		"version", result.Version,
		"duration_ms", result.Duration.Milliseconds(),
	)
	m.notify(result)
	return nil
}

func (m *Manager) notify(result ReloadResult) {
	for _, h := range m.hooks {
		h(result)
	}
}

// ValidatePoliciesDryRun loads path (or the configured source when path is
// empty) without installing anything. The error lists every malformed
// policy.
func (m *Manager) ValidatePoliciesDryRun(path string) ([]*retention.Policy, error) {
	if path == "" {
		path = m.sourcePath()
	}
	m.logger.Info("dry-run policy validation", "path", path)

	policies, err := m.loader.Load(path)
	if err != nil {
		return nil, err
	}
	m.logger.Info("dry-run validation successful", "count", len(policies))
	return policies, nil
}

// Policies implements retention.PolicySource.
func (m *Manager) Policies() []*retention.Policy {
	return m.registry.Policies()
}

// Policy implements retention.PolicySource.
func (m *Manager) Policy(id string) (*retention.Policy, bool) {
	return m.registry.Policy(id)
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *PolicyRegistry {
	return m.registry
}

// Version is the loaded policy set's content hash.
func (m *Manager) Version() string {
	return m.registry.Version()
}

// LastLoadTime is when policies were last installed successfully.
func (m *Manager) LastLoadTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoadTime
}

// LastLoadError is the error from the latest load attempt, or nil.
func (m *Manager) LastLoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoadError
}

// Watch hot-reloads policies until ctx is cancelled or Close is called.
// It blocks. In git mode it polls the repository; in file mode it watches
// the policy path when the config enables it.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("watch already started")
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchMu.Unlock()

	if m.gitRepo != nil {
		if m.gitWatcher == nil {
			return ErrWatchDisabled
		}
		if err := m.gitWatcher.Start(watchCtx); err != nil {
			return fmt.Errorf("failed to start git watcher: %w", err)
		}
		<-watchCtx.Done()
		if m.gitWatcher.IsRunning() {
			return m.gitWatcher.Stop()
		}
		return nil
	}

	if !m.config.Watch {
		return ErrWatchDisabled
	}

	wcfg := DefaultFileWatcherConfig()
	wcfg.Path = m.config.Path
	if m.config.DebounceInterval > 0 {
		wcfg.DebounceInterval = m.config.DebounceInterval
	}
	fw, err := NewFileWatcher(wcfg, m.logger)
	if err != nil {
		return err
	}
	m.watchMu.Lock()
	m.fileWatcher = fw
	m.watchMu.Unlock()

	werr := fw.Watch(watchCtx, m.ReloadPolicies)
	if err := fw.Stop(); err != nil {
		m.logger.Error("failed to stop file watcher", "error", err)
	}
	return werr
}

// Close stops any running watch.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchCancel()
	}
	m.watchMu.Unlock()

	m.logger.Info("policy manager closed")
	return nil
}

// CurrentCommit reports the commit policies were loaded from in git mode.
func (m *Manager) CurrentCommit() (*git.CommitInfo, error) {
	if m.gitRepo == nil {
		return nil, fmt.Errorf("not in git mode")
	}
	return m.gitRepo.CurrentCommit()
}

// ForceSync pulls immediately in git mode and reloads on policy changes,
// rolling back the checkout if the new policies do not load.
func (m *Manager) ForceSync(ctx context.Context) error {
	if m.gitRepo == nil {
		return fmt.Errorf("not in git mode")
	}
	w := m.gitWatcher
	if w == nil {
		w = git.NewWatcher(m.gitRepo, time.Minute, m.config.Git.Timeout, m.ReloadFrom)
	}
	return w.CheckNow(ctx)
}

func (m *Manager) sourcePath() string {
	if m.gitRepo != nil {
		return m.gitRepo.PolicyPath()
	}
	return m.config.Path
}
