package manager

import (
	"time"

	"mercator-hq/custodian/pkg/policy/git"
)

// Config selects where retention policies come from.
type Config struct {
	// Mode is "file" or "git".
	Mode string `yaml:"mode"`

	// Path is a policy file or a directory searched recursively. In git
	// mode it is ignored in favour of Git.Path inside the clone.
	Path string `yaml:"path"`

	// Watch enables hot reload of Path.
	Watch bool `yaml:"watch"`

	// DebounceInterval delays reloads after file changes.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Git configures the repository used in git mode.
	Git git.Config `yaml:"git"`
}

// LoaderConfig bounds what the loader accepts.
type LoaderConfig struct {
	// MaxFileSize is the largest policy file accepted, in bytes.
	MaxFileSize int64

	// AllowedExtensions are the file extensions loaded from directories.
	AllowedExtensions []string

	// SkipHidden skips files and directories starting with ".".
	SkipHidden bool

	// FollowSymlinks loads symlinked policy files.
	FollowSymlinks bool
}

// DefaultLoaderConfig returns the loader defaults.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".yaml", ".yml"},
		SkipHidden:        true,
		FollowSymlinks:    true,
	}
}

// policySpec is one policy as written in YAML. Pointer fields distinguish
// "absent" from the zero value.
type policySpec struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	AppliesTo            string   `yaml:"applies_to"`
	Classifications      []string `yaml:"classifications"`
	Categories           []string `yaml:"categories"`
	RegulatoryFrameworks []string `yaml:"regulatory_frameworks"`

	RetentionCategory   string `yaml:"retention_category"`
	RetentionPeriodDays *int   `yaml:"retention_period_days"`
	RetentionStartEvent string `yaml:"retention_start_event"`
	ActionOnExpiry      string `yaml:"action_on_expiry"`

	NotifyBeforeDays *int     `yaml:"notify_before_days"`
	NotifyRecipients []string `yaml:"notify_recipients"`

	ExcludeOnLegalHold *bool  `yaml:"exclude_on_legal_hold"`
	Priority           int    `yaml:"priority"`
	IsActive           *bool  `yaml:"is_active"`
	Condition          string `yaml:"condition"`
}

// PolicySummary is a listing row for loaded policies.
type PolicySummary struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	AppliesTo           string `json:"applies_to"`
	RetentionCategory   string `json:"retention_category"`
	RetentionPeriodDays int    `json:"retention_period_days"`
	ActionOnExpiry      string `json:"action_on_expiry"`
	Priority            int    `json:"priority"`
	IsActive            bool   `json:"is_active"`
	SourceFile          string `json:"source_file,omitempty"`
}

// RegistryStats describes the loaded policy set.
type RegistryStats struct {
	PolicyCount int
	ActiveCount int
	ByScope     map[string]int
	LoadTime    time.Time
	Version     string
}
