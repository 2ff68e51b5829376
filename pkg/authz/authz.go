// Package authz gates privileged retention operations with a casbin RBAC
// model. Subjects are "user:<id>" and "role:<slug>".
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"mercator-hq/custodian/pkg/actor"
)

// Objects and actions checked by the engine.
const (
	ObjectLegalHold = "legal_hold"
	ObjectRetention = "retention"

	ActionPlace   = "place"
	ActionRelease = "release"
	ActionExpire  = "expire"
	ActionSweep   = "sweep"
)

//go:embed model.conf
var defaultModel string

//go:embed policy.csv
var defaultPolicy string

// ErrDenied is matched by every DeniedError.
var ErrDenied = errors.New("permission denied")

// DeniedError reports a refused operation.
type DeniedError struct {
	ActorID string
	Object  string
	Action  string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("actor %q may not %s %s", e.ActorID, e.Action, e.Object)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

// ParseMode parses a configured mode. Empty means enforce.
func ParseMode(raw string) (Mode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ModeEnforce, nil
	}
	switch Mode(raw) {
	case ModeEnforce, ModeShadow, ModeDisabled:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("authz: invalid mode %q (expected enforce|shadow|disabled)", raw)
	}
}

// Config selects the model and policy. Empty paths use the built-in RBAC
// model and role grants.
type Config struct {
	Mode       string `yaml:"mode"`
	ModelPath  string `yaml:"model_path"`
	PolicyPath string `yaml:"policy_path"`
}

// Authorizer checks actors against the casbin policy.
type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
	logger   *slog.Logger
}

// NewAuthorizer builds an authorizer from cfg.
func NewAuthorizer(cfg Config) (*Authorizer, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	var m model.Model
	if cfg.ModelPath != "" {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(defaultModel)
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: create enforcer: %w", err)
	}

	if cfg.PolicyPath != "" {
		enforcer.SetAdapter(fileadapter.NewAdapter(cfg.PolicyPath))
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: load policy: %w", err)
		}
	} else if err := loadPolicyText(enforcer, defaultPolicy); err != nil {
		return nil, err
	}

	a := &Authorizer{
		enforcer: enforcer,
		mode:     mode,
		logger:   slog.Default().With("component", "authz"),
	}
	a.logger.Info("authorizer initialized", "mode", mode)
	return a, nil
}

func loadPolicyText(e *casbin.Enforcer, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		var err error
		switch fields[0] {
		case "p":
			_, err = e.AddPolicy(fields[1:])
		case "g":
			_, err = e.AddGroupingPolicy(fields[1:])
		default:
			err = fmt.Errorf("unknown policy type %q", fields[0])
		}
		if err != nil {
			return fmt.Errorf("authz: load policy line %q: %w", line, err)
		}
	}
	return nil
}

// Mode returns the configured mode.
func (a *Authorizer) Mode() Mode {
	return a.mode
}

// Authorize returns nil when a may perform action on object. In shadow mode
// denials are logged and nil is returned.
func (a *Authorizer) Authorize(act actor.Actor, object, action string) error {
	if a == nil || a.mode == ModeDisabled {
		return nil
	}

	allowed, err := a.allowed(act, object, action)
	if err != nil {
		return fmt.Errorf("authz: enforce: %w", err)
	}
	if allowed {
		return nil
	}

	if a.mode == ModeShadow {
		a.logger.Warn("authorization denied (shadow mode)",
			"actor_id", act.ID,
			"object", object,
			"action", action,
		)
		return nil
	}
	return &DeniedError{ActorID: act.ID, Object: object, Action: action}
}

func (a *Authorizer) allowed(act actor.Actor, object, action string) (bool, error) {
	subjects := make([]string, 0, len(act.Roles)+1)
	if act.ID != "" {
		subjects = append(subjects, "user:"+act.ID)
	}
	for _, role := range act.Roles {
		subjects = append(subjects, SubjectFromRole(role))
	}

	for _, sub := range subjects {
		ok, err := a.enforcer.Enforce(sub, object, action)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SubjectFromRole normalizes a role name into a casbin subject. Names are
// lowercased and underscores become hyphens.
func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	role = strings.ReplaceAll(role, "_", "-")
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}
