package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// secretRef matches ${secret:name} references in configuration values.
var secretRef = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets from providers in priority order and memoizes
// the values it has seen.
type Manager struct {
	providers []Provider
	logger    *slog.Logger

	mu     sync.Mutex
	values map[string]string
}

// NewManager creates a manager trying providers in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		logger:    slog.Default().With("component", "secrets"),
		values:    make(map[string]string),
	}
}

// GetSecret returns the value from the first provider holding name.
// Providers reporting ErrNotFound are skipped; any other error stops the
// lookup.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.values[name]; ok {
		return v, nil
	}
	for _, p := range m.providers {
		v, err := p.GetSecret(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("secret %s: %s provider: %w", redact(name), p.Name(), err)
		}
		m.logger.Debug("secret resolved", "name", redact(name), "provider", p.Name())
		m.values[name] = v
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} reference in input. It fails on
// the first reference that cannot be resolved.
func (m *Manager) Resolve(ctx context.Context, input string) (string, error) {
	var firstErr error
	out := secretRef.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := secretRef.FindStringSubmatch(match)[1]
		v, err := m.GetSecret(ctx, name)
		if err != nil {
			firstErr = err
			return match
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveFields resolves references in each field in place.
func (m *Manager) ResolveFields(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for key, field := range fields {
		if !HasReference(*field) {
			continue
		}
		v, err := m.Resolve(ctx, *field)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*field = v
	}
	return errors.Join(errs...)
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return secretRef.MatchString(s)
}

func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
