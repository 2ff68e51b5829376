package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix prefixes the environment variables EnvProvider reads.
const DefaultEnvPrefix = "CUSTODIAN_SECRET_"

// EnvProvider reads secrets from environment variables. The secret
// "postgres-dsn" is read from CUSTODIAN_SECRET_POSTGRES_DSN.
type EnvProvider struct {
	Prefix string

	getenv func(string) string
}

// NewEnvProvider creates an environment provider. An empty prefix means
// DefaultEnvPrefix.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{Prefix: prefix, getenv: os.Getenv}
}

// GetSecret implements Provider.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value := p.getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: %s (env var %s is unset)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
