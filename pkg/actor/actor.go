// Package actor resolves the identity on whose behalf retention and legal
// hold operations run.
package actor

import (
	"context"
	"errors"
	"slices"
)

// ErrNoActor is returned when no actor can be resolved.
var ErrNoActor = errors.New("no current actor")

// System is the identity used for unattended runs such as scheduled sweeps.
var System = Actor{
	ID:          "system",
	DisplayName: "Retention Scheduler",
	Roles:       []string{"system"},
}

// Actor is the user or service performing an operation.
type Actor struct {
	ID          string   `json:"id" yaml:"id"`
	Email       string   `json:"email,omitempty" yaml:"email"`
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name"`
	Roles       []string `json:"roles,omitempty" yaml:"roles"`
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// Resolver returns the current actor.
type Resolver interface {
	Current(ctx context.Context) (Actor, error)
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext retrieves the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// Static always resolves to the same actor.
type Static struct {
	Actor Actor
}

// Current implements Resolver.
func (s Static) Current(ctx context.Context) (Actor, error) {
	if s.Actor.ID == "" {
		return Actor{}, ErrNoActor
	}
	return s.Actor, nil
}

// ContextResolver resolves the actor from the context, falling back to
// Default when none is set.
type ContextResolver struct {
	Default *Actor
}

// Current implements Resolver.
func (r ContextResolver) Current(ctx context.Context) (Actor, error) {
	if a, ok := FromContext(ctx); ok && a.ID != "" {
		return a, nil
	}
	if r.Default != nil && r.Default.ID != "" {
		return *r.Default, nil
	}
	return Actor{}, ErrNoActor
}
