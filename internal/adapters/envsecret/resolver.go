// Package envsecret resolves credentials from a static map, typically loaded from the environment.
package envsecret

import (
	"context"
	"os"
	"strings"

	"github.com/target/disclosure-collector/internal/core"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// Resolver serves credentials from memory. It is intended for development and tests.
type Resolver struct {
	values map[string]string
}

var _ core.SecretResolver = (*Resolver)(nil)

// New returns a Resolver over a copy of values.
func New(values map[string]string) *Resolver {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &Resolver{values: m}
}

// FromEnv returns a Resolver that maps name to the value of environment variable envVar.
func FromEnv(name, envVar string) *Resolver {
	values := map[string]string{}
	if v, ok := os.LookupEnv(envVar); ok {
		values[name] = v
	}
	return New(values)
}

// Resolve returns the value registered for name.
func (r *Resolver) Resolve(_ context.Context, name string) (string, error) {
	v, ok := r.values[strings.TrimSpace(name)]
	if !ok || v == "" {
		return "", apperrors.NotFoundf("secret %s not found", name)
	}
	return v, nil
}
