package core

import (
	"context"
	"time"
)

// SecretResolver returns the current value of a named credential.
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// CredentialCache is a bounded, expiring cache of resolved credentials owned by one process.
// A miss only costs a re-fetch; correctness never depends on a hit.
type CredentialCache interface {
	Get(name string) (string, bool)
	Set(name, value string, ttl time.Duration)
	Invalidate(name string)
}
