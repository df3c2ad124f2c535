package model

import "time"

// Grant is a time-bounded signed reference to one stored object. Grants are never persisted.
type Grant struct {
	TargetKey string    `json:"-"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"download_url"`
}

// TTL returns the grant's validity window.
func (g Grant) TTL() time.Duration { return g.ExpiresAt.Sub(g.IssuedAt) }
