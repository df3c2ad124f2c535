package config

import (
	"strings"
	"time"
)

// CollectConfig contains collection launch and feed settings.
type CollectConfig struct {
	// MaxAge is how far back a collection may start.
	MaxAge time.Duration `env:"COLLECT_MAX_AGE" envDefault:"8760h"`

	FeedBaseURL string        `env:"FEED_BASE_URL" envDefault:"http://localhost:9090/v1"`
	FeedTimeout time.Duration `env:"FEED_TIMEOUT"  envDefault:"30s"`

	// MaxDocumentBytes bounds a single document download.
	MaxDocumentBytes int64 `env:"FEED_MAX_DOCUMENT_BYTES" envDefault:"52428800"`
}

// Sanitize applies guardrails to collection configuration values.
func (c *CollectConfig) Sanitize() {
	c.FeedBaseURL = strings.TrimSpace(c.FeedBaseURL)
	if c.MaxAge < 24*time.Hour {
		c.MaxAge = 24 * time.Hour
	}
	if c.FeedTimeout <= 0 {
		c.FeedTimeout = 30 * time.Second
	}
	if c.MaxDocumentBytes <= 0 {
		c.MaxDocumentBytes = 50 << 20
	}
}

// ExportConfig contains export run settings.
type ExportConfig struct {
	// DefaultWindowDays is the range exported when a launch carries no dates.
	DefaultWindowDays int `env:"EXPORT_DEFAULT_WINDOW" envDefault:"30"`

	// URLTTL is the validity of the download link attached to a finished export.
	URLTTL time.Duration `env:"EXPORT_URL_TTL" envDefault:"24h"`

	// MaxRows caps the records written to one export. A larger result fails the export.
	MaxRows int `env:"EXPORT_MAX_ROWS" envDefault:"10000"`
}

const maxExportRows = 50000

// Sanitize applies guardrails to export configuration values.
func (e *ExportConfig) Sanitize() {
	if e.DefaultWindowDays < 1 {
		e.DefaultWindowDays = 1
	}
	if e.MaxRows < 1 {
		e.MaxRows = 1
	}
	if e.MaxRows > maxExportRows {
		e.MaxRows = maxExportRows
	}
}

// GrantConfig bounds the validity window of download grants.
type GrantConfig struct {
	MinTTL     time.Duration `env:"GRANT_MIN_TTL"     envDefault:"60s"`
	MaxTTL     time.Duration `env:"GRANT_MAX_TTL"     envDefault:"168h"`
	DefaultTTL time.Duration `env:"GRANT_DEFAULT_TTL" envDefault:"1h"`
}

// Sanitize keeps MinTTL <= DefaultTTL <= MaxTTL.
func (g *GrantConfig) Sanitize() {
	if g.MinTTL < time.Second {
		g.MinTTL = time.Second
	}
	if g.MaxTTL < g.MinTTL {
		g.MaxTTL = g.MinTTL
	}
	if g.DefaultTTL < g.MinTTL {
		g.DefaultTTL = g.MinTTL
	}
	if g.DefaultTTL > g.MaxTTL {
		g.DefaultTTL = g.MaxTTL
	}
}

const (
	maxBackoffMultiplier = 10
	defaultStoreMaxDelay = 30 * time.Second
)

// RetryConfig is the backoff policy applied to store and object store calls.
type RetryConfig struct {
	MaxRetries   int           `env:"STORE_MAX_RETRIES"        envDefault:"3"`
	InitialDelay time.Duration `env:"STORE_INITIAL_DELAY"      envDefault:"100ms"`
	Multiplier   float64       `env:"STORE_BACKOFF_MULTIPLIER" envDefault:"2"`
	MaxDelay     time.Duration `env:"STORE_MAX_DELAY"          envDefault:"30s"`
	Jitter       bool          `env:"STORE_JITTER"             envDefault:"true"`
}

// Sanitize applies guardrails to retry configuration values.
func (r *RetryConfig) Sanitize() {
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.MaxRetries > 10 {
		r.MaxRetries = 10
	}
	if r.InitialDelay < 0 {
		r.InitialDelay = 0
	}
	if r.Multiplier < 1 {
		r.Multiplier = 1
	}
	if r.Multiplier > maxBackoffMultiplier {
		r.Multiplier = maxBackoffMultiplier
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultStoreMaxDelay
	}
	if r.MaxDelay < r.InitialDelay {
		r.MaxDelay = r.InitialDelay
	}
}
