package config

import "strings"

// AWSConfig contains S3 and shared AWS client configuration.
type AWSConfig struct {
	Region string `env:"AWS_REGION" envDefault:"ap-northeast-1"`

	// Bucket holds collected documents and export artifacts.
	Bucket string `env:"S3_BUCKET" envDefault:"disclosure-documents"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string `env:"S3_ENDPOINT"`

	ForcePathStyle bool `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// Sanitize applies guardrails to AWS configuration values.
func (a *AWSConfig) Sanitize() {
	a.Region = strings.TrimSpace(a.Region)
	a.Bucket = strings.TrimSpace(a.Bucket)
	a.Endpoint = strings.TrimRight(strings.TrimSpace(a.Endpoint), "/")
	if a.Endpoint != "" {
		// S3-compatible endpoints rarely support virtual-hosted buckets.
		a.ForcePathStyle = true
	}
}
