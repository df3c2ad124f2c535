package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP serves the public launch, status, export and download API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker hosts the collection and export workers.
	ServiceModeWorker ServiceMode = "worker"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeWorker}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.ToLower(strings.TrimSpace(part))
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerTransport selects how the launcher reaches the workers.
type WorkerTransport string

const (
	// WorkerTransportInProcess dispatches to workers in the same process.
	WorkerTransportInProcess WorkerTransport = "inprocess"
	// WorkerTransportHTTP posts to a remote worker service.
	WorkerTransportHTTP WorkerTransport = "http"
)

// UnmarshalText implements encoding.TextUnmarshaler for WorkerTransport.
func (w *WorkerTransport) UnmarshalText(text []byte) error {
	v := WorkerTransport(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case WorkerTransportInProcess, WorkerTransportHTTP:
		*w = v
		return nil
	default:
		return fmt.Errorf("invalid WorkerTransport: %q (valid options: inprocess, http)", v)
	}
}

// WorkerConfig contains worker invocation and execution settings.
type WorkerConfig struct {
	Transport WorkerTransport `env:"WORKER_TRANSPORT" envDefault:"inprocess"`

	// URL is the base URL of the worker service when Transport=http.
	URL string `env:"WORKER_URL"`

	// InvokeTimeout bounds the synchronous launch call.
	InvokeTimeout time.Duration `env:"WORKER_INVOKE_TIMEOUT" envDefault:"30s"`

	// Timeout bounds one background run.
	Timeout time.Duration `env:"WORKER_TIMEOUT" envDefault:"15m"`

	// Concurrency caps parallel record writes and document uploads per batch.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"8"`

	// BatchSize is the number of feed items processed between progress updates.
	BatchSize int `env:"WORKER_BATCH_SIZE" envDefault:"50"`

	// ShutdownTimeout bounds how long shutdown waits for running jobs.
	ShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	w.URL = strings.TrimSpace(w.URL)
	if w.Transport == "" {
		w.Transport = WorkerTransportInProcess
	}
	if w.InvokeTimeout < time.Second {
		w.InvokeTimeout = time.Second
	}
	if w.Timeout < time.Minute {
		w.Timeout = time.Minute
	}
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.Concurrency > 64 {
		w.Concurrency = 64
	}
	if w.BatchSize < 1 {
		w.BatchSize = 1
	}
	if w.BatchSize > 1000 {
		w.BatchSize = 1000
	}
	if w.ShutdownTimeout <= 0 {
		w.ShutdownTimeout = 30 * time.Second
	}
}
