package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"collector"`
	Password string `env:"PASSWORD"                envDefault:"collector"`
	Name     string `env:"NAME"                    envDefault:"disclosures"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	MaxOpenConns         int  `env:"MAX_OPEN_CONNS"          envDefault:"25"`
}

// DSN returns the pgx connection URL. Credentials are escaped by url.URL.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisMode selects the Redis deployment topology.
type RedisMode string

const (
	// RedisModeDirect talks to a single node given by REDIS_URI.
	RedisModeDirect RedisMode = "direct"
	// RedisModeSentinel discovers the primary through REDIS_SENTINEL_NODES.
	RedisModeSentinel RedisMode = "sentinel"
	// RedisModeCluster spreads keys over REDIS_CLUSTER_NODES.
	RedisModeCluster RedisMode = "cluster"
)

// UnmarshalText implements encoding.TextUnmarshaler for RedisMode.
func (m *RedisMode) UnmarshalText(text []byte) error {
	v := RedisMode(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case RedisModeDirect, RedisModeSentinel, RedisModeCluster:
		*m = v
		return nil
	default:
		return fmt.Errorf("invalid RedisMode: %q (valid options: direct, sentinel, cluster)", v)
	}
}

// RedisConfig describes the Redis deployment backing the job store when JOB_STORE=redis.
type RedisConfig struct {
	Mode RedisMode `env:"MODE" envDefault:"direct"`
	// URI is a redis:// or rediss:// URL, or a bare host:port, used in direct mode.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Username string `env:"USERNAME" envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	// DB is the logical database in direct and sentinel mode. Cluster mode only has database 0.
	DB int `env:"DB" envDefault:"0"`

	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
}

// Sanitize applies guardrails to Redis configuration values.
func (r *RedisConfig) Sanitize() {
	if r.Mode == "" {
		r.Mode = RedisModeDirect
	}
	r.URI = strings.TrimSpace(r.URI)
	r.SentinelNodes = trimList(r.SentinelNodes)
	r.ClusterNodes = trimList(r.ClusterNodes)
	if r.DB < 0 || r.Mode == RedisModeCluster {
		r.DB = 0
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// JobStoreBackend selects where job status records live.
type JobStoreBackend string

const (
	// JobStorePostgres keeps job records in the jobs table.
	JobStorePostgres JobStoreBackend = "postgres"
	// JobStoreRedis keeps job records as expiring Redis documents.
	JobStoreRedis JobStoreBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobStoreBackend.
func (b *JobStoreBackend) UnmarshalText(text []byte) error {
	v := JobStoreBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case JobStorePostgres, JobStoreRedis:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid JobStoreBackend: %q (valid options: postgres, redis)", v)
	}
}

const defaultJobKeyPrefix = "disclosure:job:"

// JobStoreConfig selects and tunes the job status backend.
type JobStoreConfig struct {
	Backend JobStoreBackend `env:"JOB_STORE"     envDefault:"postgres"`
	// RedisTTL is how long a job record survives in Redis after its last write.
	RedisTTL time.Duration `env:"JOB_REDIS_TTL" envDefault:"168h"`
	// RedisKeyPrefix namespaces job keys when the Redis deployment is shared.
	RedisKeyPrefix string `env:"JOB_REDIS_KEY_PREFIX" envDefault:"disclosure:job:"`
}

// Sanitize applies guardrails to job store configuration values.
func (j *JobStoreConfig) Sanitize() {
	if j.Backend == "" {
		j.Backend = JobStorePostgres
	}
	if j.RedisTTL < time.Hour {
		j.RedisTTL = time.Hour
	}
	j.RedisKeyPrefix = strings.TrimSpace(j.RedisKeyPrefix)
	if j.RedisKeyPrefix == "" {
		j.RedisKeyPrefix = defaultJobKeyPrefix
	}
}
