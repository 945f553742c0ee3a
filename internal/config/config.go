// Package config defines the configuration of the molnote binaries. Loading
// lives in loader.go and defaults in defaults.go; this file holds only plain
// data types and validation.
package config

import (
	"time"

	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/domain/notation"
	"github.com/turtacn/molnotation/pkg/errors"
)

// EngineConfig holds the parse option defaults applied when a request does
// not override them, plus the reaction defaults.
type EngineConfig struct {
	notation.Options `mapstructure:",squash"`
	// MatchTimeout bounds functional-group classification per request.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
	Halogen      string        `mapstructure:"halogen"`
	AddHydrogens bool          `mapstructure:"add_hydrogens"`
}

// RenderConfig controls how formulas and notation are rendered.
type RenderConfig struct {
	Markup       string `mapstructure:"markup"` // "plain" | "html" | "unicode"
	ShowImplicit bool   `mapstructure:"show_implicit"`
}

// CatalogConfig points at an optional override of the built-in catalog.
type CatalogConfig struct {
	Path     string        `mapstructure:"path"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// MetricsConfig controls the prometheus registry.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// RedisConfig holds the analysis cache connection.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"` // "standalone" | "cluster"
	Addr         string        `mapstructure:"addr"`
	ClusterAddrs []string      `mapstructure:"cluster_addrs"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
}

// Neo4jConfig holds the graph export connection.
type Neo4jConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	URI                   string `mapstructure:"uri"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	Database              string `mapstructure:"database"`
	MaxConnectionPoolSize int    `mapstructure:"max_connection_pool_size"`
}

// KafkaConfig holds the job transport.
type KafkaConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	Acks              string        `mapstructure:"acks"`
	Compression       string        `mapstructure:"compression"`
	AutoCreateTopics  bool          `mapstructure:"auto_create_topics"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	SASLEnabled       bool          `mapstructure:"sasl_enabled"`
	SASLMechanism     string        `mapstructure:"sasl_mechanism"`
	SASLUsername      string        `mapstructure:"sasl_username"`
	SASLPassword      string        `mapstructure:"sasl_password"`
	TLSEnabled        bool          `mapstructure:"tls_enabled"`
	TLSCertPath       string        `mapstructure:"tls_cert_path"`
}

// WorkerConfig holds the analysis worker parameters.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	ClaimTTL    time.Duration `mapstructure:"claim_ttl"`
	HealthPort  int           `mapstructure:"health_port"`
}

// Config is the root configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Render  RenderConfig  `mapstructure:"render"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Worker  WorkerConfig  `mapstructure:"worker"`
}

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	if _, err := formula.ParseMarkup(c.Render.Markup); err != nil {
		return invalid("render.markup %q is invalid; expected plain|html|unicode", c.Render.Markup)
	}
	switch c.Engine.Halogen {
	case "F", "Cl", "Br", "I":
	default:
		return invalid("engine.halogen %q is invalid; expected F|Cl|Br|I", c.Engine.Halogen)
	}
	if c.Engine.MatchTimeout < 0 {
		return invalid("engine.match_timeout must be >= 0, got %s", c.Engine.MatchTimeout)
	}
	if c.Catalog.Watch && c.Catalog.Path == "" {
		return invalid("catalog.watch requires catalog.path")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "standalone":
			if c.Redis.Addr == "" {
				return invalid("redis.addr is required")
			}
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return invalid("redis.cluster_addrs is required in cluster mode")
			}
		default:
			return invalid("redis.mode %q is invalid; expected standalone|cluster", c.Redis.Mode)
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return invalid("neo4j.uri is required")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return invalid("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return invalid("kafka.group_id is required")
		}
		if c.Kafka.MaxRetries < 0 {
			return invalid("kafka.max_retries must be >= 0, got %d", c.Kafka.MaxRetries)
		}
	}

	if c.Worker.Concurrency < 1 {
		return invalid("worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeValidation, "config: "+format, args...)
}
