package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/molnotation/internal/domain/notation"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultMarkup  = "plain"
	DefaultHalogen = "Br"

	DefaultMatchTimeout = 2 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "molnote"

	DefaultRedisMode = "standalone"
	DefaultRedisAddr = "localhost:6379"
	DefaultCacheTTL  = time.Hour

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "molnote-workers"

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081
)

// NewDefaultConfig returns a Config holding every default, as used when no
// file or environment is given.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Engine.Options = notation.DefaultOptions()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableGoMetrics = true
	cfg.Metrics.EnableProcessMetrics = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set are left unchanged. Booleans cannot be told apart from an
// explicit false here; their defaults are registered with viper instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Engine.MatchTimeout == 0 {
		cfg.Engine.MatchTimeout = DefaultMatchTimeout
	}
	if cfg.Engine.Halogen == "" {
		cfg.Engine.Halogen = DefaultHalogen
	}
	if cfg.Render.Markup == "" {
		cfg.Render.Markup = DefaultMarkup
	}
	if cfg.Catalog.Debounce == 0 {
		cfg.Catalog.Debounce = 250 * time.Millisecond
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "molnote:"
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultCacheTTL
	}

	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = 30 * time.Second
	}
	if cfg.Worker.ClaimTTL == 0 {
		cfg.Worker.ClaimTTL = 5 * time.Minute
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
}

// setViperDefaults registers the boolean defaults, and makes every key known
// to viper so that MOLNOTE_* variables resolve even without a file.
func setViperDefaults(v *viper.Viper) {
	opts := notation.DefaultOptions()
	v.SetDefault("engine.inorganic", opts.Inorganic)
	v.SetDefault("engine.charges", opts.Charges)
	v.SetDefault("engine.branches", opts.Branches)
	v.SetDefault("engine.rings", opts.Rings)
	v.SetDefault("engine.aromaticity", opts.Aromaticity)
	v.SetDefault("engine.disconnection", opts.Disconnection)
	v.SetDefault("engine.reactions", opts.Reactions)
	v.SetDefault("engine.multiple_reactions", opts.MultipleReactions)
	v.SetDefault("engine.cumulative_charge", opts.CumulativeCharge)
	v.SetDefault("engine.implicit_hydrogens", opts.ImplicitHydrogens)
	v.SetDefault("engine.check_valence", opts.CheckValence)
	v.SetDefault("engine.match_timeout", DefaultMatchTimeout)
	v.SetDefault("engine.halogen", DefaultHalogen)
	v.SetDefault("engine.add_hydrogens", false)

	v.SetDefault("render.markup", DefaultMarkup)
	v.SetDefault("render.show_implicit", false)

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", false)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.enable_process_metrics", true)
	v.SetDefault("metrics.enable_go_metrics", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.auto_create_topics", false)

	v.SetDefault("worker.concurrency", DefaultWorkerConcurrency)
}
