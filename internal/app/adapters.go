package app

import (
	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/infrastructure/database/neo4j"
	"github.com/turtacn/molnotation/internal/infrastructure/database/redis"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/prometheus"
)

// The functions below translate config sections into the configuration
// types of the infrastructure packages.

func LogConfig(cfg *config.Config) logging.LogConfig {
	return logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	}
}

func CollectorConfig(cfg *config.Config) prometheus.CollectorConfig {
	ns := cfg.Metrics.Namespace
	if ns == "" {
		ns = config.DefaultMetricsNamespace
	}
	return prometheus.CollectorConfig{
		Namespace:            ns,
		Subsystem:            cfg.Metrics.Subsystem,
		EnableProcessMetrics: cfg.Metrics.Enabled && cfg.Metrics.EnableProcessMetrics,
		EnableGoMetrics:      cfg.Metrics.Enabled && cfg.Metrics.EnableGoMetrics,
	}
}

func RedisConfig(cfg *config.Config) redis.RedisConfig {
	r := cfg.Redis
	return redis.RedisConfig{
		Mode:         r.Mode,
		Addr:         r.Addr,
		ClusterAddrs: r.ClusterAddrs,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

func Neo4jConfig(cfg *config.Config) neo4j.Neo4jConfig {
	n := cfg.Neo4j
	return neo4j.Neo4jConfig{
		URI:                   n.URI,
		Username:              n.Username,
		Password:              n.Password,
		Database:              n.Database,
		MaxConnectionPoolSize: n.MaxConnectionPoolSize,
	}
}

func ProducerConfig(cfg *config.Config) kafka.ProducerConfig {
	k := cfg.Kafka
	return kafka.ProducerConfig{
		Brokers:          k.Brokers,
		Acks:             k.Acks,
		MaxRetries:       k.MaxRetries,
		CompressionCodec: k.Compression,
		SASLEnabled:      k.SASLEnabled,
		SASLMechanism:    k.SASLMechanism,
		SASLUsername:     k.SASLUsername,
		SASLPassword:     k.SASLPassword,
		TLSEnabled:       k.TLSEnabled,
		TLSCertPath:      k.TLSCertPath,
	}
}

// ConsumerConfig subscribes the worker group to topics and routes exhausted
// messages to the dead-letter topic.
func ConsumerConfig(cfg *config.Config, topics ...string) kafka.ConsumerConfig {
	k := cfg.Kafka
	return kafka.ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		Topics:          topics,
		AutoOffsetReset: k.AutoOffsetReset,
		SASLEnabled:     k.SASLEnabled,
		SASLMechanism:   k.SASLMechanism,
		SASLUsername:    k.SASLUsername,
		SASLPassword:    k.SASLPassword,
		TLSEnabled:      k.TLSEnabled,
		TLSCertPath:     k.TLSCertPath,
		Retry: kafka.RetryConfig{
			MaxRetries:      k.MaxRetries,
			RetryBackoff:    k.RetryBackoff,
			DeadLetterTopic: kafka.TopicAnalysisDeadLetter,
		},
	}
}
