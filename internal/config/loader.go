package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/molnotation/pkg/errors"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "MOLNOTE"

// newViper builds a Viper instance with YAML files, MOLNOTE_ environment
// binding and a "." to "_" key replacer, so that "redis.addr" resolves to
// MOLNOTE_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// Load reads the YAML file at configPath, merges MOLNOTE_* overrides, applies
// defaults and validates the result. An empty configPath loads from the
// environment alone.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to read "+configPath)
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from MOLNOTE_* variables and defaults only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to unmarshal")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch monitors configPath and calls onChange with every valid new Config.
// A change that fails to load or validate is passed to onError and the
// previous configuration stays in effect. Watch returns once the initial read
// has succeeded; watching continues in viper's goroutine for the life of the
// process.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	if configPath == "" {
		return errors.New(errors.ErrCodeValidation, "config: watch requires a file")
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "config: failed to read "+configPath)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
