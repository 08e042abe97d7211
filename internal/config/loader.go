// Package config provides configuration loading, defaults, and validation
// for the docking orchestration engine.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "PLASMODOCK"

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, PLASMODOCK_ env prefix, automatic env binding,
// and a key replacer that maps "." → "_" so that nested keys like
// "toolchain.autodock_gpu" resolve to "PLASMODOCK_TOOLCHAIN_AUTODOCK_GPU".
// settingKeys lists every leaf configuration key.  Each is explicitly bound
// to its environment variable; viper's AutomaticEnv alone does not surface
// env-only keys through Unmarshal.
var settingKeys = []string{
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime",
	"database.conn_max_idle_time", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"redis.key_prefix",
	"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.session_timeout", "kafka.write_timeout",
	"minio.enabled", "minio.endpoint", "minio.access_key",
	"minio.secret_key", "minio.bucket", "minio.use_ssl",
	"worker.concurrency", "worker.max_retries", "worker.retry_delay",
	"worker.health_port", "worker.job_lock_ttl",
	"docking.prepare_timeout", "docking.split_timeout",
	"docking.docking_timeout",
	"toolchain.pythonsh", "toolchain.prepare_receptor",
	"toolchain.prepare_ligand", "toolchain.prepare_gpf",
	"toolchain.autogrid", "toolchain.ad4_parameters",
	"toolchain.autodock_gpu", "toolchain.obabel",
	"toolchain.fld_cutoff_line",
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range settingKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges any PLASMODOCK_*
// environment variable overrides, applies defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from PLASMODOCK_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here because callers call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}
