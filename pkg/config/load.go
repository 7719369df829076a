// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

// DefaultServiceName is used by Load when no service name is supplied.
const DefaultServiceName = "acton"

// Load reads and validates the configuration for the default service name.
func Load() (*Config, error) {
	return LoadForService(DefaultServiceName)
}

// LoadForService reads the configuration layers for the named service:
// defaults, /etc/<name>/config.toml, the XDG config dir, ./config.toml,
// ./config.local.toml, then environment variables prefixed with the
// uppercased service name. Later layers win. Unknown keys are tolerated for
// forward compatibility.
func LoadForService(name string) (*Config, error) {
	if name == "" {
		return nil, errors.NewConfig("service name must not be empty", nil)
	}

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, name)

	for _, path := range layerPaths(name) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.NewConfig(fmt.Sprintf("failed to read config layer %s", path), err)
		}
		logger.Debugw("merged config layer", "path", path)
	}

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfig("failed to decode configuration", err)
	}

	applyBlockDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// layerPaths returns the file layers in ascending priority order.
func layerPaths(name string) []string {
	paths := []string{
		filepath.Join("/etc", name, "config.toml"),
	}
	if xdgPath := filepath.Join(xdg.ConfigHome, name, "config.toml"); xdgPath != "" {
		paths = append(paths, xdgPath)
	}
	paths = append(paths, "config.toml", "config.local.toml")
	return paths
}

// bindEnvKeys binds every known configuration key so that environment
// overrides apply even when no file layer mentions the key. AutomaticEnv
// alone only resolves keys viper has already seen.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"service.name", "service.host", "service.port", "service.timeout_secs",
		"service.environment", "service.grpc.enabled",
		"service.grpc.use_separate_port", "service.grpc.port",

		"middleware.body_limit_mb", "middleware.cors_mode",
		"middleware.compression_off", "middleware.security_headers.enabled",
		"middleware.security_headers.hsts_max_age_secs",

		"database.url", "database.max_conns", "database.min_conns",
		"database.lazy_init", "database.optional", "database.max_retries",
		"database.retry_base_delay_ms",

		"redis.url", "redis.pool_size", "redis.lazy_init", "redis.optional",
		"redis.max_retries", "redis.retry_base_delay_ms",

		"nats.url", "nats.name", "nats.lazy_init", "nats.optional",
		"nats.max_retries", "nats.retry_base_delay_ms",

		"altdb.path", "altdb.lazy_init", "altdb.optional",
		"altdb.max_retries", "altdb.retry_base_delay_ms",

		"jwt.algorithm", "jwt.key_file", "jwt.issuer", "jwt.audience",

		"paseto.version", "paseto.purpose", "paseto.key_hex",
		"paseto.key_file", "paseto.issuer", "paseto.audience",

		"rate_limit.enabled", "rate_limit.per_user_rpm", "rate_limit.per_client_rpm",

		"lockout.enabled", "lockout.key_prefix", "lockout.max_attempts",
		"lockout.window_secs", "lockout.lockout_duration_secs",
		"lockout.base_delay_ms", "lockout.max_delay_ms",
		"lockout.delay_multiplier", "lockout.warning_threshold",
		"lockout.identity_field",

		"audit.enabled", "audit.storage", "audit.audit_all_requests",
		"audit.audit_auth_events", "audit.mailbox_size", "audit.retention_days",
		"audit.archive_dir", "audit.syslog.transport", "audit.syslog.address",
		"audit.syslog.facility", "audit.alerts.threshold_secs",
		"audit.alerts.cooldown_secs", "audit.alerts.notify_recovery",

		"session.cookie_name", "session.ttl_secs",
		"websocket.path", "websocket.ping_interval_secs",

		"tls.cert_file", "tls.key_file",
		"otlp.enabled", "otlp.endpoint",
	}

	for _, key := range keys {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(key)
	}
}
