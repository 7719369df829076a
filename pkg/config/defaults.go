// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "github.com/spf13/viper"

// setDefaults installs defaults for the always-present tables. Optional
// tables get no viper defaults so that their absence is observable; their
// per-field defaults are applied by applyBlockDefaults once a table exists.
func setDefaults(v *viper.Viper, serviceName string) {
	v.SetDefault("service.name", serviceName)
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 8080)
	v.SetDefault("service.timeout_secs", 30)
	v.SetDefault("service.environment", "production")
	v.SetDefault("service.grpc.enabled", false)
	v.SetDefault("service.grpc.use_separate_port", false)
	v.SetDefault("service.grpc.port", 0)

	v.SetDefault("middleware.body_limit_mb", 2)
	v.SetDefault("middleware.cors_mode", string(CORSRestrictive))
	v.SetDefault("middleware.allowed_origins", []string{})
	v.SetDefault("middleware.compression_off", false)
	v.SetDefault("middleware.sensitive_headers", []string{"Authorization", "Cookie", "X-Api-Key"})
	v.SetDefault("middleware.security_headers.enabled", true)
	v.SetDefault("middleware.security_headers.hsts_max_age_secs", 31536000)
	v.SetDefault("middleware.security_headers.frame_options", "DENY")
	v.SetDefault("middleware.security_headers.referrer_policy", "strict-origin-when-cross-origin")
	v.SetDefault("middleware.security_headers.permissions_policy", "camera=(), microphone=(), geolocation=()")
}

// applyBlockDefaults fills zero values in optional blocks that are present.
func applyBlockDefaults(cfg *Config) {
	if cfg.Database != nil {
		applyPoolDefaults(&cfg.Database.PoolSettings)
		if cfg.Database.MaxConns == 0 {
			cfg.Database.MaxConns = 10
		}
	}
	if cfg.Redis != nil {
		applyPoolDefaults(&cfg.Redis.PoolSettings)
		if cfg.Redis.PoolSize == 0 {
			cfg.Redis.PoolSize = 10
		}
	}
	if cfg.NATS != nil {
		applyPoolDefaults(&cfg.NATS.PoolSettings)
		if cfg.NATS.Name == "" {
			cfg.NATS.Name = cfg.Service.Name
		}
	}
	if cfg.AltDB != nil {
		applyPoolDefaults(&cfg.AltDB.PoolSettings)
	}

	if cfg.JWT != nil && cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "RS256"
	}
	if cfg.PASETO != nil {
		if cfg.PASETO.Version == "" {
			cfg.PASETO.Version = "v4"
		}
		if cfg.PASETO.Purpose == "" {
			cfg.PASETO.Purpose = "local"
		}
	}

	if cfg.RateLimit != nil {
		if cfg.RateLimit.PerUserRPM == 0 {
			cfg.RateLimit.PerUserRPM = 60
		}
		if cfg.RateLimit.PerClientRPM == 0 {
			cfg.RateLimit.PerClientRPM = 600
		}
	}

	if cfg.Lockout != nil {
		l := cfg.Lockout
		if l.KeyPrefix == "" {
			l.KeyPrefix = "lockout"
		}
		if l.MaxAttempts == 0 {
			l.MaxAttempts = 5
		}
		if l.WindowSecs == 0 {
			l.WindowSecs = 900
		}
		if l.LockoutDurationSecs == 0 {
			l.LockoutDurationSecs = 900
		}
		if l.BaseDelayMS == 0 {
			l.BaseDelayMS = 100
		}
		if l.MaxDelayMS == 0 {
			l.MaxDelayMS = 5000
		}
		if l.DelayMultiplier == 0 {
			l.DelayMultiplier = 2.0
		}
		if l.WarningThreshold == 0 {
			l.WarningThreshold = l.MaxAttempts - 1
		}
		if l.IdentityField == "" {
			l.IdentityField = "email"
		}
		if l.MaxBodyPeekBytes == 0 {
			l.MaxBodyPeekBytes = 64 * 1024
		}
	}

	if cfg.Audit != nil {
		a := cfg.Audit
		if a.Storage == "" {
			a.Storage = "database"
		}
		if a.MailboxSize == 0 {
			a.MailboxSize = 1024
		}
		if a.ArchiveDir == "" {
			a.ArchiveDir = "audit_archive"
		}
		if a.Syslog.Transport == "" {
			a.Syslog.Transport = SyslogNone
		}
		if a.Syslog.Facility == 0 {
			a.Syslog.Facility = 13
		}
		if a.Alerts.ThresholdSecs == 0 {
			a.Alerts.ThresholdSecs = 60
		}
		if a.Alerts.CooldownSecs == 0 {
			a.Alerts.CooldownSecs = 300
		}
	}

	if cfg.Middleware.Resilience != nil {
		r := cfg.Middleware.Resilience
		if r.FailureRateThreshold == 0 {
			r.FailureRateThreshold = 0.5
		}
		if r.MinRequests == 0 {
			r.MinRequests = 10
		}
		if r.OpenTimeoutSecs == 0 {
			r.OpenTimeoutSecs = 30
		}
		if r.HalfOpenMaxRequests == 0 {
			r.HalfOpenMaxRequests = 3
		}
		if r.MaxConcurrent == 0 {
			r.MaxConcurrent = 256
		}
		if r.MaxWaitMS == 0 {
			r.MaxWaitMS = 100
		}
	}

	if cfg.Middleware.LocalRateLimit != nil {
		lr := cfg.Middleware.LocalRateLimit
		if lr.RPS == 0 {
			lr.RPS = 100
		}
		if lr.Burst == 0 {
			lr.Burst = int(lr.RPS)
		}
	}

	if cfg.Middleware.Metrics != nil && cfg.Middleware.Metrics.Path == "" {
		cfg.Middleware.Metrics.Path = "/metrics"
	}
}

func applyPoolDefaults(p *PoolSettings) {
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.RetryBaseDelayMS == 0 {
		p.RetryBaseDelayMS = 250
	}
}
