// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the service configuration tree
// and the logic required to load and validate it. Configuration is layered:
// built-in defaults, then /etc and XDG files, then ./config.toml and
// ./config.local.toml, then environment variables. It is parsed once at
// startup and shared read-only afterwards.
package config

import (
	"time"
)

// CORSMode selects the CORS policy applied by the middleware pipeline.
type CORSMode string

// CORS modes
const (
	// CORSPermissive allows any origin, method and header.
	CORSPermissive CORSMode = "permissive"

	// CORSRestrictive allows only the configured origins.
	CORSRestrictive CORSMode = "restrictive"

	// CORSDisabled applies no CORS layer at all.
	CORSDisabled CORSMode = "disabled"
)

// Config is the root of the configuration tree. Optional blocks are nil when
// the corresponding table is absent from every layer.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`

	Database  *DatabaseConfig  `mapstructure:"database"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	NATS      *NATSConfig      `mapstructure:"nats"`
	AltDB     *AltDBConfig     `mapstructure:"altdb"`
	JWT       *JWTConfig       `mapstructure:"jwt"`
	PASETO    *PASETOConfig    `mapstructure:"paseto"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
	Lockout   *LockoutConfig   `mapstructure:"lockout"`
	Audit     *AuditConfig     `mapstructure:"audit"`
	Session   *SessionConfig   `mapstructure:"session"`
	WebSocket *WebSocketConfig `mapstructure:"websocket"`
	TLS       *TLSConfig       `mapstructure:"tls"`
	OTLP      *OTLPConfig      `mapstructure:"otlp"`

	// Custom is an extension slot for application-specific settings.
	Custom map[string]any `mapstructure:"custom"`
}

// ServiceConfig identifies the service and its listening socket.
type ServiceConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	TimeoutSecs int    `mapstructure:"timeout_secs" validate:"gt=0"`
	Environment string `mapstructure:"environment"`

	GRPC GRPCConfig `mapstructure:"grpc"`
}

// Timeout returns the request timeout as a duration.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// GRPCConfig controls the gRPC half of the dual-protocol server.
type GRPCConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	UseSeparatePort bool `mapstructure:"use_separate_port"`
	Port            int  `mapstructure:"port"`
}

// MiddlewareConfig controls the request pipeline applied to every route.
type MiddlewareConfig struct {
	BodyLimitMB      int      `mapstructure:"body_limit_mb" validate:"gt=0"`
	CORSMode         CORSMode `mapstructure:"cors_mode"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	CompressionOff   bool     `mapstructure:"compression_off"`
	SensitiveHeaders []string `mapstructure:"sensitive_headers"`

	SecurityHeaders SecurityHeadersConfig `mapstructure:"security_headers"`

	Resilience     *ResilienceConfig     `mapstructure:"resilience"`
	Metrics        *MetricsConfig        `mapstructure:"metrics"`
	LocalRateLimit *LocalRateLimitConfig `mapstructure:"local_rate_limit"`
}

// SecurityHeadersConfig controls the security response headers. HSTS is only
// emitted when TLS is active.
type SecurityHeadersConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	HSTSMaxAgeSecs    int    `mapstructure:"hsts_max_age_secs"`
	FrameOptions      string `mapstructure:"frame_options"`
	ReferrerPolicy    string `mapstructure:"referrer_policy"`
	PermissionsPolicy string `mapstructure:"permissions_policy"`
}

// ResilienceConfig controls the circuit breaker and bulkhead.
type ResilienceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Circuit breaker
	FailureRateThreshold float64 `mapstructure:"failure_rate_threshold"`
	MinRequests          int     `mapstructure:"min_requests"`
	OpenTimeoutSecs      int     `mapstructure:"open_timeout_secs"`
	HalfOpenMaxRequests  int     `mapstructure:"half_open_max_requests"`

	// Bulkhead
	MaxConcurrent   int `mapstructure:"max_concurrent"`
	MaxWaitMS       int `mapstructure:"max_wait_ms"`
}

// MetricsConfig controls prometheus metric emission from the pipeline.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LocalRateLimitConfig is an in-process limiter used when no redis pool is
// configured, or to shield the distributed limiter.
type LocalRateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// PoolSettings are shared by every connection pool agent.
type PoolSettings struct {
	LazyInit         bool `mapstructure:"lazy_init"`
	Optional         bool `mapstructure:"optional"`
	MaxRetries       int  `mapstructure:"max_retries"`
	RetryBaseDelayMS int  `mapstructure:"retry_base_delay_ms"`
}

// RetryBaseDelay returns the base backoff delay as a duration.
func (p PoolSettings) RetryBaseDelay() time.Duration {
	return time.Duration(p.RetryBaseDelayMS) * time.Millisecond
}

// DatabaseConfig configures the relational database pool.
type DatabaseConfig struct {
	PoolSettings `mapstructure:",squash"`

	URL      string `mapstructure:"url" validate:"required"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig configures the key-value cache pool.
type RedisConfig struct {
	PoolSettings `mapstructure:",squash"`

	URL      string `mapstructure:"url" validate:"required"`
	PoolSize int    `mapstructure:"pool_size"`
}

// NATSConfig configures the message broker client.
type NATSConfig struct {
	PoolSettings `mapstructure:",squash"`

	URL  string `mapstructure:"url" validate:"required"`
	Name string `mapstructure:"name"`
}

// AltDBConfig configures the embedded alternative database (SQLite).
type AltDBConfig struct {
	PoolSettings `mapstructure:",squash"`

	Path string `mapstructure:"path" validate:"required"`
}

// JWTConfig configures the JWT token validator. The algorithm is pinned at
// construction time; key material is loaded from a file (PEM for RSA/EC, raw
// bytes for HMAC).
type JWTConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	KeyFile   string `mapstructure:"key_file" validate:"required"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// PASETOConfig configures the PASETO token validator.
type PASETOConfig struct {
	Version string `mapstructure:"version"`
	Purpose string `mapstructure:"purpose"`
	// KeyHex is the hex-encoded key: 32-byte symmetric key for purpose
	// "local", Ed25519 public key for purpose "public".
	KeyHex   string `mapstructure:"key_hex"`
	KeyFile  string `mapstructure:"key_file"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// RouteLimit overrides the rate limit for a single route pattern.
type RouteLimit struct {
	RPM     int  `mapstructure:"rpm"`
	PerUser bool `mapstructure:"per_user"`
}

// RateLimitConfig configures distributed request rate limiting.
type RateLimitConfig struct {
	Enabled      bool                  `mapstructure:"enabled"`
	PerUserRPM   int                   `mapstructure:"per_user_rpm" validate:"gt=0"`
	PerClientRPM int                   `mapstructure:"per_client_rpm" validate:"gt=0"`
	Routes       map[string]RouteLimit `mapstructure:"routes"`
}

// LockoutConfig configures identity-keyed login lockout.
type LockoutConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	KeyPrefix           string  `mapstructure:"key_prefix" validate:"required"`
	MaxAttempts         int     `mapstructure:"max_attempts" validate:"gt=0"`
	WindowSecs          int     `mapstructure:"window_secs"`
	LockoutDurationSecs int     `mapstructure:"lockout_duration_secs"`
	BaseDelayMS         int     `mapstructure:"base_delay_ms"`
	MaxDelayMS          int     `mapstructure:"max_delay_ms"`
	DelayMultiplier     float64 `mapstructure:"delay_multiplier" validate:"gte=1"`
	WarningThreshold    int     `mapstructure:"warning_threshold"`
	// IdentityField is the JSON field the lockout middleware reads from the
	// request body to identify the account, e.g. "email".
	IdentityField string `mapstructure:"identity_field"`
	// MaxBodyPeekBytes caps how much of the body the middleware inspects.
	MaxBodyPeekBytes int `mapstructure:"max_body_peek_bytes"`
}

// SyslogTransport selects how audit syslog messages are sent.
type SyslogTransport string

// Syslog transports
const (
	SyslogUDP  SyslogTransport = "udp"
	SyslogTCP  SyslogTransport = "tcp"
	SyslogNone SyslogTransport = "none"
)

// SyslogConfig configures the audit syslog side channel.
type SyslogConfig struct {
	Transport SyslogTransport `mapstructure:"transport"`
	Address   string          `mapstructure:"address"`
	Facility  int             `mapstructure:"facility"`
}

// AlertsConfig configures storage-failure alerting for the audit pipeline.
type AlertsConfig struct {
	WebhookURLs    []string `mapstructure:"webhook_urls"`
	ThresholdSecs  int      `mapstructure:"threshold_secs"`
	CooldownSecs   int      `mapstructure:"cooldown_secs"`
	NotifyRecovery bool     `mapstructure:"notify_recovery"`
}

// AuditConfig configures the audit subsystem.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Storage selects the backing store: "database" or "altdb".
	Storage string `mapstructure:"storage"`

	AuditAllRequests bool     `mapstructure:"audit_all_requests"`
	AuditedRoutes    []string `mapstructure:"audited_routes"`
	ExcludedRoutes   []string `mapstructure:"excluded_routes"`
	AuditAuthEvents  bool     `mapstructure:"audit_auth_events"`

	MailboxSize   int    `mapstructure:"mailbox_size"`
	RetentionDays int    `mapstructure:"retention_days"`
	ArchiveDir    string `mapstructure:"archive_dir"`

	Syslog SyslogConfig `mapstructure:"syslog"`
	Alerts AlertsConfig `mapstructure:"alerts"`
}

// SessionConfig reserves settings for the session helpers built on top of
// the core. The core only carries the block.
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	TTLSecs    int    `mapstructure:"ttl_secs"`
}

// WebSocketConfig reserves settings for the websocket helpers built on top
// of the core. The core only carries the block.
type WebSocketConfig struct {
	Path             string `mapstructure:"path"`
	PingIntervalSecs int    `mapstructure:"ping_interval_secs"`
}

// TLSConfig configures TLS termination for the server listener.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file" validate:"required"`
	KeyFile  string `mapstructure:"key_file" validate:"required"`
}

// OTLPConfig configures the OTLP observability emission. The core specifies
// what it emits; exporter wiring belongs to the embedding binary.
type OTLPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}
