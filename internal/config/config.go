// Package config provides configuration management for the gateway
// request-admission layer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the root configuration for the gateway.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Auth     AuthConfig     `yaml:"auth"`
	Fallback FallbackConfig `yaml:"fallback"`
	Errors   ErrorsConfig   `yaml:"errors"`
	Vault    VaultConfig    `yaml:"vault"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddress   string   `yaml:"listenAddress"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"serviceName"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

// AuthConfig holds all authentication settings.
type AuthConfig struct {
	JWT         JWTConfig         `yaml:"jwt"`
	Cache       TokenCacheConfig  `yaml:"cache"`
	Blacklist   BlacklistConfig   `yaml:"blacklist"`
	PublicPaths PublicPathsConfig `yaml:"publicPaths"`
	Propagation PropagationConfig `yaml:"propagation"`
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret     string   `yaml:"secret"`
	Issuer     string   `yaml:"issuer"`
	Audience   string   `yaml:"audience"`
	Algorithms []string `yaml:"algorithms"`
	TokenTypes []string `yaml:"tokenTypes"`
	ClockSkew  Duration `yaml:"clockSkew"`
}

// TokenCacheConfig holds the positive validation cache settings.
type TokenCacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	TTL     Duration `yaml:"ttl"`
}

// BlacklistConfig holds revocation store settings.
type BlacklistConfig struct {
	// Backend selects the store implementation: "redis", "memory" or "disabled".
	Backend       string      `yaml:"backend"`
	KeyPrefix     string      `yaml:"keyPrefix"`
	DefaultTTL    Duration    `yaml:"defaultTTL"`
	FailClosed    bool        `yaml:"failClosed"`
	SweepInterval Duration    `yaml:"sweepInterval"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the blacklist backend.
type RedisConfig struct {
	Addr        string   `yaml:"addr"`
	Password    string   `yaml:"password"`
	DB          int      `yaml:"db"`
	PoolSize    int      `yaml:"poolSize"`
	DialTimeout Duration `yaml:"dialTimeout"`
}

// PublicPathsConfig lists path patterns that skip authentication.
// Global patterns apply to every method; ByMethod patterns apply to the
// named method only. OPTIONS requests are always public.
type PublicPathsConfig struct {
	Global   []string            `yaml:"global"`
	ByMethod map[string][]string `yaml:"byMethod"`
}

// PropagationConfig controls the identity headers injected for downstream
// services after successful validation.
type PropagationConfig struct {
	HeaderPrefix       string `yaml:"headerPrefix"`
	IncludePermissions bool   `yaml:"includePermissions"`
	IncludeTenant      bool   `yaml:"includeTenant"`
	GatewaySource      string `yaml:"gatewaySource"`
}

// FallbackConfig holds the backoff controller settings.
type FallbackConfig struct {
	RetryAfterBase Duration `yaml:"retryAfterBase"`
}

// ErrorsConfig controls the shape of client-visible error responses.
type ErrorsConfig struct {
	IncludeTraceID        bool   `yaml:"includeTraceId"`
	IncludeSupportContact bool   `yaml:"includeSupportContact"`
	SupportContact        string `yaml:"supportContact"`
	IncludeStackTrace     bool   `yaml:"includeStackTrace"`
}

// VaultConfig holds HashiCorp Vault settings for secret resolution.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "appigle-gateway",
			SampleRatio: 1.0,
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				Issuer:     "appigle-auth",
				Audience:   "appigle-api",
				Algorithms: []string{"HS256"},
				TokenTypes: []string{"ACCESS"},
				ClockSkew:  Duration(30 * time.Second),
			},
			Cache: TokenCacheConfig{
				Enabled: true,
				TTL:     Duration(60 * time.Second),
			},
			Blacklist: BlacklistConfig{
				Backend:       "memory",
				KeyPrefix:     "token:blacklist:",
				DefaultTTL:    Duration(24 * time.Hour),
				FailClosed:    false,
				SweepInterval: Duration(5 * time.Minute),
				Redis: RedisConfig{
					Addr:        "localhost:6379",
					DB:          0,
					PoolSize:    10,
					DialTimeout: Duration(5 * time.Second),
				},
			},
			PublicPaths: PublicPathsConfig{
				Global: []string{
					"/health",
					"/metrics",
					"/fallback/**",
					"/api/auth/**",
				},
			},
			Propagation: PropagationConfig{
				HeaderPrefix:       "X-",
				IncludePermissions: true,
				IncludeTenant:      true,
				GatewaySource:      "appigle-gateway",
			},
		},
		Fallback: FallbackConfig{
			RetryAfterBase: Duration(30 * time.Second),
		},
		Errors: ErrorsConfig{
			IncludeTraceID:        true,
			IncludeSupportContact: true,
			SupportContact:        "support@appigle.com",
			IncludeStackTrace:     false,
		},
		Vault: VaultConfig{
			Enabled: false,
			Mount:   "secret",
			Path:    "gateway",
			Key:     "jwt-secret",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBlacklistBackends = map[string]bool{
	"redis":    true,
	"memory":   true,
	"disabled": true,
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listenAddress is required")
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console; got %q", c.Logging.Format)
	}

	if c.Auth.JWT.Secret == "" && !c.Vault.Enabled {
		return fmt.Errorf("auth.jwt.secret is required when vault is disabled")
	}
	if len(c.Auth.JWT.Algorithms) == 0 {
		return fmt.Errorf("auth.jwt.algorithms must not be empty")
	}
	if c.Auth.JWT.ClockSkew.Duration() < 0 {
		return fmt.Errorf("auth.jwt.clockSkew must not be negative")
	}

	if c.Auth.Cache.Enabled && c.Auth.Cache.TTL.Duration() <= 0 {
		return fmt.Errorf("auth.cache.ttl must be positive when the cache is enabled")
	}

	if !validBlacklistBackends[c.Auth.Blacklist.Backend] {
		return fmt.Errorf("auth.blacklist.backend must be one of redis, memory, disabled; got %q", c.Auth.Blacklist.Backend)
	}
	if c.Auth.Blacklist.Backend == "redis" && c.Auth.Blacklist.Redis.Addr == "" {
		return fmt.Errorf("auth.blacklist.redis.addr is required for the redis backend")
	}
	if c.Auth.Blacklist.DefaultTTL.Duration() <= 0 {
		return fmt.Errorf("auth.blacklist.defaultTTL must be positive")
	}

	if c.Fallback.RetryAfterBase.Duration() <= 0 {
		return fmt.Errorf("fallback.retryAfterBase must be positive")
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing.sampleRatio must be between 0 and 1")
		}
	}

	if c.Vault.Enabled {
		if c.Vault.Address == "" {
			return fmt.Errorf("vault.address is required when vault is enabled")
		}
		if c.Vault.Mount == "" || c.Vault.Path == "" || c.Vault.Key == "" {
			return fmt.Errorf("vault.mount, vault.path and vault.key are required when vault is enabled")
		}
	}

	return nil
}

// ApplyEnvOverrides overrides selected configuration values from GATEWAY_*
// environment variables. Secrets are the main use case so they stay out of
// config files.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GATEWAY_LISTEN_ADDRESS"); v != "" {
		c.Server.ListenAddress = v
	}
	if v := os.Getenv("GATEWAY_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("GATEWAY_JWT_SECRET"); v != "" {
		c.Auth.JWT.Secret = v
	}
	if v := os.Getenv("GATEWAY_REDIS_ADDR"); v != "" {
		c.Auth.Blacklist.Redis.Addr = v
	}
	if v := os.Getenv("GATEWAY_REDIS_PASSWORD"); v != "" {
		c.Auth.Blacklist.Redis.Password = v
	}
	if v := os.Getenv("GATEWAY_VAULT_ADDR"); v != "" {
		c.Vault.Address = v
	}
	if v := os.Getenv("GATEWAY_VAULT_TOKEN"); v != "" {
		c.Vault.Token = v
	}
	if v := os.Getenv("GATEWAY_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
}
