package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	TokenTTL   int    `mapstructure:"token_ttl"` // minutes
	AdminToken string `mapstructure:"admin_token"`
}

// MonitoringConfig carries the telemetry engine's alert thresholds and
// memory ceilings. Zero values fall back to engine defaults.
type MonitoringConfig struct {
	VerificationCompletionFloor float64 `mapstructure:"verification_completion_floor"`
	DeliveryFloor               float64 `mapstructure:"delivery_floor"`
	PasswordResetSuccessFloor   float64 `mapstructure:"password_reset_success_floor"`
	AuthErrorRateCeiling        float64 `mapstructure:"auth_error_rate_ceiling"`
	HardBounceCeiling           int     `mapstructure:"hard_bounce_ceiling"`
	SpamComplaintCeiling        int     `mapstructure:"spam_complaint_ceiling"`
	SlowQueryMS                 int     `mapstructure:"slow_query_ms"`
	MaxTrackedEndpoints         int     `mapstructure:"max_tracked_endpoints"`
	MaxFunnelEvents             int     `mapstructure:"max_funnel_events"`
}

// SlowQuery returns the slow-query threshold as a duration.
func (m MonitoringConfig) SlowQuery() time.Duration {
	return time.Duration(m.SlowQueryMS) * time.Millisecond
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "merkatu")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "merkatu")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 60)
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("monitoring.verification_completion_floor", 70)
	v.SetDefault("monitoring.delivery_floor", 95)
	v.SetDefault("monitoring.password_reset_success_floor", 80)
	v.SetDefault("monitoring.auth_error_rate_ceiling", 5)
	v.SetDefault("monitoring.hard_bounce_ceiling", 10)
	v.SetDefault("monitoring.spam_complaint_ceiling", 3)
	v.SetDefault("monitoring.slow_query_ms", 500)
	v.SetDefault("monitoring.max_tracked_endpoints", 500)
	v.SetDefault("monitoring.max_funnel_events", 5000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MERKATU_DATABASE_HOST → database.host
	v.SetEnvPrefix("MERKATU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if c.Monitoring.AuthErrorRateCeiling < 0 || c.Monitoring.AuthErrorRateCeiling > 100 {
		errs = append(errs, "monitoring.auth_error_rate_ceiling must be a percentage")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
