package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aevon-lab/profile-relay/internal/core/xdm"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file settings.
// RELAY_PARTNER__ORG_ID sets partner.org_id.
const EnvPrefix = "RELAY_"

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Partner  PartnerConfig  `koanf:"partner"`
	ErrorLog ErrorLogConfig `koanf:"errorlog"`
	Database DatabaseConfig `koanf:"database"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type LogConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

// PartnerConfig addresses the streaming batch endpoint and the dataset the
// messages land in.
type PartnerConfig struct {
	Endpoint    string        `koanf:"endpoint"`
	OrgID       string        `koanf:"org_id"`
	SchemaID    string        `koanf:"schema_id"`
	DatasetID   string        `koanf:"dataset_id"`
	DataflowID  string        `koanf:"dataflow_id"`
	Token       string        `koanf:"token"`
	Debug       bool          `koanf:"debug"`
	Timeout     time.Duration `koanf:"timeout"`
	PayloadKind string        `koanf:"payload_kind"`
}

type ErrorLogConfig struct {
	Endpoint     string        `koanf:"endpoint"`
	WriteKey     string        `koanf:"write_key"`
	EventName    string        `koanf:"event_name"`
	AnonymousID  string        `koanf:"anonymous_id"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
	BackoffMs    int           `koanf:"backoff_ms"`
	BackoffMaxMs int           `koanf:"backoff_max_ms"`
	Concurrency  int           `koanf:"concurrency"`
}

// DatabaseConfig configures the optional failure audit store.
type DatabaseConfig struct {
	Enabled      bool   `koanf:"enabled"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// Target is the partner routing derived from the partner settings.
func (p PartnerConfig) Target() xdm.Target {
	return xdm.Target{
		OrgID:      p.OrgID,
		SchemaID:   p.SchemaID,
		DatasetID:  p.DatasetID,
		DataflowID: p.DataflowID,
	}
}

// maxErrorLogRetries bounds how long one report can hold a batch invocation.
const maxErrorLogRetries = 10

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (must be debug, info, warn or error)", c.Log.Level)
	}

	required := []struct {
		key   string
		value string
	}{
		{"partner.endpoint", c.Partner.Endpoint},
		{"partner.org_id", c.Partner.OrgID},
		{"partner.schema_id", c.Partner.SchemaID},
		{"partner.dataset_id", c.Partner.DatasetID},
		{"partner.dataflow_id", c.Partner.DataflowID},
		{"errorlog.endpoint", c.ErrorLog.Endpoint},
		{"errorlog.write_key", c.ErrorLog.WriteKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if c.Partner.Timeout <= 0 {
		return fmt.Errorf("partner.timeout must be > 0")
	}
	switch xdm.Kind(c.Partner.PayloadKind) {
	case xdm.KindProfile, xdm.KindExperienceEvent:
	default:
		return fmt.Errorf("unsupported partner.payload_kind %q", c.Partner.PayloadKind)
	}

	if c.ErrorLog.Timeout <= 0 {
		return fmt.Errorf("errorlog.timeout must be > 0")
	}
	if c.ErrorLog.MaxRetries < 0 || c.ErrorLog.MaxRetries > maxErrorLogRetries {
		return fmt.Errorf("errorlog.max_retries must be between 0 and %d", maxErrorLogRetries)
	}
	if c.ErrorLog.BackoffMs < 0 || c.ErrorLog.BackoffMaxMs < 0 {
		return fmt.Errorf("errorlog backoff must be >= 0")
	}
	if c.ErrorLog.Concurrency <= 0 {
		return fmt.Errorf("errorlog.concurrency must be > 0")
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required when database.enabled is true")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	return nil
}

// Load parses config from defaults, an optional YAML file and RELAY_* env,
// then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 5,
		"server.mode":             "release",
		"log.level":               "info",
		"partner.timeout":         "30s",
		"partner.debug":           false,
		"partner.payload_kind":    string(xdm.KindProfile),
		"errorlog.endpoint":       "https://api.segment.io/v1/track",
		"errorlog.timeout":        "10s",
		"errorlog.max_retries":    2,
		"errorlog.backoff_ms":     200,
		"errorlog.backoff_max_ms": 2000,
		"errorlog.concurrency":    8,
		"database.enabled":        false,
		"database.max_open_conns": 10,
		"database.max_idle_conns": 5,
		"database.auto_migrate":   true,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
