// Package config loads the service configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Orchestration OrchestrationConfig `json:"orchestration"`
	Database      DatabaseConfig      `json:"database"`
	Notify        NotifyConfig        `json:"notify"`
	MigrationsDir string              `json:"migrations_dir"`

	// DataFile is a JSON project used when no database is configured.
	DataFile string `json:"data_file"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type OrchestrationConfig struct {
	TimeoutSeconds  int `json:"timeout_seconds"`
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
	// JournalLength caps each agent's message stream in Redis.
	JournalLength int64 `json:"journal_length"`

	// Watch lists projects re-analysed every WatchIntervalSeconds.
	Watch                []string `json:"watch"`
	WatchIntervalSeconds int      `json:"watch_interval_seconds"`
}

// WatchInterval is the period between scheduled re-analyses.
func (o OrchestrationConfig) WatchInterval() time.Duration {
	return time.Duration(o.WatchIntervalSeconds) * time.Second
}

// Timeout is the caller-side bound on one orchestration.
func (o OrchestrationConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// CacheTTL is how long a result is served from the cache.
func (o OrchestrationConfig) CacheTTL() time.Duration {
	return time.Duration(o.CacheTTLSeconds) * time.Second
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type NotifyConfig struct {
	Slack   SlackConfig   `json:"slack"`
	Discord DiscordConfig `json:"discord"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
	Username string `json:"username"`
	Emoji    string `json:"emoji"`
}

type DiscordConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable references
// and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Defaults()
	return &cfg, nil
}

// Defaults fills every unset field that has a sensible default.
func (c *Config) Defaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3210
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Orchestration.TimeoutSeconds <= 0 {
		c.Orchestration.TimeoutSeconds = 10
	}
	if c.Orchestration.CacheTTLSeconds <= 0 {
		c.Orchestration.CacheTTLSeconds = 300
	}
	if c.Orchestration.JournalLength <= 0 {
		c.Orchestration.JournalLength = 1000
	}
	if len(c.Orchestration.Watch) > 0 && c.Orchestration.WatchIntervalSeconds <= 0 {
		c.Orchestration.WatchIntervalSeconds = 900
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
}
