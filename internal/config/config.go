package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AWS        AWSConfig        `yaml:"aws"`
	Settings   SettingsConfig   `yaml:"settings"`
	History    HistoryConfig    `yaml:"history"`
	Events     EventsConfig     `yaml:"events"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	DefaultOrgID   string   `yaml:"default_org_id"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the listen host, binding all interfaces on ECS.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is host:port for the listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the settings cache connection.
type RedisConfig struct {
	URL                string `yaml:"url"`
	SettingsTTLSeconds int    `yaml:"settings_ttl_seconds"`
}

// SettingsTTL is how long a cached settings snapshot lives.
func (c RedisConfig) SettingsTTL() time.Duration {
	return time.Duration(c.SettingsTTLSeconds) * time.Second
}

// AWSConfig holds AWS credentials. Empty keys use the default chain.
type AWSConfig struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Settings sources.
const (
	SettingsSourceS3   = "s3"
	SettingsSourceFile = "file"
)

// SettingsConfig selects where organization settings are loaded from.
type SettingsConfig struct {
	Source   string `yaml:"source"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	FilePath string `yaml:"file_path"`
}

// History backends.
const (
	HistoryBackendPostgres = "postgres"
	HistoryBackendDynamoDB = "dynamodb"
)

// HistoryConfig selects the event-history store.
type HistoryConfig struct {
	Backend       string `yaml:"backend"`
	DynamoDBTable string `yaml:"dynamodb_table"`
}

// EventsConfig configures the settings-invalidation subscriber.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
	Workers  int    `yaml:"workers"`
	Prefetch int    `yaml:"prefetch"`
}

// SchedulingConfig holds the fallbacks used when an organization's settings
// leave a field empty.
type SchedulingConfig struct {
	Timezone            string `yaml:"timezone"`
	SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
	BusinessHoursStart  int    `yaml:"business_hours_start"`
	BusinessHoursEnd    int    `yaml:"business_hours_end"`
}

// LogConfig controls the package logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedact defaults to true when unset.
func (c LogConfig) ShouldRedact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.SettingsTTLSeconds == 0 {
		cfg.Redis.SettingsTTLSeconds = 300
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-west-2"
	}
	if cfg.Settings.Source == "" {
		cfg.Settings.Source = SettingsSourceS3
	}
	if cfg.Settings.Prefix == "" {
		cfg.Settings.Prefix = "outreach-settings/"
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryBackendPostgres
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "outreach.settings"
	}
	if cfg.Events.Queue == "" {
		cfg.Events.Queue = "outreach-timeline.settings"
	}
	if cfg.Events.Workers == 0 {
		cfg.Events.Workers = 4
	}
	if cfg.Events.Prefetch == 0 {
		cfg.Events.Prefetch = cfg.Events.Workers * 2
	}
	if cfg.Scheduling.Timezone == "" {
		cfg.Scheduling.Timezone = "UTC"
	}
	if cfg.Scheduling.BusinessHoursStart == 0 && cfg.Scheduling.BusinessHoursEnd == 0 {
		cfg.Scheduling.BusinessHoursStart = 6
		cfg.Scheduling.BusinessHoursEnd = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads .env, reads the config file and applies environment
// overrides.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Events.AMQPURL = v
		cfg.Events.Enabled = true
	}
	if v := os.Getenv("SETTINGS_BUCKET"); v != "" {
		cfg.Settings.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DEFAULT_ORG_ID"); v != "" {
		cfg.Server.DefaultOrgID = v
	}

	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot start with.
func (cfg *Config) Validate() error {
	var problems []string
	if cfg.Database.URL == "" {
		problems = append(problems, "database.url is required")
	}
	switch cfg.Settings.Source {
	case SettingsSourceS3:
		if cfg.Settings.Bucket == "" {
			problems = append(problems, "settings.bucket is required for the s3 source")
		}
	case SettingsSourceFile:
		if cfg.Settings.FilePath == "" {
			problems = append(problems, "settings.file_path is required for the file source")
		}
	default:
		problems = append(problems, fmt.Sprintf("settings.source %q is not one of s3, file", cfg.Settings.Source))
	}
	switch cfg.History.Backend {
	case HistoryBackendPostgres:
	case HistoryBackendDynamoDB:
		if cfg.History.DynamoDBTable == "" {
			problems = append(problems, "history.dynamodb_table is required for the dynamodb backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("history.backend %q is not one of postgres, dynamodb", cfg.History.Backend))
	}
	if cfg.Events.Enabled && cfg.Events.AMQPURL == "" {
		problems = append(problems, "events.amqp_url is required when events are enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
