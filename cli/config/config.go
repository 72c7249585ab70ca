package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents a salespipe.yaml configuration file.
// File values override Default(); CLI flags override both.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sink     SinkConfig     `yaml:"sink"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Adapters AdaptersConfig `yaml:"adapters"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig holds extraction and load tuning.
type PipelineConfig struct {
	// CSV is the input file path.
	CSV string `yaml:"csv"`
	// Source labels the records' origin in artifacts and reports.
	Source string `yaml:"source"`
	// BatchSize chunks multi-row inserts inside the run's transaction.
	BatchSize int `yaml:"batch_size"`
}

// SinkConfig holds relational store connection settings.
type SinkConfig struct {
	Driver     string   `yaml:"driver"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Database   string   `yaml:"database"`
	User       string   `yaml:"user"`
	Password   string   `yaml:"password"`
	SSLMode    string   `yaml:"sslmode"`
	MaxRetries int      `yaml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// ScheduleConfig holds serve-mode settings.
type ScheduleConfig struct {
	// Interval is the gap between scheduled runs.
	Interval Duration `yaml:"interval"`
	// Listen is the control API bind address.
	Listen string `yaml:"listen"`
}

// ArchiveConfig holds artifact store settings.
type ArchiveConfig struct {
	// Backend is one of fs, s3, memory.
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path"`
	Dataset string   `yaml:"dataset"`
	S3      S3Config `yaml:"s3"`
}

// S3Config holds the s3 backend's connection settings.
type S3Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// UsePathStyle addresses buckets as path segments, for
	// MinIO-style endpoints.
	UsePathStyle bool `yaml:"use_path_style"`
}

// AdaptersConfig holds run-completed notification targets.
// A nil block means that adapter is not configured.
type AdaptersConfig struct {
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
	Redis   *RedisConfig   `yaml:"redis,omitempty"`
}

// WebhookConfig configures the HTTP POST adapter.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// RedisConfig configures the redis publish adapter.
type RedisConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Retries *int     `yaml:"retries,omitempty"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration. Secrets have no
// defaults; they come from the file (usually via ${VAR} expansion)
// or flags.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			CSV:       "data/sales.csv",
			Source:    "sales_csv",
			BatchSize: 100,
		},
		Sink: SinkConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       5432,
			Database:   "salesdb",
			User:       "salesuser",
			SSLMode:    "disable",
			MaxRetries: 5,
			RetryDelay: Duration{2 * time.Second},
		},
		Schedule: ScheduleConfig{
			Interval: Duration{5 * time.Minute},
			Listen:   ":8080",
		},
		Archive: ArchiveConfig{
			Backend: "fs",
			Path:    "artifacts",
			Dataset: "salespipe",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Pipeline.CSV == "" {
		errs = append(errs, errors.New("pipeline.csv is required"))
	}
	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize))
	}

	switch c.Sink.Driver {
	case "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("sink.driver %q is not one of postgres, mysql", c.Sink.Driver))
	}
	if c.Sink.Host == "" {
		errs = append(errs, errors.New("sink.host is required"))
	}
	if c.Sink.Port <= 0 || c.Sink.Port > 65535 {
		errs = append(errs, fmt.Errorf("sink.port %d is out of range", c.Sink.Port))
	}
	if c.Sink.Database == "" {
		errs = append(errs, errors.New("sink.database is required"))
	}
	if c.Sink.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("sink.max_retries must be at least 1, got %d", c.Sink.MaxRetries))
	}
	if c.Sink.RetryDelay.Duration < 0 {
		errs = append(errs, fmt.Errorf("sink.retry_delay must not be negative, got %v", c.Sink.RetryDelay.Duration))
	}

	if c.Schedule.Interval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("schedule.interval must be positive, got %v", c.Schedule.Interval.Duration))
	}

	switch c.Archive.Backend {
	case "fs", "s3", "memory":
		if c.Archive.Backend == "fs" && c.Archive.Path == "" {
			errs = append(errs, errors.New("archive.path is required for the fs backend"))
		}
	case "":
		// No archive: legal, but sink-unreachable runs degrade to failure.
	default:
		errs = append(errs, fmt.Errorf("archive.backend %q is not one of fs, s3, memory", c.Archive.Backend))
	}

	if c.Adapters.Webhook != nil && c.Adapters.Webhook.URL == "" {
		errs = append(errs, errors.New("adapters.webhook.url is required when the webhook block is present"))
	}
	if c.Adapters.Redis != nil && c.Adapters.Redis.URL == "" {
		errs = append(errs, errors.New("adapters.redis.url is required when the redis block is present"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
