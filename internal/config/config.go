// Package config loads and validates the pipeline's runtime configuration,
// adapted from the teacher's pkg/common/config package: a YAML document
// decoded with gopkg.in/yaml.v3, environment overrides loaded the way
// pkg/common/utils/env.go loads a .env file with joho/godotenv, and a
// Validate method built the same way the teacher's Config.Validate
// delegates to one validator method per section.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ClassifierModels names the model identifiers the header-detection and
// PII-detection classifiers use, per spec.md §6.
type ClassifierModels struct {
	HeaderDetection string `yaml:"header_detection_model"`
	PIIDetection    string `yaml:"pii_detection_model"`
}

// Buckets names the three object-storage roles the orchestrator moves
// files between, per spec.md §6.
type Buckets struct {
	Inbox   string `yaml:"inbox"`
	Staging string `yaml:"staging"`
	Archive string `yaml:"archive"`
}

// Lakehouse carries the BigQuery-Iceberg connection details the Lakehouse
// Loader needs, per spec.md §4.M/§6.
type Lakehouse struct {
	ProjectID        string `yaml:"project_id"`
	ConnectionHandle string `yaml:"connection_handle"`
	IcebergBasePath  string `yaml:"iceberg_base_path"`
}

// Config is the top-level pipeline configuration.
type Config struct {
	Buckets            Buckets          `yaml:"buckets"`
	EventBusTopic      string           `yaml:"event_bus_topic"`
	Lakehouse          Lakehouse        `yaml:"lakehouse"`
	WorkingDirectory   string           `yaml:"working_directory"`
	OutputDirectory    string           `yaml:"output_directory,omitempty"`
	ClassifierModels   ClassifierModels `yaml:"classifier_models"`
	LogLevel           string           `yaml:"log_level"`
}

// Load reads the YAML config at path, then applies environment overrides.
// envPath, if non-empty, is loaded via godotenv before the overrides are
// read (mirroring pkg/common/utils/env.go's LoadEnv, generalized to take
// an explicit path instead of a hardcoded developer machine path).
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		if abs, err := filepath.Abs(envPath); err == nil {
			_ = godotenv.Load(abs) // best-effort, matching the teacher's "warn, don't fail" behavior
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	override(&cfg.Buckets.Inbox, "DATAGRUNT_INBOX_BUCKET")
	override(&cfg.Buckets.Staging, "DATAGRUNT_STAGING_BUCKET")
	override(&cfg.Buckets.Archive, "DATAGRUNT_ARCHIVE_BUCKET")
	override(&cfg.EventBusTopic, "DATAGRUNT_EVENT_TOPIC")
	override(&cfg.Lakehouse.ProjectID, "DATAGRUNT_GCP_PROJECT")
	override(&cfg.Lakehouse.ConnectionHandle, "DATAGRUNT_LAKEHOUSE_CONNECTION")
	override(&cfg.Lakehouse.IcebergBasePath, "DATAGRUNT_ICEBERG_BASE_PATH")
	override(&cfg.WorkingDirectory, "DATAGRUNT_WORKING_DIR")
	override(&cfg.OutputDirectory, "DATAGRUNT_OUTPUT_DIR")
	override(&cfg.LogLevel, "DATAGRUNT_LOG_LEVEL")
}

func override(field *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*field = v
	}
}

// Validate fails startup on any missing required value, per spec.md §6
// ("Missing required values fail startup").
func (c *Config) Validate() error {
	if err := c.validateBuckets(); err != nil {
		return err
	}
	if err := c.validateLakehouse(); err != nil {
		return err
	}
	if err := c.validateDirectories(); err != nil {
		return err
	}
	if c.EventBusTopic == "" {
		return fmt.Errorf("config: event_bus_topic is required")
	}
	return nil
}

func (c *Config) validateBuckets() error {
	if c.Buckets.Inbox == "" {
		return fmt.Errorf("config: buckets.inbox is required")
	}
	if c.Buckets.Staging == "" {
		return fmt.Errorf("config: buckets.staging is required")
	}
	if c.Buckets.Archive == "" {
		return fmt.Errorf("config: buckets.archive is required")
	}
	return nil
}

func (c *Config) validateLakehouse() error {
	if c.Lakehouse.ProjectID == "" {
		return fmt.Errorf("config: lakehouse.project_id is required")
	}
	if c.Lakehouse.ConnectionHandle == "" {
		return fmt.Errorf("config: lakehouse.connection_handle is required")
	}
	if c.Lakehouse.IcebergBasePath == "" {
		return fmt.Errorf("config: lakehouse.iceberg_base_path is required")
	}
	return nil
}

func (c *Config) validateDirectories() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("config: working_directory is required")
	}
	if c.OutputDirectory == "" {
		c.OutputDirectory = c.WorkingDirectory
	}
	return nil
}
