// Package config loads the preprocessing run configuration from a TOML
// file, environment variables, and CLI overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "10s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete configuration for the preprocessing run.
type Config struct {
	AWS          AWSConfig          `toml:"aws"`
	Processing   ProcessingConfig   `toml:"processing"`
	FeatureStore FeatureStoreConfig `toml:"featurestore"`
	Metrics      MetricsConfig      `toml:"metrics"`
}

// AWSConfig contains AWS client configuration shared by the downloader and
// the feature-store publisher.
type AWSConfig struct {
	Region          string  `toml:"region"`
	AccessKeyID     string  `toml:"access_key_id"`
	SecretAccessKey string  `toml:"secret_access_key"`
	EndpointURL     *string `toml:"endpoint_url,omitempty"`
}

// ProcessingConfig controls the local transform/split/write stages.
type ProcessingConfig struct {
	BaseDir             string  `toml:"base_dir"`
	TrainRatio          float64 `toml:"train_ratio"`
	ValidationRatio     float64 `toml:"validation_ratio"`
	DownloadMaxAttempts uint    `toml:"download_max_attempts"`
}

// FeatureStoreConfig identifies the feature group and its stores.
type FeatureStoreConfig struct {
	Enabled               bool     `toml:"enabled"`
	GroupName             string   `toml:"feature_group_name"`
	RecordIdentifierField string   `toml:"record_identifier_field"`
	EventTimeField        string   `toml:"event_time_field"`
	Description           string   `toml:"description"`
	RoleARN               string   `toml:"role_arn"`
	OfflineStoreS3URI     string   `toml:"offline_store_s3_uri"`
	ReadinessTimeout      Duration `toml:"readiness_timeout"`
	ReadinessPollInterval Duration `toml:"readiness_poll_interval"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Processing: ProcessingConfig{
			BaseDir:             "/opt/ml/processing",
			TrainRatio:          0.7,
			ValidationRatio:     0.15,
			DownloadMaxAttempts: 5,
		},
		FeatureStore: FeatureStoreConfig{
			Enabled:               true,
			GroupName:             "abalone-feature-group",
			RecordIdentifierField: "sex",
			EventTimeField:        "EventTime",
			Description:           "abalone dataset features",
			ReadinessTimeout:      Duration(5 * time.Minute),
			ReadinessPollInterval: Duration(10 * time.Second),
		},
	}
}

// Load loads configuration from a TOML file and environment variables on
// top of defaults. Priority: CLI flags > environment > file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if v := os.Getenv("PREPROCESS_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("PREPROCESS_AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKeyID = v
	}
	if v := os.Getenv("PREPROCESS_AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("PREPROCESS_AWS_ENDPOINT_URL"); v != "" {
		cfg.AWS.EndpointURL = &v
	}
	if v := os.Getenv("PREPROCESS_BASE_DIR"); v != "" {
		cfg.Processing.BaseDir = v
	}
	if v := os.Getenv("PREPROCESS_FEATURE_GROUP_NAME"); v != "" {
		cfg.FeatureStore.GroupName = v
	}
	if v := os.Getenv("PREPROCESS_FEATURE_STORE_ROLE_ARN"); v != "" {
		cfg.FeatureStore.RoleARN = v
	}
	if v := os.Getenv("PREPROCESS_OFFLINE_STORE_S3_URI"); v != "" {
		cfg.FeatureStore.OfflineStoreS3URI = v
	}
	if v := os.Getenv("PREPROCESS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	return cfg, nil
}

// ApplyOverrides applies CLI flag overrides to the configuration.
func (c *Config) ApplyOverrides(region, baseDir *string) {
	if region != nil && *region != "" {
		c.AWS.Region = *region
	}
	if baseDir != nil && *baseDir != "" {
		c.Processing.BaseDir = *baseDir
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("AWS region cannot be empty")
	}
	if c.Processing.BaseDir == "" {
		return fmt.Errorf("processing base_dir cannot be empty")
	}
	if c.Processing.TrainRatio <= 0 || c.Processing.ValidationRatio < 0 ||
		c.Processing.TrainRatio+c.Processing.ValidationRatio > 1 {
		return fmt.Errorf("invalid split ratios: train=%v validation=%v",
			c.Processing.TrainRatio, c.Processing.ValidationRatio)
	}

	if !c.FeatureStore.Enabled {
		return nil
	}
	if c.FeatureStore.GroupName == "" {
		return fmt.Errorf("feature_group_name cannot be empty")
	}
	if c.FeatureStore.RecordIdentifierField == "" {
		return fmt.Errorf("record_identifier_field cannot be empty")
	}
	if c.FeatureStore.EventTimeField == "" {
		return fmt.Errorf("event_time_field cannot be empty")
	}
	if c.FeatureStore.RoleARN == "" {
		return fmt.Errorf("feature store role_arn cannot be empty")
	}
	if c.FeatureStore.OfflineStoreS3URI == "" {
		return fmt.Errorf("offline_store_s3_uri cannot be empty")
	}
	if c.FeatureStore.ReadinessTimeout.Std() <= 0 {
		return fmt.Errorf("readiness_timeout must be positive")
	}
	if c.FeatureStore.ReadinessPollInterval.Std() <= 0 {
		return fmt.Errorf("readiness_poll_interval must be positive")
	}
	return nil
}
