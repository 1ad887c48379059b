package config

import "fmt"

// APIConfig contains all results API server configuration.
type APIConfig struct {
	Enabled     bool            `yaml:"enabled" mapstructure:"enabled"`
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Indexing    IndexingConfig  `yaml:"indexing" mapstructure:"indexing"`
	Database    DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Storage     StorageConfig   `yaml:"storage,omitempty" mapstructure:"storage"`
	Admin       AdminConfig     `yaml:"admin,omitempty" mapstructure:"admin"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
}

// IndexingConfig configures the background indexing service that scans
// result artifacts and maintains a queryable index in a database.
type IndexingConfig struct {
	Interval    string `yaml:"interval" mapstructure:"interval"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// DatabaseConfig contains database connection settings for the index.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// StorageConfig selects where the indexer reads result artifacts from.
// When neither backend is configured, the local results directory from
// the global section is used.
type StorageConfig struct {
	Local *LocalStorageConfig `yaml:"local,omitempty" mapstructure:"local"`
	S3    *S3StorageConfig    `yaml:"s3,omitempty" mapstructure:"s3"`
}

// LocalStorageConfig reads result artifacts from a local directory.
type LocalStorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// S3StorageConfig reads result artifacts from S3-compatible storage.
type S3StorageConfig struct {
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// AdminConfig protects mutating API endpoints with a single credential.
// PasswordBcrypt holds a bcrypt hash; when empty, admin routes are
// disabled entirely.
type AdminConfig struct {
	Username       string `yaml:"username" mapstructure:"username"`
	PasswordBcrypt string `yaml:"password_bcrypt" mapstructure:"password_bcrypt"`
}

func (c *APIConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}

	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 10
	}

	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}

	if c.Indexing.Interval == "" {
		c.Indexing.Interval = "60s"
	}

	if c.Indexing.Concurrency == 0 {
		c.Indexing.Concurrency = 4
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "./crossbench.db"
	}

	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
}

// Validate checks the API configuration for errors.
func (c *APIConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Storage.Local != nil && c.Storage.S3 != nil {
		return fmt.Errorf("cannot configure both local and s3 storage")
	}

	if c.Storage.S3 != nil && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required")
	}

	return nil
}
