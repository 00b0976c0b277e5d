package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Source types accepted by dataset.source.
const (
	SourceFiles    = "files"
	SourcePostgres = "postgres"
	SourceMSSQL    = "mssql"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for datacheck.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database passwords) must only come from environment variables.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	Log         LogConfig         `yaml:"log"`
	Dataset     DatasetConfig     `yaml:"dataset"`
	Output      OutputConfig      `yaml:"output"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	ReportStore ReportStoreConfig `yaml:"report_store"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // console or json
}

// DatasetConfig describes where the tables to validate come from.
type DatasetConfig struct {
	Source string `yaml:"source" env:"DATASET_SOURCE" env-default:"files"`
	Dir    string `yaml:"dir" env:"DATASET_DIR" env-default:"dataset"`
	// RowLimit caps rows loaded per table from database sources. 0 loads everything.
	RowLimit int `yaml:"row_limit" env:"DATASET_ROW_LIMIT" env-default:"0"`

	Postgres PostgresSourceConfig `yaml:"postgres"`
	MSSQL    MSSQLSourceConfig    `yaml:"mssql"`
}

// PostgresSourceConfig holds connection settings for a PostgreSQL table source.
type PostgresSourceConfig struct {
	Host           string `yaml:"host" env:"DATASET_PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"DATASET_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"DATASET_PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"DATASET_PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"DATASET_PGDATABASE" env-default:"employees"`
	Schema         string `yaml:"schema" env:"DATASET_PGSCHEMA" env-default:"public"`
	SSLMode        string `yaml:"ssl_mode" env:"DATASET_PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"DATASET_PGMAX_CONNECTIONS" env-default:"4"`
}

// ConnectionString returns a postgres:// URL for pgx.
func (c *PostgresSourceConfig) ConnectionString() string {
	return postgresURL(c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MSSQLSourceConfig holds connection settings for a SQL Server table source.
type MSSQLSourceConfig struct {
	Host     string `yaml:"host" env:"DATASET_MSSQL_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASET_MSSQL_PORT" env-default:"1433"`
	User     string `yaml:"user" env:"DATASET_MSSQL_USER" env-default:"sa"`
	Password string `yaml:"-" env:"DATASET_MSSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASET_MSSQL_DATABASE" env-default:"employees"`
	Schema   string `yaml:"schema" env:"DATASET_MSSQL_SCHEMA" env-default:"dbo"`
	Encrypt  string `yaml:"encrypt" env:"DATASET_MSSQL_ENCRYPT" env-default:"disable"`
}

// ConnectionString returns a sqlserver:// URL for go-mssqldb.
func (c *MSSQLSourceConfig) ConnectionString() string {
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("encrypt", c.Encrypt)
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(ResolveHostForDocker(c.Host), strconv.Itoa(c.Port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// OutputConfig sets where reports and metrics files live.
type OutputConfig struct {
	Dir string `yaml:"dir" env:"OUTPUT_DIR" env-default:"output"`
	// MetricsDir holds <table>_deequ_metrics.json files. Defaults to <dir>/deequ_results.
	MetricsDir string `yaml:"metrics_dir" env:"METRICS_DIR" env-default:""`
}

// MetricsPath returns the effective metrics directory.
func (c *OutputConfig) MetricsPath() string {
	if c.MetricsDir != "" {
		return c.MetricsDir
	}
	return filepath.Join(c.Dir, "deequ_results")
}

// CatalogConfig configures the static rule catalog.
type CatalogConfig struct {
	// File is an optional YAML catalog replacing the built-in employee suites.
	File string `yaml:"file" env:"CATALOG_FILE" env-default:""`
	// Suites maps table identifiers to suite names; unmapped tables use their own "<table>_suite".
	Suites map[string]string `yaml:"suites"`
}

// SynthesisConfig holds the thresholds used to turn statistics into rules.
type SynthesisConfig struct {
	RowCountLowerFactor float64 `yaml:"row_count_lower_factor" env:"SYNTHESIS_ROW_COUNT_LOWER_FACTOR" env-default:"0.9"`
	RowCountUpperFactor float64 `yaml:"row_count_upper_factor" env:"SYNTHESIS_ROW_COUNT_UPPER_FACTOR" env-default:"1.1"`
	StrictCompleteness  float64 `yaml:"strict_completeness" env:"SYNTHESIS_STRICT_COMPLETENESS" env-default:"0.95"`
	MinCompleteness     float64 `yaml:"min_completeness" env:"SYNTHESIS_MIN_COMPLETENESS" env-default:"0.5"`
	MostlyFactor        float64 `yaml:"mostly_factor" env:"SYNTHESIS_MOSTLY_FACTOR" env-default:"0.9"`
	MinUniqueness       float64 `yaml:"min_uniqueness" env:"SYNTHESIS_MIN_UNIQUENESS" env-default:"0.99"`
}

// PipelineConfig controls batch execution.
type PipelineConfig struct {
	Workers           int           `yaml:"workers" env:"PIPELINE_WORKERS" env-default:"1"`
	ValidationTimeout time.Duration `yaml:"validation_timeout" env:"PIPELINE_VALIDATION_TIMEOUT" env-default:"5m"`
}

// ReportStoreConfig enables persisting reports to PostgreSQL.
type ReportStoreConfig struct {
	Enabled  bool           `yaml:"enabled" env:"REPORT_STORE_ENABLED" env-default:"false"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL database configuration for the report store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"datacheck"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"datacheck"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a postgres:// URL for pgx.
func (c *DatabaseConfig) ConnectionString() string {
	return postgresURL(c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func postgresURL(host string, port int, user, password, database, sslMode string) string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(ResolveHostForDocker(host), strconv.Itoa(port)),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Load reads configuration from the YAML file at path with environment variable overrides.
// A .env file in the working directory is loaded into the environment first.
// When the YAML file does not exist, configuration comes from the environment alone.
func Load(path, version string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{Version: version}

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	switch c.Dataset.Source {
	case SourceFiles, SourcePostgres, SourceMSSQL:
	default:
		return fmt.Errorf("dataset.source must be one of files, postgres, mssql, got %q", c.Dataset.Source)
	}
	if c.Dataset.RowLimit < 0 {
		return fmt.Errorf("dataset.row_limit must not be negative")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.ValidationTimeout <= 0 {
		return fmt.Errorf("pipeline.validation_timeout must be positive")
	}

	s := c.Synthesis
	if s.RowCountLowerFactor < 0 || s.RowCountLowerFactor > s.RowCountUpperFactor {
		return fmt.Errorf("synthesis.row_count_lower_factor must be between 0 and row_count_upper_factor")
	}
	for name, v := range map[string]float64{
		"strict_completeness": s.StrictCompleteness,
		"min_completeness":    s.MinCompleteness,
		"mostly_factor":       s.MostlyFactor,
		"min_uniqueness":      s.MinUniqueness,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("synthesis.%s must be within [0, 1], got %v", name, v)
		}
	}
	if s.MinCompleteness > s.StrictCompleteness {
		return fmt.Errorf("synthesis.min_completeness must not exceed strict_completeness")
	}
	return nil
}
