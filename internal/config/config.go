// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"faturamento/internal/core"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

var validBackends = []string{BackendMemory, BackendSheets, BackendSQLite, BackendFile}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	RequestTimeout     time.Duration

	// Report source
	DataBackend string
	DataDir     string
	DataFile    string
	DataSheet   string

	// Database
	SQLiteDBPath string

	// AMQP (optional for the server, required by the worker)
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPResultQueue string

	// Google Sheets; credentials are read by the sheets client itself
	GoogleSpreadsheetID string
	GoogleSheetNames    string

	// Report defaults
	Columns            core.ColumnNames
	MalformedRowPolicy string

	// Cache
	ReportCacheSize      int
	ReportCacheTTL       time.Duration
	CacheCleanupInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	def := core.DefaultColumnNames()
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		DataDir:     getEnv("DATA_DIR", "data"),
		DataFile:    getEnv("DATA_FILE", ""),
		DataSheet:   getEnv("DATA_SHEET", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/faturamento.db"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "faturamento"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "report_requests"),
		AMQPResultQueue: getEnv("AMQP_RESULT_QUEUE", "report_results"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetNames:    getEnv("GOOGLE_SHEET_NAMES", ""),

		Columns: core.ColumnNames{
			PeriodMarker: getEnv("COLUMN_PERIOD_MARKER", def.PeriodMarker),
			Year:         getEnv("COLUMN_YEAR", def.Year),
			Revenue:      getEnv("COLUMN_REVENUE", def.Revenue),
			Target:       getEnv("COLUMN_TARGET", def.Target),
		},
		MalformedRowPolicy: getEnv("MALFORMED_ROW_POLICY", string(core.PolicyAbort)),

		ReportCacheSize:      getEnvInt("REPORT_CACHE_SIZE", 100),
		ReportCacheTTL:       getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Policy returns the configured malformed-row policy. Validate rejects
// unknown values, so the error is only relevant for unvalidated configs.
func (c *Config) Policy() (core.MalformedRowPolicy, error) {
	return core.ParsePolicy(c.MalformedRowPolicy)
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE is required when using file backend")
		} else if _, err := os.Stat(c.DataFile); err != nil {
			errors = append(errors, fmt.Sprintf("data file '%s' is not readable: %v", c.DataFile, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" || c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		} else if c.AMQPQueue == c.AMQPResultQueue {
			errors = append(errors, "AMQP request and result queues must differ")
		}
	}

	if strings.TrimSpace(c.Columns.PeriodMarker) == "" || strings.TrimSpace(c.Columns.Year) == "" ||
		strings.TrimSpace(c.Columns.Revenue) == "" || strings.TrimSpace(c.Columns.Target) == "" {
		errors = append(errors, "column names cannot be blank")
	}
	if _, err := c.Policy(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid MALFORMED_ROW_POLICY '%s': must be 'abort' or 'drop'", c.MalformedRowPolicy))
	}

	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at least 1 second", c.ReportCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the report worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AMQPURL == "" {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required for the report worker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
