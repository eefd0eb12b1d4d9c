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
)

type Config struct {
	// HTTP Server
	Port              string
	RequestsPerMinute int

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Remote API (DATA_BACKEND=remote)
	APIBaseURL        string
	HTTPClientTimeout time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Object storage for product images
	S3EndpointURL      string
	S3BucketName       string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Google Sheets order export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string

	// Dashboard
	ReportCacheTTL time.Duration

	// Worker
	OrderSweepInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "8081"),
		RequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/backoffice.db"),

		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8000/api/v1"),
		HTTPClientTimeout: getEnvDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "backoffice"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "process_orders"),

		S3EndpointURL:      getEnv("S3_ENDPOINT_URL", ""),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "ecommerce-products"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Pedidos"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 30*time.Second),

		OrderSweepInterval: getEnvDuration("ORDER_SWEEP_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// ValidBackends lists the accepted DATA_BACKEND values.
var ValidBackends = []string{"memory", "sqlite", "remote"}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid requests per minute %d: must be at least 1", c.RequestsPerMinute))
	}

	// Validate data backend
	if !slices.Contains(ValidBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, ValidBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate remote API if backend is remote
	if c.DataBackend == "remote" {
		if c.APIBaseURL == "" {
			errors = append(errors, "API base URL cannot be empty when using remote backend")
		} else if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an http(s) URL", c.APIBaseURL))
		}
	}
	if c.HTTPClientTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP client timeout %v: must be positive", c.HTTPClientTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate object storage if an endpoint is configured
	if c.S3EndpointURL != "" {
		if _, err := url.Parse(c.S3EndpointURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid S3 endpoint URL '%s': %v", c.S3EndpointURL, err))
		}
		if c.S3BucketName == "" {
			errors = append(errors, "S3 bucket name cannot be empty when S3 endpoint is provided")
		}
		if c.AWSRegion == "" {
			errors = append(errors, "AWS region cannot be empty when S3 endpoint is provided")
		}
	}

	// Validate Google Sheets export if a spreadsheet is configured
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleCredentialsJSON == "" {
			errors = append(errors, "GOOGLE_CREDENTIALS_JSON is required when GOOGLE_SPREADSHEET_ID is set")
		}
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}

	if c.OrderSweepInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid order sweep interval %v: must not be negative", c.OrderSweepInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// BlobEnabled reports whether product images can be uploaded.
func (c *Config) BlobEnabled() bool {
	return c.S3EndpointURL != "" || c.AWSAccessKeyID != ""
}

// SheetsEnabled reports whether processed orders are exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" && c.GoogleCredentialsJSON != ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
