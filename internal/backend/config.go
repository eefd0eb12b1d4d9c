package backend

import (
	"fmt"
	"time"

	"backoffice/internal/blob"
	"backoffice/internal/config"
	gsheet "backoffice/internal/sheets/google"
)

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Remote specific
	APIBaseURL        string
	HTTPClientTimeout time.Duration

	// Order publishing (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Product images (optional)
	BlobEnabled bool
	Blob        blob.Options

	// Order export (optional)
	SheetsEnabled bool
	Sheets        gsheet.Options

	ReportCacheTTL  time.Duration
	ReportCacheSize int

	// SeedMemory fills a fresh memory backend with sample data.
	SeedMemory bool
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		APIBaseURL:        appConfig.APIBaseURL,
		HTTPClientTimeout: appConfig.HTTPClientTimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		BlobEnabled: appConfig.BlobEnabled(),
		Blob: blob.Options{
			Endpoint:        appConfig.S3EndpointURL,
			Bucket:          appConfig.S3BucketName,
			Region:          appConfig.AWSRegion,
			AccessKeyID:     appConfig.AWSAccessKeyID,
			SecretAccessKey: appConfig.AWSSecretAccessKey,
		},

		SheetsEnabled: appConfig.SheetsEnabled(),
		Sheets: gsheet.Options{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleCredentialsJSON,
		},

		ReportCacheTTL:  appConfig.ReportCacheTTL,
		ReportCacheSize: defaultReportCacheSize,

		SeedMemory: true,
	}, nil
}

const defaultReportCacheSize = 64

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RemoteBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for remote backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	if c.BlobEnabled && c.Blob.Bucket == "" {
		return fmt.Errorf("bucket name is required when image storage is enabled")
	}
	if c.SheetsEnabled && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required when order export is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RemoteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
