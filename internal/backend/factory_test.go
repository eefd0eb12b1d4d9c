package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backoffice/internal/catalog"
	"backoffice/internal/config"
	"backoffice/internal/core"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is no longer a backend")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sqlite,remote" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:           "sqlite",
		SQLiteDBPath:          "/tmp/x.db",
		S3EndpointURL:         "http://localhost:4566",
		S3BucketName:          "ecommerce-products",
		GoogleSpreadsheetID:   "sheet",
		GoogleCredentialsJSON: "{}",
		ReportCacheTTL:        time.Minute,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || !cfg.BlobEnabled || !cfg.SheetsEnabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Blob.Endpoint != "http://localhost:4566" || cfg.Sheets.SpreadsheetID != "sheet" {
		t.Errorf("feature options not carried over: %+v", cfg)
	}

	app.DataBackend = "nope"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for invalid backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"remote without url", Config{Type: RemoteBackend}, "API base URL is required"},
		{"blob without bucket", Config{Type: MemoryBackend, BlobEnabled: true}, "bucket name is required"},
		{"unknown", Config{Type: "x"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackendSeeds(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:            MemoryBackend,
		ReportCacheSize: 4,
		ReportCacheTTL:  time.Minute,
		SeedMemory:      true,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer result.Close()

	if result.Processor == nil || result.Repository == nil || result.ReportCache == nil {
		t.Fatalf("local backend should carry processor, repository and cache: %+v", result)
	}
	orders, err := result.Backend.ListOrders(ctx)
	if err != nil || len(orders) == 0 {
		t.Fatalf("expected seeded orders, got %d (err=%v)", len(orders), err)
	}
	if err := result.Ready(ctx); err != nil {
		t.Errorf("Ready: %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:            SQLiteBackend,
		SQLiteDBPath:    filepath.Join(t.TempDir(), "backoffice.db"),
		ReportCacheSize: 4,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer result.Close()

	if err := result.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	c, err := result.Backend.CreateCategory(ctx, catalog.CategoryInput{Name: "Livros"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	got, _ := result.Backend.ListCategories(ctx)
	if len(got) != 1 || got[0] != (core.Category{ID: c.ID, Name: "Livros"}) {
		t.Fatalf("unexpected categories: %+v", got)
	}
}

func TestCreateRemoteBackend(t *testing.T) {
	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:       RemoteBackend,
		APIBaseURL: "http://127.0.0.1:1/api/v1",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if result.Processor != nil || result.Repository != nil {
		t.Error("remote backend has no local store")
	}
	if err := result.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
