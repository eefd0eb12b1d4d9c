package backend

import (
	"context"

	"backoffice/internal/cache"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the backend instance and what the process needs
// around it. Repository and Processor are nil for the remote backend, which
// has no local store.
type BackendResult struct {
	Backend     catalog.Backend
	Repository  catalog.Repository
	Processor   *services.OrderProcessor
	ReportCache *cache.LRUCache[core.SalesReport]
	Ready       ReadyFunc
	Cleanup     CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
