// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). Following the Ports and Adapters (Hexagonal) pattern,
// these interfaces allow the check engine to remain independent of where repository
// content comes from, how results are persisted, and how logs are written.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Provider, ConfigProvider)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/spechealth/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.spechealth/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// FileEntry is one item returned by Provider.ListFiles.
type FileEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	IsFile      bool   `json:"isFile"`
}

// Provider gives checks read-only access to a repository's content.
// Paths are repository-relative and slash separated. Implementations must be
// safe for concurrent use: parallel runs share one provider across checks.
type Provider interface {
	Type() string
	RepoPath() string
	ReadFile(ctx context.Context, path string) (string, error)
	FileExists(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
	ListFiles(ctx context.Context, path string) ([]FileEntry, error)
}

// CheckOptions carries free-form per-run settings through to every check.
type CheckOptions map[string]any

// CheckFunc is the plug-in contract. Ordinary validation problems are reported
// through the returned result; the error return is for exceptional conditions.
type CheckFunc func(ctx context.Context, provider Provider, opts CheckOptions) (domain.CheckResult, error)

// ProbeResult is the outcome of checking one URL.
type ProbeResult struct {
	URL        string
	StatusCode int
	Reachable  bool
	Err        error
	FromCache  bool
}

// URLProber checks whether external URLs are reachable.
type URLProber interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// CacheRepository stores probe outcomes between runs.
type CacheRepository interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Set(entry domain.CacheEntry) error
	Entries() ([]domain.CacheEntry, error)
	Clear() error
	Dir() string
}

// HistoryRepository persists run summaries.
type HistoryRepository interface {
	Save(record domain.HistoryRecord) error
	Records(limit int) ([]domain.HistoryRecord, error)
	Prune(olderThan time.Time) (int, error)
	Clear() error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
