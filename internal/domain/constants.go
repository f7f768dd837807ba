package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Run defaults
const (
	// DefaultCheckTimeout bounds a single check invocation
	DefaultCheckTimeout = 30 * time.Second
	// DefaultPriority is used when a registration leaves priority unset
	DefaultPriority = 100
	// DefaultCategory is used when a registration leaves category unset
	DefaultCategory = "general"
)

// Check categories seeded into every registry
const (
	CategoryConfiguration = "configuration"
	CategoryContent       = "content"
	CategoryExternal      = "external"
	CategoryOutput        = "output"
	CategoryGeneral       = DefaultCategory
)

// Exit codes
const (
	ExitCodeClean    = 0
	ExitCodeErrors   = 1
	ExitCodeWarnings = 2
)

// HTTP probe defaults
const (
	// DefaultHTTPClientTimeout is the timeout for a single probe request
	DefaultHTTPClientTimeout = 10 * time.Second
	// DefaultProbeRatePerSecond throttles outbound probes
	DefaultProbeRatePerSecond = 5
	// DefaultProbeBurst is the limiter burst size
	DefaultProbeBurst = 5
	// DefaultProbeRetries is the number of retries after the first attempt
	DefaultProbeRetries = 2
	// DefaultUserAgent identifies outbound probes
	DefaultUserAgent = "spechealth/1"
)

// Cache and history defaults
const (
	// DefaultCacheTTL is how long a probe outcome stays fresh
	DefaultCacheTTL = time.Hour
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 200
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 30
)
