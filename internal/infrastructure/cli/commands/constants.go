package commands

import "github.com/doeshing/spechealth/internal/app"

// ContainerFunc hands commands the application container. It is resolved
// lazily so persistent flags such as --config are parsed first.
type ContainerFunc func() (*app.Container, error)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Error messages
const (
	ErrHistoryStoreUnavailable = "history is disabled in the configuration"
	ErrCacheStoreUnavailable   = "the probe cache is disabled in the configuration"
	ErrUnknownFormat           = "unknown format %q (want text or json)"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoCachedProbes           = "No cached probe results."
)
