package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/doeshing/spechealth/internal/domain"
)

// Output formats understood by the renderer.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Validate reports every inconsistency in cfg at once.
func Validate(cfg domain.Config) error {
	var result *multierror.Error
	add := func(field, format string, args ...interface{}) {
		result = multierror.Append(result, &domain.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	switch cfg.ConfigFormatVersion {
	case "", "1":
	default:
		add("config_format_version", "%q is not supported", cfg.ConfigFormatVersion)
	}

	if cfg.Run.Timeout <= 0 {
		add("run.timeout", "must be > 0")
	}
	if cfg.Run.MaxConcurrency < 0 {
		add("run.max_concurrency", "must be >= 0")
	}
	for i, category := range cfg.Run.Categories {
		if strings.TrimSpace(category) == "" {
			add(fmt.Sprintf("run.categories[%d]", i), "is empty")
		}
	}
	for i, id := range cfg.Run.DisabledChecks {
		if strings.TrimSpace(id) == "" {
			add(fmt.Sprintf("run.disabled_checks[%d]", i), "is empty")
		}
	}

	if cfg.HTTP.Timeout <= 0 {
		add("http.timeout", "must be > 0")
	}
	if cfg.HTTP.RequestsPerSecond <= 0 {
		add("http.requests_per_second", "must be > 0")
	}
	if cfg.HTTP.Burst <= 0 {
		add("http.burst", "must be > 0")
	}
	if cfg.HTTP.Retries < 0 {
		add("http.retries", "must be >= 0")
	}

	if cfg.Cache.TTL < 0 {
		add("cache.ttl", "must be >= 0")
	}
	if cfg.Cache.MaxEntries < 0 {
		add("cache.max_entries", "must be >= 0")
	}
	if cfg.History.RetainDays < 0 {
		add("history.retain_days", "must be >= 0")
	}

	switch strings.ToLower(cfg.Output.Format) {
	case "", FormatText, FormatJSON:
	default:
		add("output.format", "must be text|json, got %s", cfg.Output.Format)
	}

	return result.ErrorOrNil()
}
