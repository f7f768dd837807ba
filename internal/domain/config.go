package domain

import "time"

// Config mirrors ~/.spechealth/config.yaml. Every field can be overridden from
// the environment with the SPECHEALTH_ prefix, e.g. SPECHEALTH_RUN_TIMEOUT=10s.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version" envconfig:"config_format_version"`
	Run                 RunSettings     `yaml:"run"`
	HTTP                HTTPSettings    `yaml:"http"`
	Cache               CacheSettings   `yaml:"cache"`
	History             HistorySettings `yaml:"history"`
	Output              OutputSettings  `yaml:"output"`
}

// RunSettings are the defaults applied to every orchestration run.
type RunSettings struct {
	Timeout             time.Duration `yaml:"timeout"`
	Parallel            bool          `yaml:"parallel"`
	ContinueOnError     bool          `yaml:"continue_on_error" envconfig:"continue_on_error"`
	MaxConcurrency      int           `yaml:"max_concurrency" envconfig:"max_concurrency"`
	RespectDependencies bool          `yaml:"respect_dependencies" envconfig:"respect_dependencies"`
	Categories          []string      `yaml:"categories,omitempty"`
	DisabledChecks      []string      `yaml:"disabled_checks,omitempty" envconfig:"disabled_checks"`
}

// HTTPSettings configure the external URL prober.
type HTTPSettings struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Retries           int           `yaml:"retries"`
	UserAgent         string        `yaml:"user_agent" envconfig:"user_agent"`
}

// CacheSettings configure the probe outcome cache.
type CacheSettings struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries" envconfig:"max_entries"`
}

// HistorySettings configure run history persistence.
type HistorySettings struct {
	Enabled    bool `yaml:"enabled"`
	RetainDays int  `yaml:"retain_days" envconfig:"retain_days"`
}

// OutputSettings pick the default renderer.
type OutputSettings struct {
	Format string `yaml:"format"`
}
