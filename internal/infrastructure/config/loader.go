package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/spechealth/assets"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/pkg/filesystem"
	"github.com/doeshing/spechealth/internal/ports"
)

// EnvPrefix prefixes every environment override, e.g. SPECHEALTH_RUN_TIMEOUT.
const EnvPrefix = "spechealth"

// PathEnv points the loader at a different config file.
const PathEnv = "SPECHEALTH_CONFIG"

// FileLoader loads YAML configuration from ~/.spechealth/config.yaml
// (overridable via SPECHEALTH_CONFIG), then applies SPECHEALTH_* overrides.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path means the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults; fields absent from the file keep their default value.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}

	path := l.Path()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := writeDefault(path); err != nil {
			return domain.Config{}, err
		}
	case err != nil:
		return domain.Config{}, errors.Wrapf(err, "read config %s", path)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return domain.Config{}, errors.Wrap(err, "apply environment overrides")
	}
	return cfg, nil
}

// Path is the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := os.Getenv(PathEnv); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filesystem.AppPath("config.yaml")
}

// Defaults decodes the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, errors.Wrap(err, "parse embedded defaults")
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	return errors.Wrap(os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions), "write default config")
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
