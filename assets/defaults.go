package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// PackageJSONSchema describes the package.json fields a spec-up-t project needs.
//
//go:embed schemas/package.schema.json
var PackageJSONSchema []byte

// SpecsJSONSchema describes the shape of specs.json.
//
//go:embed schemas/specs.schema.json
var SpecsJSONSchema []byte
