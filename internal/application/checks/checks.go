// Package checks holds the built-in spec-up-t repository checks.
//
// Every check is a ports.CheckFunc registered through Builtins. Validation
// problems are reported as fail or warn results; an error return is reserved
// for conditions the check cannot reason about.
package checks

import (
	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/ports"
)

// Check ids.
const (
	PackageJSONID    = "package-json"
	SpecsJSONID      = "specs-json"
	GitignoreID      = "gitignore"
	SpecDirectoryID  = "spec-directory"
	TermsIntroID     = "terms-intro"
	TermReferencesID = "term-references"
	ExternalSpecsID  = "external-specs"
	OutputIndexID    = "output-index"
)

// CheckOptions keys understood by the built-in checks.
const (
	// OptionOffline disables network probes when set to true.
	OptionOffline = "offline"
)

// Deps are the collaborators some checks need.
type Deps struct {
	Prober ports.URLProber
	Logger ports.Logger
}

// Builtins lists every built-in check. Configuration checks carry the lowest
// priorities so they run first; content, external and output checks follow.
func Builtins(deps Deps) []registry.Plugin {
	return []registry.Plugin{
		packageJSONPlugin(),
		specsJSONPlugin(),
		gitignorePlugin(),
		specDirectoryPlugin(),
		termsIntroPlugin(),
		termReferencesPlugin(),
		externalSpecsPlugin(deps),
		outputIndexPlugin(),
	}
}

func optionBool(opts ports.CheckOptions, key string) bool {
	v, ok := opts[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
