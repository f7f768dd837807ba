package checks

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

func specsJSONPlugin() registry.Plugin {
	return registry.Plugin{
		Name: SpecsJSONID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:          SpecsJSONID,
				Name:        "specs.json",
				Description: "Checks that specs.json exists and describes at least one well-formed spec.",
				Check:       checkSpecsJSON,
				Category:    domain.CategoryConfiguration,
				Priority:    registry.Priority(20),
			}, nil
		},
	}
}

func checkSpecsJSON(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	exists, err := p.FileExists(ctx, specsJSONPath)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if !exists {
		return single(SpecsJSONID, domain.StatusFail, "specs.json not found in repository root")
	}
	raw, err := p.ReadFile(ctx, specsJSONPath)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if err := schemas.load(); err != nil {
		return domain.CheckResult{}, err
	}

	violations, err := validateDocument(schemas.specs, raw)
	switch {
	case errors.Is(err, errNotJSON):
		return single(SpecsJSONID, domain.StatusFail, "specs.json is not valid JSON")
	case err != nil:
		return domain.CheckResult{}, err
	}

	f := newFindings()
	for _, v := range violations {
		f.fail("schema: %s", v)
	}

	var file SpecsFile
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		// Valid JSON of the wrong shape; the schema errors above already say why.
		f.set("specCount", 0)
		return f.result(SpecsJSONID, "specs.json")
	}
	f.set("specCount", len(file.Specs))
	if len(violations) == 0 {
		f.ok("specs.json matches the expected structure")
	}

	outputs := map[string]int{}
	for i, spec := range file.Specs {
		label := specLabel(i, spec)
		if spec.Title == "" {
			f.warn("%s has no title", label)
		}
		if spec.Logo == "" {
			f.warn("%s has no logo", label)
		}
		if spec.Favicon == "" {
			f.warn("%s has no favicon", label)
		}
		if spec.OutputPath != "" {
			out := cleanJoin(spec.OutputPath)
			if prev, dup := outputs[out]; dup {
				f.fail("%s writes to output_path %q already used by spec #%d", label, spec.OutputPath, prev+1)
			}
			outputs[out] = i
		}
		seen := map[string]bool{}
		for _, ext := range spec.ExternalSpecs {
			if ext.ExternalSpec == "" {
				continue
			}
			if seen[ext.ExternalSpec] {
				f.warn("%s declares external spec %q more than once", label, ext.ExternalSpec)
			}
			seen[ext.ExternalSpec] = true
			if ext.GHPage == "" && ext.URL == "" {
				f.warn("external spec %q in %s has neither gh_page nor url", ext.ExternalSpec, label)
			}
		}
	}
	return f.result(SpecsJSONID, "specs.json")
}

// specLabel names a spec in messages: its title when set, else its position.
func specLabel(i int, spec Spec) string {
	if spec.Title != "" {
		return "spec \"" + spec.Title + "\""
	}
	return "spec #" + strconv.Itoa(i+1)
}
