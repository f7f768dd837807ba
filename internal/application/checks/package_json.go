package checks

import (
	"context"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-version"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

const (
	specUpPackage        = "spec-up-t"
	specUpMinimumVersion = ">= 1.0.0"
)

// recommendedScripts are the npm scripts the spec-up-t starter pack ships.
var recommendedScripts = []string{"edit", "render", "dev"}

var specUpConstraint = version.MustConstraints(version.NewConstraint(specUpMinimumVersion))

func packageJSONPlugin() registry.Plugin {
	return registry.Plugin{
		Name: PackageJSONID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:          PackageJSONID,
				Name:        "package.json",
				Description: "Checks that package.json exists, matches the expected shape and depends on spec-up-t.",
				Check:       checkPackageJSON,
				Category:    domain.CategoryConfiguration,
				Priority:    registry.Priority(10),
			}, nil
		},
	}
}

func checkPackageJSON(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	exists, err := p.FileExists(ctx, packageJSONPath)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if !exists {
		return single(PackageJSONID, domain.StatusFail, "package.json not found in repository root")
	}
	raw, err := p.ReadFile(ctx, packageJSONPath)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if err := schemas.load(); err != nil {
		return domain.CheckResult{}, err
	}

	f := newFindings()
	violations, err := validateDocument(schemas.pkg, raw)
	switch {
	case errors.Is(err, errNotJSON):
		return single(PackageJSONID, domain.StatusFail, "package.json is not valid JSON")
	case err != nil:
		return domain.CheckResult{}, err
	}
	for _, v := range violations {
		f.fail("schema: %s", v)
	}
	if len(violations) == 0 {
		f.ok("package.json matches the expected structure")
	}

	data := []byte(raw)
	checkSpecUpDependency(data, f)

	for _, script := range recommendedScripts {
		if _, err := jsonparser.GetString(data, "scripts", script); err != nil {
			f.warn("missing recommended script %q", script)
			continue
		}
		f.ok("script %q is defined", script)
	}
	return f.result(PackageJSONID, "package.json")
}

func checkSpecUpDependency(data []byte, f *findings) {
	declared, err := jsonparser.GetString(data, "dependencies", specUpPackage)
	if err != nil {
		if dev, devErr := jsonparser.GetString(data, "devDependencies", specUpPackage); devErr == nil {
			f.warn("%s is listed in devDependencies (%s); move it to dependencies", specUpPackage, dev)
			return
		}
		f.fail("%s is not listed in dependencies", specUpPackage)
		return
	}
	f.set("specUpVersion", declared)

	v, ok := lowestVersion(declared)
	if !ok {
		f.warn("cannot determine the %s version from %q", specUpPackage, declared)
		return
	}
	if !specUpConstraint.Check(v) {
		f.warn("%s %s does not satisfy %s", specUpPackage, v, specUpMinimumVersion)
		return
	}
	f.ok("%s %s is declared", specUpPackage, declared)
}

// lowestVersion extracts the version an npm range starts from, e.g. "^1.2.3"
// gives 1.2.3. Tags, URLs and file references are not versions.
func lowestVersion(declared string) (*version.Version, bool) {
	s := strings.TrimSpace(declared)
	if i := strings.IndexAny(s, " |"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "^~>=v")
	s = strings.ReplaceAll(s, ".x", ".0")
	s = strings.ReplaceAll(s, ".*", ".0")
	if s == "" {
		return nil, false
	}
	v, err := version.NewVersion(s)
	if err != nil {
		return nil, false
	}
	return v, true
}
