package checks

import (
	"context"
	"strings"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

func specDirectoryPlugin() registry.Plugin {
	return registry.Plugin{
		Name: SpecDirectoryID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:           SpecDirectoryID,
				Name:         "Spec directory",
				Description:  "Checks that every spec directory and markdown file named in specs.json exists.",
				Check:        checkSpecDirectory,
				Category:     domain.CategoryContent,
				Priority:     registry.Priority(40),
				Dependencies: []string{SpecsJSONID},
			}, nil
		},
	}
}

func checkSpecDirectory(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	specs, err := loadSpecs(ctx, p)
	if err != nil {
		return skipWithoutSpecs(SpecDirectoryID, err)
	}

	f := newFindings()
	markdownCount := 0
	for i, spec := range specs.Specs {
		label := specLabel(i, spec)
		dir := cleanJoin(spec.SpecDirectory)
		if dir == "" {
			f.fail("%s: spec_directory is empty", label)
			continue
		}
		ok, err := p.DirectoryExists(ctx, dir)
		if err != nil {
			return domain.CheckResult{}, err
		}
		if !ok {
			f.fail("%s: spec directory %q does not exist", label, spec.SpecDirectory)
			continue
		}
		f.ok("%s: spec directory %s exists", label, dir)

		listed := map[string]bool{}
		for _, md := range spec.MarkdownPaths {
			file := cleanJoin(dir, md)
			listed[file] = true
			exists, err := p.FileExists(ctx, file)
			if err != nil {
				return domain.CheckResult{}, err
			}
			if !exists {
				f.fail("%s: markdown file %s does not exist", label, file)
				continue
			}
			markdownCount++
		}

		entries, err := p.ListFiles(ctx, dir)
		if err != nil {
			return domain.CheckResult{}, err
		}
		for _, entry := range entries {
			if entry.IsFile && strings.HasSuffix(entry.Name, ".md") && !listed[entry.Path] {
				f.warn("%s: %s is not listed in markdown_paths", label, entry.Path)
			}
		}

		if terms := spec.TermsDirectory(); terms != "" {
			ok, err := p.DirectoryExists(ctx, terms)
			if err != nil {
				return domain.CheckResult{}, err
			}
			if !ok {
				f.warn("%s: terms directory %s does not exist", label, terms)
			}
		}
	}
	f.set("markdownFiles", markdownCount)
	return f.result(SpecDirectoryID, "spec directory")
}

// skipWithoutSpecs is the result of a check that needs a readable specs.json.
// Provider failures other than a missing or malformed file are passed on.
func skipWithoutSpecs(id string, err error) (domain.CheckResult, error) {
	if isSpecsUnavailable(err) {
		return single(id, domain.StatusSkip, "specs.json is missing or invalid; see the specs-json check")
	}
	return domain.CheckResult{}, err
}
