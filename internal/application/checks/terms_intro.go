package checks

import (
	"context"
	"strings"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

func termsIntroPlugin() registry.Plugin {
	return registry.Plugin{
		Name: TermsIntroID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:           TermsIntroID,
				Name:         "Terms intro",
				Description:  "Checks that each spec has a non-empty terms-and-definitions-intro.md.",
				Check:        checkTermsIntro,
				Category:     domain.CategoryContent,
				Priority:     registry.Priority(50),
				Dependencies: []string{SpecsJSONID},
			}, nil
		},
	}
}

func checkTermsIntro(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	specs, err := loadSpecs(ctx, p)
	if err != nil {
		return skipWithoutSpecs(TermsIntroID, err)
	}

	f := newFindings()
	for i, spec := range specs.Specs {
		label := specLabel(i, spec)
		file := cleanJoin(spec.SpecDirectory, termsIntroFile)
		exists, err := p.FileExists(ctx, file)
		if err != nil {
			return domain.CheckResult{}, err
		}
		if !exists {
			f.fail("%s: %s not found", label, file)
			continue
		}
		content, err := p.ReadFile(ctx, file)
		if err != nil {
			return domain.CheckResult{}, err
		}
		if strings.TrimSpace(content) == "" {
			f.warn("%s: %s is empty", label, file)
			continue
		}
		f.ok("%s: %s found", label, file)
	}
	return f.result(TermsIntroID, "terms intro")
}
