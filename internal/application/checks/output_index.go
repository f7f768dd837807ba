package checks

import (
	"context"
	"strings"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

func outputIndexPlugin() registry.Plugin {
	return registry.Plugin{
		Name: OutputIndexID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:          OutputIndexID,
				Name:        "Rendered output",
				Description: "Checks that each spec's output_path holds a rendered index.html.",
				Check:       checkOutputIndex,
				Category:    domain.CategoryOutput,
				Priority:    registry.Priority(90),
			}, nil
		},
	}
}

func checkOutputIndex(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	specs, err := loadSpecs(ctx, p)
	if err != nil {
		return skipWithoutSpecs(OutputIndexID, err)
	}

	f := newFindings()
	rendered := 0
	for i, spec := range specs.Specs {
		label := specLabel(i, spec)
		index := cleanJoin(spec.OutputPath, "index.html")
		exists, err := p.FileExists(ctx, index)
		if err != nil {
			return domain.CheckResult{}, err
		}
		if !exists {
			continue
		}
		rendered++
		content, err := p.ReadFile(ctx, index)
		if err != nil {
			return domain.CheckResult{}, err
		}
		switch {
		case strings.TrimSpace(content) == "":
			f.fail("%s: %s is empty", label, index)
		case !strings.Contains(strings.ToLower(content), "<html"):
			f.warn("%s: %s does not look like an HTML document", label, index)
		default:
			f.ok("%s: %s rendered", label, index)
		}
	}
	f.set("rendered", rendered)
	if rendered == 0 {
		return single(OutputIndexID, domain.StatusSkip, "no rendered output found; run the render script first")
	}
	if rendered < len(specs.Specs) {
		f.warn("%d of %d spec(s) have no rendered index.html", len(specs.Specs)-rendered, len(specs.Specs))
	}
	return f.result(OutputIndexID, "rendered output")
}
