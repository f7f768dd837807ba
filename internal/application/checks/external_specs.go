package checks

import (
	"context"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

// probeConcurrency bounds in-flight probes per check run; the prober applies
// its own rate limit on top.
const probeConcurrency = 4

func externalSpecsPlugin(deps Deps) registry.Plugin {
	return registry.Plugin{
		Name: ExternalSpecsID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:          ExternalSpecsID,
				Name:        "External specs",
				Description: "Checks that external spec URLs are well formed and reachable.",
				Check:       externalSpecsCheck(deps),
				Category:    domain.CategoryExternal,
				Priority:    registry.Priority(80),
			}, nil
		},
	}
}

type externalURL struct {
	spec  string
	field string
	url   string
}

func externalSpecsCheck(deps Deps) ports.CheckFunc {
	return func(ctx context.Context, p ports.Provider, opts ports.CheckOptions) (domain.CheckResult, error) {
		specs, err := loadSpecs(ctx, p)
		if err != nil {
			return skipWithoutSpecs(ExternalSpecsID, err)
		}

		f := newFindings()
		var targets []externalURL
		declared := 0
		for _, spec := range specs.Specs {
			for _, ext := range spec.ExternalSpecs {
				declared++
				for field, raw := range map[string]string{"gh_page": ext.GHPage, "url": ext.URL} {
					if raw == "" {
						continue
					}
					if !wellFormedURL(raw) {
						f.fail("external spec %q: %s %q is not an http(s) URL", ext.ExternalSpec, field, raw)
						continue
					}
					targets = append(targets, externalURL{spec: ext.ExternalSpec, field: field, url: raw})
				}
			}
		}
		f.set("externalSpecs", declared)
		if declared == 0 {
			return single(ExternalSpecsID, domain.StatusSkip, "no external specs declared")
		}
		sort.Slice(targets, func(i, j int) bool {
			if targets[i].spec != targets[j].spec {
				return targets[i].spec < targets[j].spec
			}
			return targets[i].field < targets[j].field
		})

		switch {
		case optionBool(opts, OptionOffline):
			f.ok("offline mode: %d URL(s) not probed", len(targets))
		case deps.Prober == nil:
			f.warn("URL probing is not configured; %d URL(s) not probed", len(targets))
		default:
			if err := probeAll(ctx, deps.Prober, targets, f); err != nil {
				return domain.CheckResult{}, err
			}
		}
		return f.result(ExternalSpecsID, "external specs")
	}
}

// probeAll checks every target and records the outcomes in target order.
func probeAll(ctx context.Context, prober ports.URLProber, targets []externalURL, f *findings) error {
	results := make([]ports.ProbeResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = prober.Probe(gctx, target.url)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cached := 0
	for i, target := range targets {
		res := results[i]
		if res.FromCache {
			cached++
		}
		switch {
		case res.Reachable:
			f.ok("external spec %q: %s is reachable", target.spec, target.url)
		case res.Err != nil:
			f.fail("external spec %q: %s is unreachable: %v", target.spec, target.url, res.Err)
		default:
			f.fail("external spec %q: %s returned HTTP %d", target.spec, target.url, res.StatusCode)
		}
	}
	f.set("probed", len(targets))
	f.set("cached", cached)
	return nil
}

func wellFormedURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
