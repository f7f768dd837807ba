package checks

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

var (
	defPattern  = regexp.MustCompile(`\[\[def:\s*([^\]]+?)\s*\]\]`)
	refPattern  = regexp.MustCompile(`\[\[ref:\s*([^\]]+?)\s*\]\]`)
	xrefPattern = regexp.MustCompile(`\[\[(?:xref|tref):\s*([^,\]]+?)\s*,\s*([^,\]]+?)\s*(?:,[^\]]*)?\]\]`)
)

func termReferencesPlugin() registry.Plugin {
	return registry.Plugin{
		Name: TermReferencesID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:           TermReferencesID,
				Name:         "Term references",
				Description:  "Checks that [[ref]] targets are defined and [[xref]] targets name a declared external spec.",
				Check:        checkTermReferences,
				Category:     domain.CategoryContent,
				Priority:     registry.Priority(60),
				Dependencies: []string{SpecsJSONID},
			}, nil
		},
	}
}

// termIndex is what one spec's markdown defines and references.
type termIndex struct {
	defined map[string]int
	refs    map[string][]string
	xrefs   map[string][]string
}

func newTermIndex() termIndex {
	return termIndex{
		defined: map[string]int{},
		refs:    map[string][]string{},
		xrefs:   map[string][]string{},
	}
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// scan records the markup found in one file.
func (idx termIndex) scan(file, content string) {
	for _, m := range defPattern.FindAllStringSubmatch(content, -1) {
		for _, alias := range strings.Split(m[1], ",") {
			if term := normalizeTerm(alias); term != "" {
				idx.defined[term]++
			}
		}
	}
	for _, m := range refPattern.FindAllStringSubmatch(content, -1) {
		term := normalizeTerm(m[1])
		idx.refs[term] = append(idx.refs[term], file)
	}
	for _, m := range xrefPattern.FindAllStringSubmatch(content, -1) {
		spec := strings.TrimSpace(m[1])
		idx.xrefs[spec] = append(idx.xrefs[spec], file)
	}
}

func checkTermReferences(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	specs, err := loadSpecs(ctx, p)
	if err != nil {
		return skipWithoutSpecs(TermReferencesID, err)
	}

	f := newFindings()
	scanned, defs, refs, xrefs := 0, 0, 0, 0
	for i, spec := range specs.Specs {
		label := specLabel(i, spec)
		files, err := markdownSources(ctx, p, spec)
		if err != nil {
			return domain.CheckResult{}, err
		}

		idx := newTermIndex()
		for _, file := range files {
			content, err := p.ReadFile(ctx, file)
			if err != nil {
				return domain.CheckResult{}, err
			}
			idx.scan(file, content)
			scanned++
		}
		defs += len(idx.defined)

		for _, term := range sortedKeys(idx.defined) {
			if idx.defined[term] > 1 {
				f.warn("%s: term %q is defined %d times", label, term, idx.defined[term])
			}
		}
		for _, term := range sortedKeys(idx.refs) {
			refs += len(idx.refs[term])
			if _, ok := idx.defined[term]; !ok {
				f.warn("%s: [[ref: %s]] has no matching definition (%s)", label, term, strings.Join(lo.Uniq(idx.refs[term]), ", "))
			}
		}

		declared := lo.SliceToMap(spec.ExternalSpecs, func(e ExternalSpec) (string, bool) {
			return e.ExternalSpec, true
		})
		for _, ext := range sortedKeys(idx.xrefs) {
			xrefs += len(idx.xrefs[ext])
			if !declared[ext] {
				f.fail("%s: cross-reference to undeclared external spec %q (%s)", label, ext, strings.Join(lo.Uniq(idx.xrefs[ext]), ", "))
			}
		}
	}

	f.set("filesScanned", scanned)
	f.set("definitions", defs)
	f.set("references", refs)
	f.set("crossReferences", xrefs)
	if scanned == 0 {
		f.skipped = true
		f.ok("no markdown files to scan")
	} else if len(f.errors)+len(f.warnings) == 0 {
		f.ok("%d reference(s) and %d cross-reference(s) resolved", refs, xrefs)
	}
	return f.result(TermReferencesID, "term references")
}

// markdownSources lists the existing markdown files of a spec: the ones named
// in markdown_paths plus every .md file in its terms directory.
func markdownSources(ctx context.Context, p ports.Provider, spec Spec) ([]string, error) {
	var files []string
	for _, md := range spec.MarkdownPaths {
		file := cleanJoin(spec.SpecDirectory, md)
		ok, err := p.FileExists(ctx, file)
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, file)
		}
	}
	if terms := spec.TermsDirectory(); terms != "" {
		ok, err := p.DirectoryExists(ctx, terms)
		if err != nil {
			return nil, err
		}
		if ok {
			entries, err := p.ListFiles(ctx, terms)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.IsFile && strings.HasSuffix(entry.Name, ".md") {
					files = append(files, entry.Path)
				}
			}
		}
	}
	return lo.Uniq(files), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
