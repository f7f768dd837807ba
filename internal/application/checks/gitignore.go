package checks

import (
	"bufio"
	"context"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

// ignoreTarget is a path whose ignore status is asked of the rules. Sample
// is a representative path, so "*.log" is asked as "npm-debug.log".
type ignoreTarget struct {
	label  string
	sample string
	dir    bool
}

var (
	requiredIgnores = []ignoreTarget{
		{label: "node_modules", sample: "node_modules", dir: true},
		{label: ".env", sample: ".env"},
	}
	recommendedIgnores = []ignoreTarget{
		{label: ".DS_Store", sample: ".DS_Store"},
		{label: "*.log", sample: "npm-debug.log"},
	}
)

func gitignorePlugin() registry.Plugin {
	return registry.Plugin{
		Name: GitignoreID,
		Load: func() (registry.Registration, error) {
			return registry.Registration{
				ID:          GitignoreID,
				Name:        ".gitignore",
				Description: "Checks that generated and secret files are ignored and sources are not.",
				Check:       checkGitignore,
				Category:    domain.CategoryConfiguration,
				Priority:    registry.Priority(30),
			}, nil
		},
	}
}

func checkGitignore(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
	exists, err := p.FileExists(ctx, gitignorePath)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if !exists {
		return single(GitignoreID, domain.StatusFail, ".gitignore not found in repository root")
	}
	raw, err := p.ReadFile(ctx, gitignorePath)
	if err != nil {
		return domain.CheckResult{}, err
	}

	rules := parseGitignore(raw)
	f := newFindings()
	f.set("patternCount", rules.count)

	for _, want := range requiredIgnores {
		if rules.ignored(want.sample, want.dir) {
			f.ok("%s is ignored", want.label)
		} else {
			f.fail("%s is not ignored", want.label)
		}
	}
	for _, want := range recommendedIgnores {
		if !rules.ignored(want.sample, want.dir) {
			f.warn("consider ignoring %s", want.label)
		}
	}

	// The spec sources must be committed; generated output usually is not.
	specs, err := loadSpecs(ctx, p)
	if err == nil {
		for _, spec := range specs.Specs {
			if dir := cleanJoin(spec.SpecDirectory); dir != "" && rules.matches(dir, true) {
				f.fail("spec directory %s is ignored", dir)
			}
			if out := cleanJoin(spec.OutputPath); out != "" && !rules.ignored(out, true) {
				f.warn("output directory %s is not ignored", out)
			}
		}
	}
	if rules.matches(specsJSONPath, false) {
		f.fail("%s is ignored", specsJSONPath)
	}
	return f.result(GitignoreID, ".gitignore")
}

// gitignoreRules answers ignore questions with git's own matching rules,
// negations and "**" included.
type gitignoreRules struct {
	matcher gitignore.Matcher
	count   int
}

func parseGitignore(raw string) gitignoreRules {
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return gitignoreRules{matcher: gitignore.NewMatcher(patterns), count: len(patterns)}
}

// matches reports whether the rules match path itself.
func (r gitignoreRules) matches(path string, isDir bool) bool {
	return r.matcher.Match(strings.Split(path, "/"), isDir)
}

// ignored also treats a directory as ignored when its contents are, which is
// what "node_modules/**" means in practice.
func (r gitignoreRules) ignored(path string, isDir bool) bool {
	if r.matches(path, isDir) {
		return true
	}
	return isDir && r.matches(path+"/index.html", false)
}
