package checks

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/doeshing/spechealth/assets"
	"github.com/doeshing/spechealth/internal/ports"
)

const (
	packageJSONPath = "package.json"
	specsJSONPath   = "specs.json"
	gitignorePath   = ".gitignore"
	termsIntroFile  = "terms-and-definitions-intro.md"
)

// SpecsFile mirrors specs.json.
type SpecsFile struct {
	Specs []Spec `json:"specs"`
}

// Spec is one entry of specs.json.
type Spec struct {
	Title              string         `json:"title"`
	SpecDirectory      string         `json:"spec_directory"`
	SpecTermsDirectory string         `json:"spec_terms_directory"`
	OutputPath         string         `json:"output_path"`
	MarkdownPaths      []string       `json:"markdown_paths"`
	Logo               string         `json:"logo"`
	Favicon            string         `json:"favicon"`
	Source             SpecSource     `json:"source"`
	ExternalSpecs      []ExternalSpec `json:"external_specs"`
}

// SpecSource names the repository a spec is published from.
type SpecSource struct {
	Host    string `json:"host"`
	Account string `json:"account"`
	Repo    string `json:"repo"`
}

// ExternalSpec is a spec whose terms may be cross-referenced.
type ExternalSpec struct {
	ExternalSpec string `json:"external_spec"`
	GHPage       string `json:"gh_page"`
	URL          string `json:"url"`
	TermsDir     string `json:"terms_dir"`
}

// TermsDirectory is the repository-relative terms directory of the spec.
func (s Spec) TermsDirectory() string {
	if s.SpecTermsDirectory == "" {
		return ""
	}
	return cleanJoin(s.SpecDirectory, s.SpecTermsDirectory)
}

var errSpecsUnavailable = errors.New("specs.json is missing or unreadable")

// loadSpecs reads and decodes specs.json. Content problems are reported by
// the specs-json check; dependants only need to know whether it is usable.
func loadSpecs(ctx context.Context, p ports.Provider) (SpecsFile, error) {
	exists, err := p.FileExists(ctx, specsJSONPath)
	if err != nil {
		return SpecsFile{}, err
	}
	if !exists {
		return SpecsFile{}, errSpecsUnavailable
	}
	raw, err := p.ReadFile(ctx, specsJSONPath)
	if err != nil {
		return SpecsFile{}, err
	}
	var file SpecsFile
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return SpecsFile{}, errors.Mark(errors.Wrap(err, "decode specs.json"), errSpecsUnavailable)
	}
	return file, nil
}

// cleanJoin joins repository paths, dropping leading "./" and trailing "/".
func cleanJoin(elem ...string) string {
	joined := path.Join(elem...)
	if joined == "." {
		return ""
	}
	return strings.TrimPrefix(joined, "./")
}

type schemaSet struct {
	once  sync.Once
	err   error
	pkg   *gojsonschema.Schema
	specs *gojsonschema.Schema
}

var schemas schemaSet

func (s *schemaSet) load() error {
	s.once.Do(func() {
		s.pkg, s.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(assets.PackageJSONSchema))
		if s.err != nil {
			s.err = errors.Wrap(s.err, "compile package.json schema")
			return
		}
		s.specs, s.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(assets.SpecsJSONSchema))
		if s.err != nil {
			s.err = errors.Wrap(s.err, "compile specs.json schema")
		}
	})
	return s.err
}

// validateDocument returns one message per schema violation. A document that
// is not JSON at all yields errNotJSON.
func validateDocument(schema *gojsonschema.Schema, raw string) ([]string, error) {
	if !json.Valid([]byte(raw)) {
		return nil, errNotJSON
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "validate document")
	}
	if result.Valid() {
		return nil, nil
	}
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return messages, nil
}

var errNotJSON = errors.New("document is not valid JSON")

func isSpecsUnavailable(err error) bool {
	return errors.Is(err, errSpecsUnavailable)
}
