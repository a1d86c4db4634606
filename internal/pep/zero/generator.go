package zero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// Docname is the docname of the generated index.
const Docname = "pep-0000"

// APIPath is where the JSON index is written, relative to the output dir.
const APIPath = "api/peps.json"

// DefaultCanonicalURL prefixes the "url" field of api/peps.json entries.
const DefaultCanonicalURL = "https://peps.python.org/"

// Generator writes PEP 0 and api/peps.json.
type Generator struct {
	CanonicalURL string
}

// NewGenerator returns a generator using DefaultCanonicalURL.
func NewGenerator() *Generator {
	return &Generator{CanonicalURL: DefaultCanonicalURL}
}

// Result reports what Generate did.
type Result struct {
	PEPs []*PEP
	// Path of the PEP 0 source.
	Path string
	// Changed is false when the existing PEP 0 source was already current.
	Changed bool
}

// Collect reads and validates the header of every PEP source in srcDir
// except PEP 0, sorted by number.
func Collect(srcDir string) ([]*PEP, error) {
	matches, err := filepath.Glob(filepath.Join(srcDir, "pep-[0-9][0-9][0-9][0-9]"+parsing.Suffix))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "invalid source glob").Build()
	}
	seen := map[int]string{}
	var peps []*PEP
	for _, path := range matches {
		if filepath.Base(path) == Docname+parsing.Suffix {
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot read PEP").
				WithContext("path", path).
				Build()
		}
		headers, _, err := parsing.SplitHeaders(src)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryParse, "invalid PEP preamble").
				WithContext("file", filepath.Base(path)).
				Build()
		}
		p, err := NewPEP(path, headers)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p.Number]; dup {
			return nil, errors.ValidationError("duplicate PEP number").
				WithContext("pep", p.Number).
				WithContext("file", p.Filename).
				WithContext("previous", prev).
				Build()
		}
		seen[p.Number] = p.Filename
		peps = append(peps, p)
	}
	sort.Slice(peps, func(i, j int) bool { return peps[i].Number < peps[j].Number })
	return peps, nil
}

// Generate writes PEP 0 into srcDir, skipping the write when the content is
// unchanged, and api/peps.json into outDir when outDir is not empty.
func (g *Generator) Generate(srcDir, outDir string) (*Result, error) {
	peps, err := Collect(srcDir)
	if err != nil {
		return nil, err
	}
	content, err := Render(peps)
	if err != nil {
		return nil, err
	}

	res := &Result{PEPs: peps, Path: filepath.Join(srcDir, Docname+parsing.Suffix)}
	existing, err := os.ReadFile(res.Path)
	if err != nil || !bytes.Equal(existing, []byte(content)) {
		if err := os.WriteFile(res.Path, []byte(content), 0o644); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot write PEP 0").
				WithContext("path", res.Path).
				Build()
		}
		res.Changed = true
	}

	if outDir != "" {
		if err := g.writeAPI(outDir, peps); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Handle is the env-before-read-docs callback: it regenerates PEP 0 and adds
// it to the environment.
// A pep_canonical_url default setting replaces the generator's CanonicalURL.
func (g *Generator) Handle(_ context.Context, app *host.Application, env *host.Environment) error {
	gen := *g
	if u := settings.Defaults().String(settings.KeyCanonicalURL); u != "" {
		gen.CanonicalURL = u
	}
	res, err := gen.Generate(app.SrcDir(), app.OutDir())
	if err != nil {
		return err
	}
	env.AddSource(Docname, res.Path)
	app.Logger().Info("Generated PEP 0", logfields.Count(len(res.PEPs)), "changed", res.Changed)
	return nil
}

type apiEntry struct {
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	Authors       string  `json:"authors"`
	DiscussionsTo *string `json:"discussions_to"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Topic         string  `json:"topic"`
	Created       string  `json:"created"`
	PythonVersion *string `json:"python_version"`
	PostHistory   *string `json:"post_history"`
	Resolution    *string `json:"resolution"`
	Requires      *string `json:"requires"`
	Replaces      *string `json:"replaces"`
	SupersededBy  *string `json:"superseded_by"`
	URL           string  `json:"url"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (g *Generator) entry(p *PEP) apiEntry {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	return apiEntry{
		Number:        p.Number,
		Title:         p.Title,
		Authors:       strings.Join(names, ", "),
		DiscussionsTo: optional(p.DiscussionsTo),
		Status:        p.Status,
		Type:          p.Type,
		Topic:         p.Topic,
		Created:       p.Created,
		PythonVersion: optional(p.PythonVersion),
		PostHistory:   optional(p.PostHistory),
		Resolution:    optional(p.Resolution),
		Requires:      optional(p.Requires),
		Replaces:      optional(p.Replaces),
		SupersededBy:  optional(p.SupersededBy),
		URL:           fmt.Sprintf("%spep-%04d/", g.CanonicalURL, p.Number),
	}
}

func (g *Generator) writeAPI(outDir string, peps []*PEP) error {
	entries := make(map[string]apiEntry, len(peps))
	for _, p := range peps {
		entries[strconv.Itoa(p.Number)] = g.entry(p)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "cannot encode PEP index").Build()
	}
	path := filepath.Join(outDir, filepath.FromSlash(APIPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot create api directory").
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot write PEP index").
			WithContext("path", path).
			Build()
	}
	return nil
}
