package linkcheck

import (
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
)

// Reasons reported for broken links.
const (
	ReasonMissingFile   = "missing file"
	ReasonMissingAnchor = "missing anchor"
	ReasonOutsideOutput = "outside output directory"
	ReasonInvalidURL    = "invalid url"
)

// BrokenLink is a link that does not resolve inside the output directory.
type BrokenLink struct {
	Page   string // page path relative to the output directory, slash separated
	URL    string
	Line   int
	Reason string
}

// Report summarizes a check run.
type Report struct {
	Pages    int
	Links    int
	Broken   []BrokenLink
	Duration time.Duration
}

// OK reports whether no broken links were found.
func (r *Report) OK() bool { return len(r.Broken) == 0 }

// Checker resolves internal links of every HTML page under OutDir.
type Checker struct {
	OutDir string
	// BaseURL maps absolute same-host links onto OutDir.
	BaseURL string
	Workers int
	Logger  *slog.Logger
}

// NewChecker returns a Checker for outDir.
func NewChecker(outDir, baseURL string) *Checker {
	return &Checker{OutDir: outDir, BaseURL: baseURL}
}

// Check scans the output directory and reports every broken internal link.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	start := time.Now()
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid base URL").
			WithContext("base_url", c.BaseURL).
			Build()
	}

	files, err := c.htmlFiles()
	if err != nil {
		return nil, err
	}

	pages, err := c.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	report := &Report{Pages: len(pages)}
	for _, rel := range files {
		for _, link := range pages[rel].Links {
			if !ShouldVerifyLink(link) {
				continue
			}
			report.Links++
			if reason := c.resolve(pages, rel, link.URL, base); reason != "" {
				report.Broken = append(report.Broken, BrokenLink{Page: rel, URL: link.URL, Line: link.Line, Reason: reason})
			}
		}
	}
	sort.SliceStable(report.Broken, func(i, j int) bool {
		if report.Broken[i].Page != report.Broken[j].Page {
			return report.Broken[i].Page < report.Broken[j].Page
		}
		return report.Broken[i].Line < report.Broken[j].Line
	})
	report.Duration = time.Since(start)

	logger.Info("Link check completed",
		logfields.Path(c.OutDir),
		slog.Int("pages", report.Pages),
		slog.Int("links", report.Links),
		slog.Int("broken", len(report.Broken)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	for _, b := range report.Broken {
		logger.Warn("Broken link", logfields.Path(b.Page), slog.String("url", b.URL), slog.String("reason", b.Reason))
	}
	return report, nil
}

func (c *Checker) htmlFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(c.OutDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(c.OutDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan output directory").
			WithContext("path", c.OutDir).
			Build()
	}
	sort.Strings(files)
	return files, nil
}

func (c *Checker) extractAll(ctx context.Context, files []string) (map[string]*Page, error) {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var mu sync.Mutex
	pages := make(map[string]*Page, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := ExtractPage(filepath.Join(c.OutDir, filepath.FromSlash(rel)), c.BaseURL)
			if err != nil {
				return err
			}
			mu.Lock()
			pages[rel] = page
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// resolve returns "" when target resolves from the page at rel, otherwise the reason it does not.
func (c *Checker) resolve(pages map[string]*Page, rel, target string, base *url.URL) string {
	u, err := url.Parse(target)
	if err != nil {
		return ReasonInvalidURL
	}

	var p string
	switch {
	case u.Host != "":
		p = strings.TrimPrefix(strings.TrimPrefix(u.Path, strings.TrimSuffix(base.Path, "/")), "/")
	case u.Path == "":
		p = rel
	case strings.HasPrefix(u.Path, "/"):
		p = strings.TrimPrefix(u.Path, "/")
	default:
		p = path.Join(path.Dir(rel), u.Path)
	}
	dirLike := strings.HasSuffix(u.Path, "/") || p == ""
	key := path.Clean(p)
	if key == ".." || strings.HasPrefix(key, "../") {
		return ReasonOutsideOutput
	}
	if key == "." {
		key, dirLike = "", true
	}

	if !dirLike {
		info, err := os.Stat(filepath.Join(c.OutDir, filepath.FromSlash(key)))
		switch {
		case err != nil:
			return ReasonMissingFile
		case info.IsDir():
			dirLike = true
		}
	}
	if dirLike {
		key = path.Join(key, "index.html")
		if _, err := os.Stat(filepath.Join(c.OutDir, filepath.FromSlash(key))); err != nil {
			return ReasonMissingFile
		}
	}

	if u.Fragment == "" {
		return ""
	}
	page, ok := pages[key]
	if !ok {
		// Anchors are only checked on HTML targets.
		return ""
	}
	if !page.HasAnchor(u.Fragment) {
		return ReasonMissingAnchor
	}
	return ""
}
