// Package linkcheck verifies that links between rendered pages resolve to
// files and anchors present in the output directory.
package linkcheck

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL        string // The URL or path
	Text       string // Link text/title
	Tag        string // HTML tag (a, img, script, link)
	Attribute  string // Attribute containing the link (href, src)
	IsInternal bool   // True if link is internal to the site
	Line       int    // Approximate element index in the page
}

// Page is the link-relevant content of one HTML file.
type Page struct {
	Links []*Link
	// IDs holds every id and a[name] value on the page.
	IDs map[string]struct{}
}

// HasAnchor reports whether id is defined on the page.
func (p *Page) HasAnchor(id string) bool {
	_, ok := p.IDs[id]
	return ok
}

// ExtractPage parses the HTML file at htmlPath.
func ExtractPage(htmlPath string, baseURL string) (*Page, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithContext("html_path", htmlPath).
			Build()
	}
	defer func() {
		_ = file.Close()
	}()

	return ExtractPageFromReader(file, baseURL)
}

// ExtractPageFromReader parses HTML from r.
func ExtractPageFromReader(r io.Reader, baseURL string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid base URL").
			WithContext("base_url", baseURL).
			Build()
	}

	page := &Page{IDs: make(map[string]struct{})}
	var lineNum int

	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			lineNum++
			if id := getAttr(n, "id"); id != "" {
				page.IDs[id] = struct{}{}
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					page.IDs[name] = struct{}{}
				}
			}
			if link := elementLink(n, base, lineNum); link != nil {
				page.Links = append(page.Links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(doc)
	return page, nil
}

func elementLink(n *html.Node, base *url.URL, lineNum int) *Link {
	var attr, text string
	switch n.Data {
	case "a":
		attr, text = "href", extractText(n)
	case "link":
		attr, text = "href", getAttr(n, "rel")
	case "img":
		attr, text = "src", getAttr(n, "alt")
	case "script":
		attr = "src"
	default:
		return nil
	}
	target := getAttr(n, attr)
	if target == "" {
		return nil
	}
	return &Link{
		URL:        target,
		Text:       text,
		Tag:        n.Data,
		Attribute:  attr,
		IsInternal: isInternalLink(target, base),
		Line:       lineNum,
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// isInternalLink determines if a URL points into the rendered site.
func isInternalLink(linkURL string, baseURL *url.URL) bool {
	if strings.HasPrefix(linkURL, "#") {
		return true
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return true
	}
	return baseURL != nil && baseURL.Host != "" && u.Host == baseURL.Host
}

// ShouldVerifyLink reports whether link is worth resolving against the output.
func ShouldVerifyLink(link *Link) bool {
	if link.URL == "" || !link.IsInternal {
		return false
	}
	u, err := url.Parse(link.URL)
	if err != nil {
		return true
	}
	// peps.json is written by the index generator, which may run on its own.
	return !strings.HasSuffix(u.Path, ".json")
}
