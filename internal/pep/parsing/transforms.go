package parsing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// FieldListClass is the class of the rendered header table.
const FieldListClass = "rfc2822 field-list simple"

// Headers that are shown elsewhere or carry no information for readers.
var hiddenHeaders = map[string]bool{
	"pep":           true,
	"title":         true,
	"content-type":  true,
	"version":       true,
	"last-modified": true,
}

var bannerStatuses = map[string]bool{
	StatusDeferred:    true,
	StatusRejected:    true,
	StatusSuperseded:  true,
	StatusWithdrawn:   true,
	StatusProvisional: true,
}

type transformer struct {
	s       *settings.Settings
	headers Headers
}

// apply prepends the title, header table, status banner and contents to
// root and appends footer.
func (t transformer) apply(root ast.Node, title string, contents []doctree.ContentsEntry, footer *doctree.Footer) {
	heading := ast.NewHeading(1)
	heading.SetAttributeString("class", []byte("page-title"))
	heading.AppendChild(heading, ast.NewString([]byte(title)))

	prefix := []ast.Node{heading, t.fieldList()}
	if b := t.banner(); b != nil {
		prefix = append(prefix, b)
	}
	if len(contents) > 0 {
		prefix = append(prefix, doctree.NewContents(contents))
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		if first := root.FirstChild(); first != nil {
			root.InsertBefore(root, first, prefix[i])
		} else {
			root.AppendChild(root, prefix[i])
		}
	}
	root.AppendChild(root, footer)
}

func (t transformer) fieldList() *doctree.FieldList {
	fl := doctree.NewFieldList(FieldListClass)
	for _, h := range t.headers {
		if hiddenHeaders[strings.ToLower(h.Name)] {
			continue
		}
		f := doctree.NewField(h.Name)
		t.fieldValue(f, h)
		fl.AppendChild(fl, f)
	}
	return fl
}

func (t transformer) fieldValue(f ast.Node, h Header) {
	switch strings.ToLower(h.Name) {
	case "author", "sponsor", "pep-delegate", "delegate":
		appendText(f, AuthorNames(ParseAuthors(h.Value)))
	case "discussions-to":
		f.AppendChild(f, discussionLink(h.Value, "thread"))
	case "resolution":
		f.AppendChild(f, discussionLink(h.Value, "message"))
	case "post-history":
		t.postHistory(f, h.Value)
	case "requires", "replaces", "superseded-by":
		t.pepLinks(f, h.Value)
	case "status":
		f.AppendChild(f, abbrOrText(h.Value, StatusTitles))
	case "type":
		f.AppendChild(f, abbrOrText(h.Value, TypeTitles))
	default:
		appendText(f, h.Value)
	}
}

func (t transformer) pepLinks(parent ast.Node, value string) {
	for i, item := range SplitList(value) {
		if i > 0 {
			appendText(parent, ", ")
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			appendText(parent, item)
			continue
		}
		parent.AppendChild(parent, inline.NewReference(item, PEPURL(t.s, n)))
	}
}

// postHistory links entries written as [date](url) and keeps plain dates.
func (t transformer) postHistory(parent ast.Node, value string) {
	var items []string
	for _, item := range splitOutsideParens(value) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	for i, item := range items {
		if i > 0 {
			appendText(parent, ", ")
		}
		if strings.HasPrefix(item, "[") {
			if label, rest, ok := strings.Cut(item[1:], "]("); ok && strings.HasSuffix(rest, ")") {
				parent.AppendChild(parent, inline.NewReference(label, strings.TrimSuffix(rest, ")")))
				continue
			}
		}
		appendText(parent, item)
	}
}

func (t transformer) banner() ast.Node {
	status := t.headers.Value("Status")
	if !bannerStatuses[status] {
		return nil
	}
	b := doctree.NewBanner("pep-banner status-" + strings.ToLower(status))
	if status == StatusProvisional {
		appendText(b, "This PEP has been provisionally accepted. Additional feedback may still alter it.")
		return b
	}
	appendText(b, "This PEP has been "+strings.ToLower(status)+".")
	if by := t.headers.Value("Superseded-By"); status == StatusSuperseded && by != "" {
		appendText(b, " See ")
		t.pepLinks(b, by)
		appendText(b, ".")
	}
	return b
}

func abbrOrText(value string, titles map[string]string) ast.Node {
	if title, ok := titles[value]; ok {
		return doctree.NewAbbr(value, title)
	}
	return ast.NewString([]byte(value))
}

func appendText(parent ast.Node, s string) {
	parent.AppendChild(parent, ast.NewString([]byte(s)))
}

// discussionLink links value with a readable label for the Python mailing
// lists and Discourse. kind is "thread" or "message".
func discussionLink(value, kind string) ast.Node {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "://") {
		if strings.Contains(value, "@") {
			return inline.NewReference(value, "mailto:"+value)
		}
		return ast.NewString([]byte(value))
	}
	u, err := url.Parse(value)
	if err != nil {
		return ast.NewString([]byte(value))
	}
	return inline.NewReference(prettyThread(u, kind), value)
}

func prettyThread(u *url.URL, kind string) string {
	switch {
	case u.Host == "discuss.python.org":
		return "Discourse " + kind
	case strings.HasSuffix(u.Host, "mail.python.org"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		list := ""
		switch {
		case len(parts) >= 3 && parts[0] == "archives" && parts[1] == "list":
			list = strings.TrimSuffix(parts[2], "@python.org")
		case len(parts) >= 2 && parts[0] == "pipermail":
			list = parts[1]
		}
		if list != "" {
			return titleListName(list) + " " + kind
		}
	}
	return u.String()
}

func titleListName(list string) string {
	parts := strings.Split(list, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

// collectContents lists the level 2 and deeper headings of root.
func collectContents(root ast.Node, source []byte) []doctree.ContentsEntry {
	var entries []doctree.ContentsEntry
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level >= 2 {
			id, _ := h.AttributeString("id")
			idBytes, _ := id.([]byte)
			entries = append(entries, doctree.ContentsEntry{
				Level: h.Level,
				ID:    string(idBytes),
				Title: nodeText(h, source),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return entries
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
		case *ast.String:
			b.Write(v.Value)
		case *doctree.MathInline:
			b.Write(v.Literal)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
