package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// DefaultPEPURL is used when a document's settings carry no pep_url.
const DefaultPEPURL = "pep-%04d.html"

var explicitTitle = regexp.MustCompile(`^(.+?)\s*<([^<>]+)>$`)

// PEPRole resolves :pep:`8`, :pep:`8#section` and :pep:`Title <8>`.
type PEPRole struct{}

func (PEPRole) Resolve(rc host.RoleContext, _ string, text string) (ast.Node, error) {
	title, target := "", strings.TrimSpace(text)
	if m := explicitTitle.FindStringSubmatch(target); m != nil {
		title, target = m[1], strings.TrimSpace(m[2])
	}
	numText, anchor, _ := strings.Cut(target, "#")
	n, err := strconv.Atoi(numText)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid PEP number %q in :pep: role", numText)
	}
	if title == "" {
		title = fmt.Sprintf("PEP %d", n)
	}
	uri := PEPURL(rc.Settings, n)
	if anchor != "" {
		uri += "#" + anchor
	}
	return inline.NewReference(title, uri), nil
}

// PEPURL formats the URL of PEP n using the pep_url template of s.
func PEPURL(s *settings.Settings, n int) string {
	tmpl := DefaultPEPURL
	if s != nil {
		if t := s.String(settings.KeyPEPURL); t != "" {
			tmpl = t
		}
	}
	return fmt.Sprintf(tmpl, n)
}
