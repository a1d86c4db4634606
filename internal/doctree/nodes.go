// Package doctree defines the document nodes pepbuilder adds on top of the
// goldmark AST, together with their default HTML rendering.
package doctree

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
)

var (
	KindMathInline = ast.NewNodeKind("MathInline")
	KindMathBlock  = ast.NewNodeKind("MathBlock")
	KindFieldList  = ast.NewNodeKind("FieldList")
	KindField      = ast.NewNodeKind("Field")
	KindBanner     = ast.NewNodeKind("Banner")
	KindContents   = ast.NewNodeKind("Contents")
	KindFooter     = ast.NewNodeKind("Footer")
	KindAbbr       = ast.NewNodeKind("Abbr")
)

// MathInline is LaTeX source produced by the math role.
type MathInline struct {
	ast.BaseInline
	Literal []byte
}

// NewMathInline returns an inline math node for literal.
func NewMathInline(literal []byte) *MathInline {
	return &MathInline{Literal: literal}
}

func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Literal": string(n.Literal)}, nil)
}

// MathBlock is display math produced from a fenced "math" block.
type MathBlock struct {
	ast.BaseBlock
	Literal []byte
}

// NewMathBlock returns a display math node for literal.
func NewMathBlock(literal []byte) *MathBlock {
	return &MathBlock{Literal: literal}
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Literal": string(n.Literal)}, nil)
}

// FieldList is a definition list of Field children, used for the PEP header table.
type FieldList struct {
	ast.BaseBlock
	Class string
}

// NewFieldList returns an empty field list rendered with the given CSS class.
func NewFieldList(class string) *FieldList {
	return &FieldList{Class: class}
}

func (n *FieldList) Kind() ast.NodeKind { return KindFieldList }

func (n *FieldList) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Class": n.Class}, nil)
}

// Field is a named entry of a FieldList. Its children are inline nodes.
type Field struct {
	ast.BaseBlock
	Name string
}

// NewField returns a field named name.
func NewField(name string) *Field {
	return &Field{Name: name}
}

func (n *Field) Kind() ast.NodeKind { return KindField }

func (n *Field) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

// Banner is an admonition shown above the document body. Its children are inline nodes.
type Banner struct {
	ast.BaseBlock
	Class string
}

// NewBanner returns a banner rendered with the given CSS class.
func NewBanner(class string) *Banner {
	return &Banner{Class: class}
}

func (n *Banner) Kind() ast.NodeKind { return KindBanner }

func (n *Banner) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Class": n.Class}, nil)
}

// ContentsEntry is a single heading listed in a Contents node.
type ContentsEntry struct {
	Level int
	ID    string
	Title string
}

// Contents is a table of contents built from the document headings.
type Contents struct {
	ast.BaseBlock
	Entries []ContentsEntry
}

// NewContents returns a contents node listing entries.
func NewContents(entries []ContentsEntry) *Contents {
	return &Contents{Entries: entries}
}

func (n *Contents) Kind() ast.NodeKind { return KindContents }

func (n *Contents) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Entries": strconv.Itoa(len(n.Entries))}, nil)
}

// Footer carries the source link and last-modified information of a document.
type Footer struct {
	ast.BaseBlock
	SourceURL    string
	HistoryURL   string
	LastModified string
}

func (n *Footer) Kind() ast.NodeKind { return KindFooter }

func (n *Footer) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"SourceURL":    n.SourceURL,
		"LastModified": n.LastModified,
	}, nil)
}

// Abbr is an abbreviation whose expansion is shown on hover.
type Abbr struct {
	ast.BaseInline
	Label string
	Title string
}

// NewAbbr returns an abbreviation node.
func NewAbbr(label, title string) *Abbr {
	return &Abbr{Label: label, Title: title}
}

func (n *Abbr) Kind() ast.NodeKind { return KindAbbr }

func (n *Abbr) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Label": n.Label, "Title": n.Title}, nil)
}
