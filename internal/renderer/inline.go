package renderer

import (
	"strconv"

	"github.com/aymerick/douceur/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wikimark/internal/inline"
	"github.com/conneroisu/wikimark/internal/types"
)

var styleAtoms = map[types.InlineKind]atom.Atom{
	types.InlineBold:          atom.Strong,
	types.InlineItalic:        atom.Em,
	types.InlineStrikethrough: atom.Del,
	types.InlineUnderline:     atom.U,
	types.InlineSuperscript:   atom.Sup,
	types.InlineSubscript:     atom.Sub,
}

func (s *state) inlines(parent *html.Node, nodes []types.InlineNode) {
	for _, n := range nodes {
		parent.AppendChild(s.inline(n))
	}
}

func (s *state) inline(n types.InlineNode) *html.Node {
	if a, ok := styleAtoms[n.Kind]; ok {
		el := element(a)
		s.inlines(el, n.Children)
		return el
	}

	switch n.Kind {
	case types.InlineText:
		return text(n.Text)
	case types.InlineCode:
		code := element(atom.Code, "class", "wm-inline-code")
		code.AppendChild(text(n.Text))
		return code
	case types.InlineColoredText:
		span := element(atom.Span, "style", inlineStyle(decl("color", n.Color)))
		s.inlines(span, n.Children)
		return span
	case types.InlineSizedText:
		span := element(atom.Span,
			"class", "wm-size-"+signed(n.Size),
			"style", inlineStyle(decl("font-size", fontSize(n.Size))),
		)
		s.inlines(span, n.Children)
		return span
	case types.InlineFootnoteRef:
		return s.footnoteRef(n)
	case types.InlineInternalLink:
		a := element(atom.A, "class", "wm-link-internal", "href", s.hooks.LinkHref(n.Target), "title", n.Target)
		a.AppendChild(text(n.Text))
		return a
	case types.InlineExternalLink, types.InlineAutoURL:
		return externalLink(n)
	case types.InlineIcon:
		return icon(n)
	case types.InlineImage:
		return element(atom.Img, "class", "wm-inline-image", "src", s.hooks.ResolveImage(n.Target), "alt", n.Text)
	default:
		return text(n.Raw)
	}
}

// footnoteRef renders [N]. Only the first reference to a number carries the
// fnref id so the back link from the footnote list is unambiguous.
func (s *state) footnoteRef(n types.InlineNode) *html.Node {
	if n.FootnoteNumber <= 0 {
		return text(n.Raw)
	}
	num := strconv.Itoa(n.FootnoteNumber)
	var id string
	if !s.seenRefs[n.FootnoteNumber] {
		s.seenRefs[n.FootnoteNumber] = true
		id = "fnref-" + num
	}
	sup := element(atom.Sup, "class", "wm-footnote-ref", "id", id)
	a := element(atom.A, "href", "#fn-"+num, "title", footnoteTitle(s.doc, n.FootnoteNumber))
	a.AppendChild(text("[" + num + "]"))
	sup.AppendChild(a)
	return sup
}

func footnoteTitle(doc *types.Document, number int) string {
	if doc == nil {
		return ""
	}
	for _, f := range doc.Footnotes {
		if f.Number == number {
			return types.PlainText(f.Inlines)
		}
	}
	return ""
}

// externalLink renders links with a URL scheme. Targets without a known
// scheme stay plain text.
func externalLink(n types.InlineNode) *html.Node {
	if !inline.IsURL(n.Target) {
		return text(n.Raw)
	}
	a := element(atom.A,
		"class", "wm-link-external",
		"href", n.Target,
		"target", "_blank",
		"rel", "noopener noreferrer",
	)
	a.AppendChild(text(n.Text))
	return a
}

func icon(n types.InlineNode) *html.Node {
	var decls []*css.Declaration
	if n.Size > 0 {
		decls = append(decls, decl("font-size", strconv.Itoa(n.Size)+"px"))
	}
	if n.Color != "" {
		decls = append(decls, decl("color", n.Color))
	}
	return element(atom.I,
		"class", "wm-icon icon-"+n.Name,
		"aria-hidden", "true",
		"style", inlineStyle(decls...),
	)
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
