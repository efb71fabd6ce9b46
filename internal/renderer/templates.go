package renderer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wikimark/internal/inline"
	"github.com/conneroisu/wikimark/internal/params"
	"github.com/conneroisu/wikimark/internal/types"
)

var infoboxClasses = map[types.TemplateKind]string{
	types.TemplateInfobox:       "wm-infobox",
	types.TemplatePersonInfobox: "wm-infobox wm-person-infobox",
	types.TemplateGroupInfobox:  "wm-infobox wm-group-infobox",
}

// infobox renders the header fields of person and group infoboxes followed
// by a key/value table of the remaining params.
func (s *state) infobox(t types.TemplateBlock) *html.Node {
	aside := element(atom.Aside,
		"class", infoboxClasses[t.Template],
		"data-template", t.Name,
		"style", colorStyle(t.Colors),
	)

	header := element(atom.Div, "class", "wm-infobox-header")
	title := element(atom.Div, "class", "wm-infobox-title")
	titleKey := params.FieldTitle
	if params.IsReserved(t.Template, params.FieldName) {
		titleKey = params.FieldName
	}
	if p, ok := t.Lookup(titleKey); ok {
		s.paramContent(title, p)
	} else {
		title.AppendChild(text(t.Name))
	}
	header.AppendChild(title)

	if p, ok := t.Lookup(params.FieldEnglishName); ok && params.IsReserved(t.Template, p.Key) {
		sub := element(atom.Div, "class", "wm-infobox-subtitle")
		s.paramContent(sub, p)
		header.AppendChild(sub)
	}
	aside.AppendChild(header)

	if p, ok := t.Lookup(params.FieldImage); ok && params.IsReserved(t.Template, p.Key) {
		fig := element(atom.Figure, "class", "wm-infobox-image")
		fig.AppendChild(element(atom.Img, "src", s.hooks.ResolveImage(p.Content), "alt", t.Name))
		if caption, ok := t.Lookup(params.FieldImageCaption); ok {
			fc := element(atom.Figcaption)
			s.paramContent(fc, caption)
			fig.AppendChild(fc)
		}
		aside.AppendChild(fig)
	}

	rows := params.DisplayParams(t.Template, t.Params)
	if t.Template == types.TemplateInfobox {
		rows = without(rows, params.FieldTitle)
	}
	if len(rows) > 0 {
		table := element(atom.Table, "class", "wm-infobox-fields")
		tbody := element(atom.Tbody)
		for _, p := range rows {
			tr := element(atom.Tr)
			th := element(atom.Th, "scope", "row")
			th.AppendChild(text(p.Key))
			td := element(atom.Td, "style", colorStyle(p.Colors))
			s.paramContent(td, p)
			tr.AppendChild(th)
			tr.AppendChild(td)
			tbody.AppendChild(tr)
		}
		table.AppendChild(tbody)
		aside.AppendChild(table)
	}
	return aside
}

// paramContent renders a param value, one <br>-separated line per
// continuation line.
func (s *state) paramContent(parent *html.Node, p types.Param) {
	if len(p.Inlines) == 0 {
		parent.AppendChild(text(p.Content))
		return
	}
	var line []types.InlineNode
	var lines [][]types.InlineNode
	for _, n := range p.Inlines {
		if n.Kind != types.InlineText {
			line = append(line, n)
			continue
		}
		parts := strings.Split(n.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, line)
				line = nil
			}
			if part != "" {
				line = append(line, types.InlineNode{Kind: types.InlineText, Text: part, Raw: part})
			}
		}
	}
	lines = append(lines, line)
	s.lines(parent, lines)
}

func without(ps []types.Param, key string) []types.Param {
	out := ps[:0:0]
	for _, p := range ps {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out
}

// cardGrid renders the optional header fields and one card per item. Cards
// with a link become anchors routed through LinkHref.
func (s *state) cardGrid(t types.TemplateBlock) *html.Node {
	section := element(atom.Section, "class", "wm-card-grid", "style", colorStyle(t.Colors))

	header := element(atom.Header, "class", "wm-card-grid-header")
	if p, ok := t.Lookup(params.FieldTopLogo); ok && p.Content != "" {
		header.AppendChild(element(atom.Img, "class", "wm-card-grid-logo", "src", s.hooks.ResolveImage(p.Content), "alt", ""))
	}
	for _, f := range []struct {
		key   string
		tag   atom.Atom
		class string
	}{
		{params.FieldTopTitle, atom.H3, "wm-card-grid-title"},
		{params.FieldTopSubtitle, atom.Div, "wm-card-grid-subtitle"},
		{params.FieldTopDescription, atom.P, "wm-card-grid-description"},
	} {
		if p, ok := t.Lookup(f.key); ok {
			el := element(f.tag, "class", f.class)
			s.paramContent(el, p)
			header.AppendChild(el)
		}
	}
	if header.FirstChild != nil {
		section.AppendChild(header)
	}

	cards := element(atom.Div, "class", "wm-cards")
	for _, card := range t.Cards {
		cards.AppendChild(s.card(card))
	}
	section.AppendChild(cards)
	return section
}

func (s *state) card(c types.Card) *html.Node {
	style := ""
	if c.Color != "" {
		style = inlineStyle(decl("border-color", c.Color))
	}

	var n *html.Node
	if c.Link != "" {
		href := c.Link
		if !inline.IsURL(c.Link) {
			href = s.hooks.LinkHref(c.Link)
		}
		n = element(atom.A, "class", "wm-card", "href", href, "style", style)
	} else {
		n = element(atom.Div, "class", "wm-card", "style", style)
	}

	if c.Image != "" {
		n.AppendChild(element(atom.Img, "src", s.hooks.ResolveImage(c.Image), "alt", c.Title, "loading", "lazy"))
	}
	for _, f := range []struct {
		value string
		class string
	}{
		{c.Title, "wm-card-title"},
		{c.Subtitle, "wm-card-subtitle"},
		{c.Description, "wm-card-description"},
	} {
		if f.value == "" {
			continue
		}
		div := element(atom.Div, "class", f.class)
		div.AppendChild(text(f.value))
		n.AppendChild(div)
	}
	return n
}
