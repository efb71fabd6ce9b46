package renderer

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wikimark/internal/types"
)

var headingAtoms = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func (s *state) block(block types.Block) []*html.Node {
	switch b := block.(type) {
	case types.Heading:
		return one(s.heading(b))
	case types.Paragraph:
		p := element(atom.P)
		s.lines(p, b.Inlines)
		return one(p)
	case types.Quote:
		q := element(atom.Blockquote, "class", "wm-quote")
		s.lines(q, b.Inlines)
		return one(q)
	case types.CodeFence:
		return one(s.codeFence(b))
	case types.Table:
		return one(s.table(b))
	case types.TemplateBlock:
		if b.Template == types.TemplateCardGrid {
			return one(s.cardGrid(b))
		}
		return one(s.infobox(b))
	case types.Directive:
		return s.directive(b)
	case types.HorizontalRule:
		return one(element(atom.Hr))
	case types.ErrorBlock:
		return one(errorBlock(b))
	case types.ListItem:
		return s.list([]types.ListItem{b})
	default:
		return one(literal(block))
	}
}

func one(n *html.Node) []*html.Node {
	return []*html.Node{n}
}

func (s *state) heading(h types.Heading) *html.Node {
	level := h.Level
	if level < 1 {
		level = 1
	}
	if level > len(headingAtoms) {
		level = len(headingAtoms)
	}

	n := element(headingAtoms[level-1], "id", h.Anchor, "class", "wm-heading")
	if h.Number != "" {
		num := element(atom.A, "class", "wm-heading-number", "href", "#"+h.Anchor)
		num.AppendChild(text(h.Number))
		n.AppendChild(num)
		n.AppendChild(text(" "))
	}
	title := element(atom.Span, "class", "wm-heading-title")
	if len(h.Inlines) > 0 {
		s.inlines(title, h.Inlines)
	} else {
		title.AppendChild(text(h.Title))
	}
	n.AppendChild(title)
	return n
}

// lines renders one inline list per source line separated by <br>.
func (s *state) lines(parent *html.Node, lines [][]types.InlineNode) {
	for i, nodes := range lines {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}
		s.inlines(parent, nodes)
	}
}

// list nests a run of consecutive list items by level.
func (s *state) list(items []types.ListItem) []*html.Node {
	type open struct {
		level   int
		ordered bool
		list    *html.Node
		last    *html.Node
	}
	var (
		roots []*html.Node
		stack []*open
	)

	for _, item := range items {
		for len(stack) > 0 && stack[len(stack)-1].level > item.Level {
			stack = stack[:len(stack)-1]
		}
		// A sibling with a different marker type starts a new list.
		if n := len(stack); n > 0 && stack[n-1].level == item.Level && stack[n-1].ordered != item.Ordered {
			stack = stack[:n-1]
		}
		if len(stack) == 0 || stack[len(stack)-1].level < item.Level {
			tag := atom.Ul
			if item.Ordered {
				tag = atom.Ol
			}
			list := element(tag, "class", "wm-list")
			switch {
			case len(stack) == 0:
				roots = append(roots, list)
			case stack[len(stack)-1].last != nil:
				stack[len(stack)-1].last.AppendChild(list)
			default:
				stack[len(stack)-1].list.AppendChild(list)
			}
			stack = append(stack, &open{level: item.Level, ordered: item.Ordered, list: list})
		}

		li := element(atom.Li)
		if len(item.Inlines) > 0 {
			s.inlines(li, item.Inlines)
		} else {
			li.AppendChild(text(item.Content))
		}
		top := stack[len(stack)-1]
		top.list.AppendChild(li)
		top.last = li
	}
	return roots
}

func (s *state) codeFence(c types.CodeFence) *html.Node {
	pre := element(atom.Pre, "class", "wm-code")
	lang := strings.TrimSpace(c.Language)
	code := element(atom.Code, "class", languageClass(lang))
	pre.AppendChild(code)

	if s.hooks.Highlight != nil {
		err := s.highlight(code, c.Code, lang)
		if err == nil {
			pre.Attr = append(pre.Attr, html.Attribute{Key: "data-highlighted", Val: "true"})
			return pre
		}
		s.fail(c, err)
	}
	code.AppendChild(text(c.Code))
	return pre
}

// highlight parses the hook's HTML into code. code is left untouched on
// error.
func (s *state) highlight(code *html.Node, source, lang string) error {
	highlighted, err := s.hooks.Highlight(source, lang)
	if err != nil {
		return err
	}
	nodes, err := html.ParseFragment(strings.NewReader(highlighted), code)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		code.AppendChild(n)
	}
	return nil
}

func languageClass(lang string) string {
	if lang == "" {
		return ""
	}
	return "language-" + lang
}

func (s *state) table(t types.Table) *html.Node {
	table := element(atom.Table, "class", "wm-table")
	rows := t.Rows
	if t.Header && len(rows) > 0 {
		thead := element(atom.Thead)
		thead.AppendChild(s.row(rows[0], atom.Th, t.Align))
		table.AppendChild(thead)
		rows = rows[1:]
	}
	if len(rows) > 0 {
		tbody := element(atom.Tbody)
		for _, row := range rows {
			tbody.AppendChild(s.row(row, atom.Td, t.Align))
		}
		table.AppendChild(tbody)
	}
	return table
}

func (s *state) row(cells []types.Cell, tag atom.Atom, align []types.Alignment) *html.Node {
	tr := element(atom.Tr)
	for i, cell := range cells {
		var a types.Alignment
		if i < len(align) {
			a = align[i]
		}
		td := element(tag, "style", cellStyle(cell.Colors, a))
		if len(cell.Inlines) > 0 {
			s.inlines(td, cell.Inlines)
		} else {
			td.AppendChild(text(cell.Content))
		}
		tr.AppendChild(td)
	}
	return tr
}

func (s *state) directive(d types.Directive) []*html.Node {
	switch d.Directive {
	case types.DirectiveTOC:
		return one(s.toc())
	case types.DirectiveCategoryTag:
		// Collected into the category footer.
		return nil
	case types.DirectiveRoleBanner:
		role := strings.Join(d.Args, " ")
		banner := element(atom.Div, "class", "wm-role-banner", "data-role", role)
		banner.AppendChild(text(role))
		return one(banner)
	case types.DirectiveTabBar:
		bar := element(atom.Div, "class", "wm-tabs", "role", "tablist")
		for i, label := range d.Args {
			selected := "false"
			if i == 0 {
				selected = "true"
			}
			tab := element(atom.Button,
				"type", "button",
				"role", "tab",
				"data-tab", strconv.Itoa(i),
				"aria-selected", selected,
			)
			tab.AppendChild(text(label))
			bar.AppendChild(tab)
		}
		return one(bar)
	case types.DirectiveImage, types.DirectiveFile:
		return one(s.figure(d))
	default:
		return one(literal(d))
	}
}

func (s *state) figure(d types.Directive) *html.Node {
	var ref string
	if len(d.Args) > 0 {
		ref = d.Args[0]
	}
	fig := element(atom.Figure, "class", "wm-figure")
	fig.AppendChild(element(atom.Img, "src", s.hooks.ResolveImage(ref), "alt", d.Caption, "loading", "lazy"))
	if d.Caption != "" {
		caption := element(atom.Figcaption)
		if len(d.CaptionInlines) > 0 {
			s.inlines(caption, d.CaptionInlines)
		} else {
			caption.AppendChild(text(d.Caption))
		}
		fig.AppendChild(caption)
	}
	return fig
}

func (s *state) toc() *html.Node {
	nav := element(atom.Nav, "class", "wm-toc")
	title := element(atom.Div, "class", "wm-toc-title")
	title.AppendChild(text("목차"))
	nav.AppendChild(title)

	list := element(atom.Ol)
	for _, entry := range s.doc.TOC {
		li := element(atom.Li, "class", "wm-toc-level-"+strconv.Itoa(entry.Level))
		a := element(atom.A, "href", "#"+entry.Anchor)
		num := element(atom.Span, "class", "wm-toc-number")
		num.AppendChild(text(entry.Number))
		a.AppendChild(num)
		a.AppendChild(text(" " + entry.Title))
		li.AppendChild(a)
		list.AppendChild(li)
	}
	nav.AppendChild(list)
	return nav
}

func errorBlock(e types.ErrorBlock) *html.Node {
	div := element(atom.Div, "class", "wm-error", "role", "alert")
	msg := element(atom.Strong)
	msg.AppendChild(text(e.Message))
	div.AppendChild(msg)
	if e.Raw != "" {
		pre := element(atom.Pre)
		pre.AppendChild(text(e.Raw))
		div.AppendChild(pre)
	}
	return div
}

func (s *state) footnotes() []*html.Node {
	section := element(atom.Section, "class", "wm-footnotes")
	list := element(atom.Ol)
	for _, f := range s.doc.Footnotes {
		num := strconv.Itoa(f.Number)
		li := element(atom.Li, "id", "fn-"+num)
		back := element(atom.A, "class", "wm-footnote-back", "href", "#fnref-"+num)
		back.AppendChild(text("[" + num + "]"))
		li.AppendChild(back)
		li.AppendChild(text(" "))
		if len(f.Inlines) > 0 {
			s.inlines(li, f.Inlines)
		} else {
			li.AppendChild(text(f.Text))
		}
		list.AppendChild(li)
	}
	section.AppendChild(list)
	return one(section)
}

func (s *state) categories() []*html.Node {
	div := element(atom.Div, "class", "wm-categories")
	label := element(atom.Span, "class", "wm-categories-label")
	label.AppendChild(text("분류"))
	div.AppendChild(label)

	list := element(atom.Ul)
	for _, name := range s.doc.Categories {
		li := element(atom.Li)
		a := element(atom.A, "href", s.hooks.LinkHref("분류:"+name))
		a.AppendChild(text(name))
		li.AppendChild(a)
		list.AppendChild(li)
	}
	div.AppendChild(list)
	return one(div)
}
