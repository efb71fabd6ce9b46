// Package renderer turns a compiled types.Document into an HTML node tree.
//
// Rendering never fails. Each block is rendered in isolation: if a host hook
// panics or the highlighter errors, only that block degrades to escaped
// literal text and the failure is logged. Links, images and code
// highlighting are delegated to Hooks so hosts decide navigation and asset
// resolution.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/types"
)

// Hooks are host-supplied callbacks. Any nil hook uses its default.
type Hooks struct {
	// LinkHref maps an internal link target to an href. This is the point
	// where hosts intercept link clicks.
	LinkHref func(target string) string
	// ResolveImage maps an image or file reference to a URL.
	ResolveImage func(ref string) string
	// Highlight returns highlighted HTML for code. An error falls back to
	// plain escaped code.
	Highlight func(code, lang string) (string, error)
}

// DefaultLinkHref links to the page route of the preview server.
func DefaultLinkHref(target string) string {
	return PrefixLinkHref("/w/")(target)
}

// PrefixLinkHref returns a LinkHref mapping "page/sub#frag" to
// prefix+"page/sub#frag" with every path segment and the fragment escaped.
// A target holding only a fragment links within the current page.
func PrefixLinkHref(prefix string) func(target string) string {
	return func(target string) string {
		page, fragment, hasFragment := strings.Cut(target, "#")
		page = strings.TrimSpace(page)

		var href string
		if page != "" {
			segments := strings.Split(page, "/")
			for i, seg := range segments {
				segments[i] = url.PathEscape(seg)
			}
			href = prefix + strings.Join(segments, "/")
		}
		if hasFragment && fragment != "" {
			href += "#" + url.PathEscape(strings.TrimSpace(fragment))
		}
		return href
	}
}

func (h Hooks) withDefaults() Hooks {
	if h.LinkHref == nil {
		h.LinkHref = DefaultLinkHref
	}
	if h.ResolveImage == nil {
		h.ResolveImage = func(ref string) string { return ref }
	}
	return h
}

// Renderer renders documents with a fixed set of hooks.
type Renderer struct {
	hooks  Hooks
	logger logging.Logger
}

// New creates a renderer. A nil logger discards hook failures.
func New(hooks Hooks, logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Renderer{
		hooks:  hooks.withDefaults(),
		logger: logger.WithComponent("renderer"),
	}
}

// Render renders doc with hooks and no logging.
func Render(doc *types.Document, hooks Hooks) *html.Node {
	return New(hooks, nil).Render(doc)
}

// Render builds the output tree: a div.wm-document holding the blocks, the
// footnote list and the category footer.
func (r *Renderer) Render(doc *types.Document) *html.Node {
	return r.render(context.Background(), doc)
}

// RenderHTML renders doc and serializes it.
func (r *Renderer) RenderHTML(doc *types.Document) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, r.Render(doc)); err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return buf.String(), nil
}

// Component adapts doc to a templ.Component for embedding in templ pages.
func (r *Renderer) Component(doc *types.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return html.Render(w, r.render(ctx, doc))
	})
}

func (r *Renderer) render(ctx context.Context, doc *types.Document) *html.Node {
	s := &state{
		hooks:    r.hooks,
		doc:      doc,
		seenRefs: make(map[int]bool),
	}

	root := element(atom.Div, "class", "wm-document")
	if doc != nil {
		for i := 0; i < len(doc.Blocks); {
			if _, ok := doc.Blocks[i].(types.ListItem); ok {
				end := i
				var items []types.ListItem
				for end < len(doc.Blocks) {
					item, ok := doc.Blocks[end].(types.ListItem)
					if !ok {
						break
					}
					items = append(items, item)
					end++
				}
				appendAll(root, s.safe(doc.Blocks[i], func() []*html.Node {
					return s.list(items)
				}))
				i = end
				continue
			}

			block := doc.Blocks[i]
			appendAll(root, s.safe(block, func() []*html.Node {
				return s.block(block)
			}))
			i++
		}

		if len(doc.Footnotes) > 0 {
			appendAll(root, s.safe(nil, s.footnotes))
		}
		if len(doc.Categories) > 0 {
			appendAll(root, s.safe(nil, s.categories))
		}
	}

	for _, f := range s.failures {
		r.logger.Warn(ctx, f.err, "block rendered as literal text",
			"kind", f.kind,
			"line", f.line+1,
		)
	}
	return root
}

type failure struct {
	kind string
	line int
	err  error
}

// state is the per-render scratch space.
type state struct {
	hooks    Hooks
	doc      *types.Document
	seenRefs map[int]bool
	failures []failure
}

// safe runs fn and converts a panic into a literal rendering of block.
func (s *state) safe(block types.Block, fn func() []*html.Node) (nodes []*html.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			s.fail(block, fmt.Errorf("panic: %v", rec))
			nodes = []*html.Node{literal(block)}
		}
	}()
	return fn()
}

func (s *state) fail(block types.Block, err error) {
	f := failure{kind: "document", err: err}
	if block != nil {
		f.kind = block.Kind().String()
		f.line = block.Lines().Start
	}
	s.failures = append(s.failures, f)
}

// literal renders the source text of block as an escaped paragraph.
func literal(block types.Block) *html.Node {
	p := element(atom.P, "class", "wm-literal")
	p.AppendChild(text(sourceText(block)))
	return p
}

func sourceText(block types.Block) string {
	switch b := block.(type) {
	case nil:
		return ""
	case types.Heading:
		return b.Title
	case types.Paragraph:
		return strings.Join(b.Text, "\n")
	case types.ListItem:
		return b.Content
	case types.Quote:
		return b.Content
	case types.CodeFence:
		return b.Code
	case types.Table:
		var rows []string
		for _, row := range b.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = c.Raw
			}
			rows = append(rows, strings.Join(cells, " | "))
		}
		return strings.Join(rows, "\n")
	case types.TemplateBlock:
		lines := []string{b.Name}
		for _, p := range b.Params {
			lines = append(lines, p.Key+" = "+p.Value)
		}
		return strings.Join(lines, "\n")
	case types.Directive:
		return strings.Join(append(append([]string(nil), b.Args...), b.Caption), " ")
	case types.ErrorBlock:
		return b.Raw
	default:
		return fmt.Sprintf("%v", block)
	}
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		if c != nil {
			parent.AppendChild(c)
		}
	}
}
