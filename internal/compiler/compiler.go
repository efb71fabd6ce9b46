// Package compiler turns wiki markup into a types.Document.
//
// A compilation segments the source, extracts footnote definitions, then
// walks the blocks in document order. Inline parsing, footnote numbering and
// heading anchors all draw from one RenderContext created per call, so
// compiling the same text twice yields identical documents and concurrent
// compilations never share counters.
package compiler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/wikimark/internal/footnote"
	"github.com/conneroisu/wikimark/internal/inline"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/segmenter"
	"github.com/conneroisu/wikimark/internal/toc"
	"github.com/conneroisu/wikimark/internal/types"
)

// RenderContext holds the mutable state of a single compilation.
type RenderContext struct {
	Footnotes *footnote.Numberer
	Outline   *toc.Outline
	Inline    *inline.Parser
}

// NewRenderContext returns a context with fresh counters.
func NewRenderContext() *RenderContext {
	numberer := footnote.NewNumberer()
	return &RenderContext{
		Footnotes: numberer,
		Outline:   toc.NewOutline(toc.NewSlugger()),
		Inline:    inline.NewParser(numberer),
	}
}

// LanguageDetector names the lexer used for a code fence, or returns ""
// when the fence cannot be highlighted. *highlight.Highlighter implements it.
type LanguageDetector interface {
	Language(code, lang string) string
}

// Compiler compiles pages and reports their diagnostics to a logger.
type Compiler struct {
	logger    logging.Logger
	languages LanguageDetector
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLanguages makes the compiler warn about code fences whose language
// tag d does not recognize.
func WithLanguages(d LanguageDetector) Option {
	return func(c *Compiler) { c.languages = d }
}

// New creates a compiler. A nil logger discards output.
func New(logger logging.Logger, opts ...Option) *Compiler {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Compiler{logger: logger.WithComponent("compiler")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles text without logging or language checks.
func Compile(text string) *types.Document {
	return compile(text, nil)
}

// Compile compiles the source of page. It never fails: problems are
// recorded as diagnostics on the returned document and logged as warnings.
func (c *Compiler) Compile(ctx context.Context, page, text string) *types.Document {
	op := logging.StartOperation(c.logger, "compile")
	doc := compile(text, c.languages)

	for _, d := range doc.Diagnostics {
		c.logger.Warn(ctx, nil, d.Message,
			"page", page,
			"line", d.Line+1,
			"severity", d.Severity.String(),
		)
	}
	op.End(ctx,
		"page", page,
		"blocks", len(doc.Blocks),
		"headings", len(doc.TOC),
		"footnotes", len(doc.Footnotes),
	)
	return doc
}

func compile(text string, languages LanguageDetector) *types.Document {
	lines := segmenter.SplitLines(text)
	scanned := segmenter.Scan(text)
	blocks := scanned.Blocks
	table := footnote.Extract(lines)
	rc := NewRenderContext()

	doc := &types.Document{Blocks: make([]types.Block, len(blocks))}
	doc.Diagnostics = append(doc.Diagnostics, scanned.Diagnostics...)
	seenCategory := make(map[string]bool)

	for i, block := range blocks {
		switch b := block.(type) {
		case types.Heading:
			b.Inlines = rc.Inline.Parse(b.Title)
			entry := rc.Outline.Add(b.Level, headingText(b))
			b.Anchor, b.Number = entry.Anchor, entry.Number
			block = b
		case types.ListItem:
			b.Inlines = rc.Inline.Parse(b.Content)
			block = b
		case types.Quote:
			b.Inlines = parseLines(rc, strings.Split(b.Content, "\n"))
			block = b
		case types.Paragraph:
			b.Inlines = parseLines(rc, b.Text)
			block = b
		case types.Table:
			b.Rows = parseRows(rc, b.Rows)
			block = b
		case types.TemplateBlock:
			b.Params = parseParams(rc, b.Params)
			block = b
		case types.Directive:
			if b.Caption != "" {
				b.CaptionInlines = rc.Inline.Parse(b.Caption)
			}
			if b.Directive == types.DirectiveCategoryTag {
				for _, name := range b.Args {
					if !seenCategory[name] {
						seenCategory[name] = true
						doc.Categories = append(doc.Categories, name)
					}
				}
			}
			block = b
		case types.CodeFence:
			if languages != nil && b.Language != "" && languages.Language(b.Code, b.Language) == "" {
				doc.Diagnostics = append(doc.Diagnostics, types.Diagnostic{
					Severity: types.SeverityWarning,
					Line:     b.Range.Start,
					Message:  fmt.Sprintf("code language %q is unknown to the highlighter, shown as plain text", b.Language),
				})
			}
		case types.ErrorBlock:
			doc.Diagnostics = append(doc.Diagnostics, types.Diagnostic{
				Severity: types.SeverityError,
				Line:     b.Range.Start,
				Message:  b.Message,
				Raw:      b.Raw,
			})
		}
		doc.Blocks[i] = block
	}

	doc.TOC = rc.Outline.Entries()
	doc.Footnotes = rc.Footnotes.Footnotes(table)
	plain := inline.NewParser(nil)
	for i := range doc.Footnotes {
		doc.Footnotes[i].Inlines = plain.Parse(doc.Footnotes[i].Text)
	}

	for _, key := range rc.Footnotes.Unreferenced(table) {
		doc.Diagnostics = append(doc.Diagnostics, types.Diagnostic{
			Severity: types.SeverityWarning,
			Line:     definitionLine(lines, key),
			Message:  fmt.Sprintf("footnote [*%s] is never referenced", key),
		})
	}
	sort.SliceStable(doc.Diagnostics, func(i, j int) bool {
		return doc.Diagnostics[i].Line < doc.Diagnostics[j].Line
	})
	return doc
}

// headingText is the title used for anchors and the TOC: the heading's
// visible text, or the raw title when markup leaves nothing visible.
func headingText(h types.Heading) string {
	if text := strings.TrimSpace(types.PlainText(h.Inlines)); text != "" {
		return text
	}
	return h.Title
}

func parseLines(rc *RenderContext, lines []string) [][]types.InlineNode {
	out := make([][]types.InlineNode, len(lines))
	for i, line := range lines {
		out[i] = rc.Inline.Parse(line)
	}
	return out
}

func parseRows(rc *RenderContext, rows [][]types.Cell) [][]types.Cell {
	out := make([][]types.Cell, len(rows))
	for r, row := range rows {
		out[r] = make([]types.Cell, len(row))
		for c, cell := range row {
			cell.Inlines = rc.Inline.Parse(cell.Content)
			out[r][c] = cell
		}
	}
	return out
}

func parseParams(rc *RenderContext, ps []types.Param) []types.Param {
	out := make([]types.Param, len(ps))
	for i, p := range ps {
		p.Inlines = rc.Inline.Parse(p.Content)
		out[i] = p
	}
	return out
}

// definitionLine returns the zero-based line defining key, or 0.
func definitionLine(lines []string, key string) int {
	for i, line := range lines {
		if k, _, ok := segmenter.Definition(line); ok && k == key {
			return i
		}
		if strings.Contains(line, "[*"+key+" ") {
			return i
		}
	}
	return 0
}
