// Package segmenter splits wiki markup into an ordered list of blocks.
//
// Segmentation is a single forward scan over lines. Each line is offered to
// an ordered table of block rules; the first rule that recognizes the line
// consumes it together with any continuation lines and reports where scanning
// resumes. Lines no rule claims are folded into paragraphs. Segment never
// fails: constructs that cannot be parsed degrade to paragraphs, or to a
// visible ErrorBlock when the author clearly meant something structured.
// Degradations that keep the text but lose its structure are reported as
// warning diagnostics by Scan.
package segmenter

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/conneroisu/wikimark/internal/types"
)

// rule recognizes one block construct. starts is a cheap prefix test used
// both for dispatch and to stop paragraph folding; parse consumes lines
// starting at index i and returns the index scanning resumes at, or ok ==
// false to let later rules try.
type rule struct {
	name   string
	starts func(line string) bool
	parse  func(s *scanner, i int) (next int, ok bool)
}

var rules []rule

func init() {
	rules = []rule{
		{name: "code_fence", starts: startsFence, parse: (*scanner).codeFence},
		{name: "footnote_definition", starts: isDefinition, parse: (*scanner).footnoteDefinition},
		{name: "heading", starts: startsHeading, parse: (*scanner).heading},
		{name: "role_banner", starts: startsRole, parse: (*scanner).roleBanner},
		{name: "template", starts: startsTemplate, parse: (*scanner).template},
		{name: "card_grid", starts: startsCardGrid, parse: (*scanner).cardGrid},
		{name: "namu_table", starts: startsNamuTable, parse: (*scanner).namuTable},
		{name: "markdown_table", starts: startsMarkdownTable, parse: (*scanner).markdownTable},
		{name: "horizontal_rule", starts: isHorizontalRule, parse: (*scanner).horizontalRule},
		{name: "quote", starts: startsQuote, parse: (*scanner).quote},
		{name: "list_item", starts: startsListItem, parse: (*scanner).listItem},
		{name: "directive", starts: startsDirective, parse: (*scanner).directive},
	}
}

// Result is the outcome of segmenting one text.
type Result struct {
	Blocks []types.Block
	// Diagnostics are warnings for constructs kept as plain text.
	Diagnostics []types.Diagnostic
}

// Scan splits text into blocks in source order and reports degraded
// constructs.
func Scan(text string) Result {
	s := newScanner(text)
	s.run()
	return Result{Blocks: s.blocks, Diagnostics: s.diagnostics}
}

// Segment splits text into blocks in source order.
func Segment(text string) []types.Block {
	return Scan(text).Blocks
}

// SplitLines normalizes line endings and splits text into lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

type scanner struct {
	lines       []string
	blocks      []types.Block
	diagnostics []types.Diagnostic
	// levels holds the raw indentation levels of the currently open list
	// items, innermost on top.
	levels *arraystack.Stack
}

func newScanner(text string) *scanner {
	return &scanner{
		lines:  SplitLines(text),
		levels: arraystack.New(),
	}
}

func (s *scanner) run() {
	i := 0
	for i < len(s.lines) {
		if isBlank(s.lines[i]) {
			i++
			continue
		}
		i = s.dispatch(i)
	}
}

func (s *scanner) dispatch(i int) int {
	line := s.lines[i]
	for _, r := range rules {
		if !r.starts(line) {
			continue
		}
		if next, ok := r.parse(s, i); ok {
			return next
		}
	}
	return s.paragraph(i)
}

// warn records a warning for lines [start, end).
func (s *scanner) warn(start, end int, format string, args ...interface{}) {
	s.diagnostics = append(s.diagnostics, types.Diagnostic{
		Severity: types.SeverityWarning,
		Line:     start,
		Message:  fmt.Sprintf(format, args...),
		Raw:      strings.Join(s.lines[start:end], "\n"),
	})
}

func (s *scanner) emit(block types.Block) {
	if block.Kind() != types.BlockListItem {
		s.levels.Clear()
	}
	s.blocks = append(s.blocks, block)
}

// paragraph folds line i and the plain lines after it into one paragraph.
// Line i is always taken, so callers can degrade a failed construct by
// handing its opening line here.
func (s *scanner) paragraph(i int) int {
	end := i + 1
	for end < len(s.lines) && !isBlank(s.lines[end]) && !startsBlock(s.lines[end]) {
		end++
	}
	text := make([]string, 0, end-i)
	for _, line := range s.lines[i:end] {
		text = append(text, strings.TrimSpace(line))
	}
	s.emit(types.Paragraph{Text: text, Range: types.LineRange{Start: i, End: end}})
	return end
}

func startsBlock(line string) bool {
	for _, r := range rules {
		if r.starts(line) {
			return true
		}
	}
	return false
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
