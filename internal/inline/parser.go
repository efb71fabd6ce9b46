// Package inline resolves span-level markup inside block text.
//
// Every matcher in the priority table scans the whole input independently.
// The resulting candidates are sorted by start offset (ties broken by table
// order) and a greedy pass keeps a candidate only when it starts at or after
// the end of the previously kept one. Gaps become Text nodes, so the kept
// nodes never overlap and their Raw fields concatenate back to the input.
package inline

import (
	"sort"

	"github.com/conneroisu/wikimark/internal/types"
)

// maxDepth bounds recursion into styled spans such as bold inside italic.
const maxDepth = 8

// Resolver assigns display numbers to footnote references in reading order.
// key is empty for anonymous references; text is the body of an inline
// footnote ("[*key body]") or empty. It returns the key the reference was
// recorded under and its display number.
type Resolver interface {
	Reference(key, text string) (string, int)
}

// Parser parses inline markup, resolving footnote numbers through an
// optional Resolver.
type Parser struct {
	resolver Resolver
}

// NewParser creates a parser. A nil resolver leaves footnote numbers at zero.
func NewParser(resolver Resolver) *Parser {
	return &Parser{resolver: resolver}
}

// Parse parses text without footnote numbering.
func Parse(text string) []types.InlineNode {
	return NewParser(nil).Parse(text)
}

// Parse parses text into non-overlapping inline nodes. Footnote references
// are resolved in reading order, nested references included.
func (p *Parser) Parse(text string) []types.InlineNode {
	nodes := p.parse(text, 0, 0)
	if p.resolver != nil {
		p.resolve(nodes)
	}
	return nodes
}

type candidate struct {
	start    int
	end      int
	priority int
	node     types.InlineNode
	match    match
}

func (p *Parser) parse(text string, base, depth int) []types.InlineNode {
	if text == "" {
		return nil
	}
	if depth >= maxDepth {
		return []types.InlineNode{textNode(text, base)}
	}

	var candidates []candidate
	for priority, m := range matchers {
		for _, idx := range m.pattern.FindAllStringSubmatchIndex(text, -1) {
			mt := match{text: text, base: base, indexes: idx}
			node, ok := m.build(mt)
			if !ok {
				continue
			}
			if node.Raw == "" {
				node.Raw = mt.raw()
			}
			start := idx[0]
			end := start + len(node.Raw)
			node.Start = base + start
			node.End = base + end
			candidates = append(candidates, candidate{
				start:    start,
				end:      end,
				priority: priority,
				node:     node,
				match:    mt,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].priority < candidates[j].priority
	})

	nodes := make([]types.InlineNode, 0, 2*len(candidates)+1)
	last := 0
	for _, c := range candidates {
		if c.start < last {
			continue
		}
		if c.start > last {
			nodes = append(nodes, textNode(text[last:c.start], base+last))
		}
		if group := matchers[c.priority].children; group > 0 {
			content, offset := c.match.group(group)
			c.node.Children = p.parse(content, offset, depth+1)
		}
		nodes = append(nodes, c.node)
		last = c.end
	}
	if last < len(text) {
		nodes = append(nodes, textNode(text[last:], base+last))
	}
	return nodes
}

func (p *Parser) resolve(nodes []types.InlineNode) {
	for i := range nodes {
		n := &nodes[i]
		if n.Kind == types.InlineFootnoteRef {
			n.FootnoteKey, n.FootnoteNumber = p.resolver.Reference(n.FootnoteKey, n.Text)
		}
		if len(n.Children) > 0 {
			p.resolve(n.Children)
		}
	}
}

func textNode(text string, start int) types.InlineNode {
	return types.InlineNode{
		Kind:  types.InlineText,
		Text:  text,
		Start: start,
		End:   start + len(text),
		Raw:   text,
	}
}
