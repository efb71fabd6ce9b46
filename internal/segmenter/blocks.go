package segmenter

import (
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

const maxHeadingLevel = 6

// codeFence consumes a fenced block. A fence that is never closed runs to
// the end of the input.
func (s *scanner) codeFence(i int) (int, bool) {
	lang, _ := OpensFence(s.lines[i])
	end := i + 1
	for end < len(s.lines) && !ClosesFence(s.lines[end]) {
		end++
	}
	code := strings.Join(s.lines[i+1:end], "\n")
	next := end
	if end < len(s.lines) {
		next = end + 1
	}
	s.emit(types.CodeFence{
		Language: lang,
		Code:     code,
		Range:    types.LineRange{Start: i, End: next},
	})
	return next, true
}

// footnoteDefinition drops a standalone definition line. The footnote
// package collects its text before inline parsing.
func (s *scanner) footnoteDefinition(i int) (int, bool) {
	return i + 1, true
}

func (s *scanner) heading(i int) (int, bool) {
	level, title, ok := parseHeading(s.lines[i])
	if !ok {
		return i, false
	}
	s.emit(types.Heading{
		Level: clamp(level, 1, maxHeadingLevel),
		Title: title,
		Range: types.LineRange{Start: i, End: i + 1},
	})
	return i + 1, true
}

func (s *scanner) horizontalRule(i int) (int, bool) {
	s.emit(types.HorizontalRule{Range: types.LineRange{Start: i, End: i + 1}})
	return i + 1, true
}

// quote merges consecutive quoted lines.
func (s *scanner) quote(i int) (int, bool) {
	end := i
	var content []string
	for end < len(s.lines) && startsQuote(s.lines[end]) {
		t := strings.TrimSpace(s.lines[end])
		content = append(content, strings.TrimSpace(quotePattern.ReplaceAllString(t, "")))
		end++
	}
	s.emit(types.Quote{
		Content: strings.Join(content, "\n"),
		Range:   types.LineRange{Start: i, End: end},
	})
	return end, true
}

// listItem emits one item. The indentation width over two is the raw level;
// the level stack turns raw levels into a dense nesting depth so a jump from
// level 0 straight to level 3 nests only one deeper.
func (s *scanner) listItem(i int) (int, bool) {
	m := listItemPattern.FindStringSubmatch(s.lines[i])
	if m == nil {
		return i, false
	}
	raw := indentWidth(m[1]) / 2

	for !s.levels.Empty() {
		top, _ := s.levels.Peek()
		if top.(int) <= raw {
			break
		}
		s.levels.Pop()
	}
	if top, ok := s.levels.Peek(); !ok || top.(int) < raw {
		s.levels.Push(raw)
	}

	marker := m[2]
	s.emit(types.ListItem{
		Level:   s.levels.Size() - 1,
		Ordered: marker != "*" && marker != "-",
		Marker:  marker,
		Content: strings.TrimSpace(m[3]),
		Range:   types.LineRange{Start: i, End: i + 1},
	})
	return i + 1, true
}

func indentWidth(indent string) int {
	width := 0
	for _, r := range indent {
		if r == '\t' {
			width += 4
			continue
		}
		width++
	}
	return width
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
