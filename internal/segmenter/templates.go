package segmenter

import (
	"fmt"
	"strings"

	"github.com/conneroisu/wikimark/internal/params"
	"github.com/conneroisu/wikimark/internal/types"
)

func (s *scanner) roleBanner(i int) (int, bool) {
	m := rolePattern.FindStringSubmatch(strings.TrimSpace(s.lines[i]))
	if m == nil {
		return i, false
	}
	s.emit(types.Directive{
		Directive: types.DirectiveRoleBanner,
		Args:      []string{m[1]},
		Range:     types.LineRange{Start: i, End: i + 1},
	})
	return i + 1, true
}

// template consumes a {{name<attrs> ... }} block. The block is single-line
// when its closing "}}" appears on the opening line, and text after it on
// that line becomes a paragraph. Otherwise the block runs to a line that is
// exactly "}}". Without that line the opening line degrades to paragraph
// text and scanning resumes right after it.
func (s *scanner) template(i int) (int, bool) {
	m := templateOpenPattern.FindStringSubmatch(strings.TrimSpace(s.lines[i]))
	if m == nil {
		return i, false
	}
	name, attrs, rest := m[1], m[2], m[3]

	if idx := templateClose(rest); idx >= 0 {
		block := newTemplate(name, attrs, params.ParseInline(rest[:idx]))
		s.emitTemplate(block, i, i+1)
		if tail := strings.TrimSpace(rest[idx+2:]); tail != "" {
			s.emit(types.Paragraph{Text: []string{tail}, Range: types.LineRange{Start: i, End: i + 1}})
		}
		return i + 1, true
	}

	end := i + 1
	for end < len(s.lines) && strings.TrimSpace(s.lines[end]) != "}}" {
		end++
	}
	if end == len(s.lines) {
		s.warn(i, i+1, "unterminated template {{%s}}: missing closing }}, kept as text", name)
		return s.paragraph(i), true
	}

	body := s.lines[i+1 : end]
	if strings.TrimSpace(rest) != "" {
		body = append([]string{rest}, body...)
	}
	block := newTemplate(name, attrs, params.ParseParams(strings.Join(body, "\n")))
	s.emitTemplate(block, i, end+1)
	return end + 1, true
}

// templateClose returns the index in rest of the "}}" closing a template
// opened before rest, or -1. Nested {{ }} pairs and {{{ }}} spans inside
// parameter values are skipped; when they do not balance, the last "}}" on
// the line closes the template.
func templateClose(rest string) int {
	depth := 1
	for i := 0; i+1 < len(rest); i++ {
		switch {
		case strings.HasPrefix(rest[i:], "{{{"):
			depth++
			i += 2
		case strings.HasPrefix(rest[i:], "}}}") && depth > 1:
			depth--
			i += 2
		case strings.HasPrefix(rest[i:], "{{"):
			depth++
			i++
		case strings.HasPrefix(rest[i:], "}}"):
			depth--
			if depth == 0 {
				return i
			}
			i++
		}
	}
	return strings.LastIndex(rest, "}}")
}

func newTemplate(name, attrs string, ps []types.Param) types.TemplateBlock {
	kind, _ := params.KindForName(name)
	colors, _ := params.ParseColorAttributes(attrs)
	return types.TemplateBlock{
		Template: kind,
		Name:     name,
		Params:   ps,
		Colors:   colors,
	}
}

// emitTemplate decodes card payloads and emits the block, or an ErrorBlock
// when a card grid's items cannot be decoded.
func (s *scanner) emitTemplate(block types.TemplateBlock, start, end int) {
	block.Range = types.LineRange{Start: start, End: end}
	if block.Template == types.TemplateCardGrid {
		items, ok := block.Lookup(params.FieldItems)
		if !ok {
			s.emitError(fmt.Errorf("card grid has no %s", params.FieldItems), start, end)
			return
		}
		cards, err := params.ParseCards(items.Value)
		if err != nil {
			s.emitError(err, start, end)
			return
		}
		block.Cards = cards
	}
	s.emit(block)
}

// cardGrid consumes a [[카드그리드: ...]] directive, which may span lines
// until one ends with "]]". The payload is either a bare card array
// (optionally "items=") or template-style params carrying an items field.
func (s *scanner) cardGrid(i int) (int, bool) {
	end := i
	for end < len(s.lines) && !strings.HasSuffix(strings.TrimSpace(s.lines[end]), "]]") {
		end++
	}
	if end == len(s.lines) {
		// Without a closing ]] the grid runs to the next blank line.
		end = i + 1
		for end < len(s.lines) && !isBlank(s.lines[end]) {
			end++
		}
		s.emitError(fmt.Errorf("unterminated card grid: missing closing ]]"), i, end)
		return end, true
	}
	end++

	raw := strings.TrimSpace(strings.Join(s.lines[i:end], "\n"))
	loc := cardGridPrefixPattern.FindStringIndex(raw)
	payload := strings.TrimSpace(strings.TrimSuffix(raw[loc[1]:], "]]"))

	block := types.TemplateBlock{
		Template: types.TemplateCardGrid,
		Name:     "카드그리드",
	}
	if strings.HasPrefix(payload, "[") {
		block.Params = []types.Param{{Key: params.FieldItems, Value: payload}}
	} else {
		block.Params = params.ParseParams(payload)
	}
	s.emitTemplate(block, i, end)
	return end, true
}

func (s *scanner) emitError(err error, start, end int) {
	s.emit(types.ErrorBlock{
		Message: err.Error(),
		Raw:     strings.Join(s.lines[start:end], "\n"),
		Range:   types.LineRange{Start: start, End: end},
	})
}
