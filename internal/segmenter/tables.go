package segmenter

import (
	"strings"

	"github.com/conneroisu/wikimark/internal/params"
	"github.com/conneroisu/wikimark/internal/types"
)

// namuTable consumes "|| a || b ||" rows. A row that does not end with "||"
// continues on the following lines until one does; those lines are folded
// into the row's last cell by the shared continuation folder.
func (s *scanner) namuTable(i int) (int, bool) {
	end := i
	open := false
	for end < len(s.lines) {
		line := s.lines[end]
		if isBlank(line) {
			break
		}
		starts := startsNamuTable(line)
		if !starts && (!open || startsBlock(line)) {
			break
		}
		body := strings.TrimSpace(line)
		if starts {
			body = body[2:]
		}
		open = !strings.HasSuffix(body, "||")
		end++
	}

	rows := params.Fold(s.lines[i:end], startsNamuTable)
	table := types.Table{
		Grammar: types.TableNamu,
		Header:  true,
		Range:   types.LineRange{Start: i, End: end},
	}
	for _, row := range rows {
		if cells := namuCells(row); len(cells) > 0 {
			table.Rows = append(table.Rows, cells)
		}
	}
	s.emit(table)
	return end, true
}

func namuCells(row string) []types.Cell {
	fragments := strings.Split(strings.TrimSpace(row), "||")
	if len(fragments) > 0 && strings.TrimSpace(fragments[0]) == "" {
		fragments = fragments[1:]
	}
	if n := len(fragments); n > 0 && strings.TrimSpace(fragments[n-1]) == "" {
		fragments = fragments[:n-1]
	}
	cells := make([]types.Cell, 0, len(fragments))
	for _, f := range fragments {
		cells = append(cells, newCell(f))
	}
	return cells
}

// markdownTable consumes "| a | b |" rows. The second row must be a
// separator; otherwise the lines are kept as a paragraph, with a warning
// when there was more than one row.
func (s *scanner) markdownTable(i int) (int, bool) {
	end := i
	for end < len(s.lines) && startsMarkdownTable(s.lines[end]) {
		end++
	}

	var align []types.Alignment
	ok := end-i >= 2
	if ok {
		align, ok = parseSeparator(s.lines[i+1])
	}
	if !ok {
		if end-i >= 2 {
			s.warn(i, end, "markdown table has no separator row after its header, kept as text")
		}
		text := make([]string, 0, end-i)
		for _, line := range s.lines[i:end] {
			text = append(text, strings.TrimSpace(line))
		}
		s.emit(types.Paragraph{Text: text, Range: types.LineRange{Start: i, End: end}})
		return end, true
	}

	header := markdownCells(s.lines[i])
	width := len(header)
	if len(align) < width {
		align = append(align, make([]types.Alignment, width-len(align))...)
	}
	table := types.Table{
		Grammar: types.TableMarkdown,
		Header:  true,
		Align:   align[:width],
		Rows:    [][]types.Cell{header},
		Range:   types.LineRange{Start: i, End: end},
	}
	for _, line := range s.lines[i+2 : end] {
		row := markdownCells(line)
		for len(row) < width {
			row = append(row, types.Cell{})
		}
		table.Rows = append(table.Rows, row[:width])
	}
	s.emit(table)
	return end, true
}

func markdownFragments(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	return strings.Split(t, "|")
}

func markdownCells(line string) []types.Cell {
	fragments := markdownFragments(line)
	cells := make([]types.Cell, 0, len(fragments))
	for _, f := range fragments {
		cells = append(cells, newCell(f))
	}
	return cells
}

// parseSeparator reads column alignment from a "| :-- | :-: | --: |" row.
func parseSeparator(line string) ([]types.Alignment, bool) {
	fragments := markdownFragments(line)
	align := make([]types.Alignment, 0, len(fragments))
	for _, f := range fragments {
		cell := strings.TrimSpace(f)
		if !separatorCellPattern.MatchString(cell) {
			return nil, false
		}
		left := strings.HasPrefix(cell, ":")
		right := strings.HasSuffix(cell, ":") && len(cell) > 1
		switch {
		case left && right:
			align = append(align, types.AlignCenter)
		case left:
			align = append(align, types.AlignLeft)
		case right:
			align = append(align, types.AlignRight)
		default:
			align = append(align, types.AlignDefault)
		}
	}
	return align, true
}

func newCell(raw string) types.Cell {
	raw = strings.TrimSpace(raw)
	colors, content := params.ParseColorAttributes(raw)
	return types.Cell{Raw: raw, Content: content, Colors: colors}
}
