// Package params extracts ordered key/value parameters and color directives
// from template blocks and table cells.
//
// Template bodies and multi-line namu table rows share one continuation
// folder: a line that opens a new entry starts it, and every following
// non-blank line that does not open an entry is appended to the current one
// with a newline. Values can therefore span lines without escaping.
package params

import (
	"regexp"
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

// keyValuePattern matches "key = value" and the namu "|key=value" form. Keys
// may contain spaces (Korean field names often do) but not URL or markup
// punctuation, so continuation lines such as "https://x?a=b" never open a
// new pair.
var keyValuePattern = regexp.MustCompile(`^\s*\|?\s*([^=|<>\[\]{}:/?'"]{1,40}?)\s*=\s*(.*)$`)

// Fold merges continuation lines into the entry opened before them. Lines
// before the first opening line become entries of their own; blank lines are
// dropped.
func Fold(lines []string, opens func(line string) bool) []string {
	folded := make([]string, 0, len(lines))
	current := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if opens(line) || current < 0 {
			folded = append(folded, line)
			current = len(folded) - 1
			continue
		}
		folded[current] += "\n" + line
	}
	return folded
}

// IsKeyValue reports whether line opens a new parameter.
func IsKeyValue(line string) bool {
	return keyValuePattern.MatchString(line)
}

// ParseParams parses a multi-line template body into ordered params.
// Entries that never matched "key = value" are ignored.
func ParseParams(text string) []types.Param {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return fromEntries(Fold(lines, IsKeyValue))
}

// ParseInline parses the single-line form "a=1|b=2" used by {{name|a=1|b=2}}.
func ParseInline(text string) []types.Param {
	pieces := strings.Split(text, "|")
	return fromEntries(Fold(pieces, IsKeyValue))
}

func fromEntries(entries []string) []types.Param {
	params := make([]types.Param, 0, len(entries))
	for _, entry := range entries {
		first, rest, _ := strings.Cut(entry, "\n")
		m := keyValuePattern.FindStringSubmatch(first)
		if m == nil {
			continue
		}
		value := m[2]
		if rest != "" {
			value += "\n" + rest
		}
		value = strings.TrimSpace(value)
		colors, content := ParseColorAttributes(value)
		params = append(params, types.Param{
			Key:     strings.TrimSpace(m[1]),
			Value:   value,
			Content: content,
			Colors:  colors,
		})
	}
	return params
}

// Lookup derives the named-field map. The first declaration of a key wins,
// matching TemplateBlock.Lookup.
func Lookup(params []types.Param) map[string]types.Param {
	m := make(map[string]types.Param, len(params))
	for _, p := range params {
		if _, exists := m[p.Key]; !exists {
			m[p.Key] = p
		}
	}
	return m
}
