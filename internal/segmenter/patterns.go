package segmenter

import (
	"regexp"
	"strings"
)

var (
	fenceOpenPattern       = regexp.MustCompile("^`{3,}\\s*([^`]*)$")
	namuHeadingPattern     = regexp.MustCompile(`^(=+)\s*(.+?)\s*=+$`)
	markdownHeadingPattern = regexp.MustCompile(`^(#+)\s*(.+?)(?:\s+#+)?$`)
	horizontalRulePattern  = regexp.MustCompile(`^-{4,}$`)
	listItemPattern        = regexp.MustCompile(`^(\s*)([*-]|\d+\.)\s+(.+)$`)
	quotePattern           = regexp.MustCompile(`^>\s?`)
	definitionPattern      = regexp.MustCompile(`^\[\*([^\s\[\]]*)\]\s+(\S.*)$`)
	markdownRowPattern     = regexp.MustCompile(`^\|.*\|\s*$`)
	separatorCellPattern   = regexp.MustCompile(`^:?-+:?$`)
	templateOpenPattern    = regexp.MustCompile(`^\{\{\s*([^\s<|{}]+)\s*((?:<[^<>]*>\s*)*)(.*)$`)
	rolePattern            = regexp.MustCompile(`^\{\{\s*(?:role|역할)\s*:\s*([^{}|]+?)\s*\}\}$`)
	cardGridPrefixPattern  = regexp.MustCompile(`^\[\[\s*(?:카드그리드|cardgrid)\s*:`)
)

// Definition parses a standalone footnote definition line "[*key] text".
// The whole line must be the definition: leading whitespace disqualifies it.
func Definition(line string) (key, text string, ok bool) {
	if strings.TrimLeft(line, " \t") != line {
		return "", "", false
	}
	m := definitionPattern.FindStringSubmatch(strings.TrimRight(line, " \t"))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// OpensFence reports whether line opens a code fence and returns its
// language tag.
func OpensFence(line string) (string, bool) {
	m := fenceOpenPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	lang := strings.TrimSpace(m[1])
	if i := strings.IndexAny(lang, " \t"); i >= 0 {
		lang = lang[:i]
	}
	return lang, true
}

// ClosesFence reports whether line closes an open code fence.
func ClosesFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func startsFence(line string) bool {
	_, ok := OpensFence(line)
	return ok
}

func isDefinition(line string) bool {
	_, _, ok := Definition(line)
	return ok
}

func startsHeading(line string) bool {
	_, _, ok := parseHeading(line)
	return ok
}

// parseHeading recognizes "== title ==" and "## title". Level is the count
// of leading markers before clamping.
func parseHeading(line string) (level int, title string, ok bool) {
	t := strings.TrimSpace(line)
	m := namuHeadingPattern.FindStringSubmatch(t)
	if m == nil {
		m = markdownHeadingPattern.FindStringSubmatch(t)
	}
	if m == nil {
		return 0, "", false
	}
	title = strings.TrimSpace(m[2])
	if strings.Trim(title, "=# ") == "" {
		return 0, "", false
	}
	return len(m[1]), title, true
}

func startsRole(line string) bool {
	return rolePattern.MatchString(strings.TrimSpace(line))
}

func startsTemplate(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "{{") && !strings.HasPrefix(t, "{{{")
}

func startsCardGrid(line string) bool {
	return cardGridPrefixPattern.MatchString(strings.TrimSpace(line))
}

func startsNamuTable(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "||")
}

func startsMarkdownTable(line string) bool {
	t := strings.TrimSpace(line)
	return !strings.HasPrefix(t, "||") && markdownRowPattern.MatchString(t)
}

func isHorizontalRule(line string) bool {
	return horizontalRulePattern.MatchString(strings.TrimSpace(line))
}

func startsQuote(line string) bool {
	return quotePattern.MatchString(strings.TrimSpace(line))
}

func startsListItem(line string) bool {
	return listItemPattern.MatchString(line)
}
