package segmenter

import (
	"regexp"
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

// directivePattern is one whole-line directive form. build turns the
// submatches into a Directive.
type directivePattern struct {
	pattern *regexp.Regexp
	build   func(m []string) types.Directive
}

var (
	categoryTagPattern = regexp.MustCompile(`\[\[\s*분류\s*:\s*([^\[\]]+?)\s*\]\]`)

	directives = []directivePattern{
		{
			pattern: regexp.MustCompile(`(?i)^\[{1,2}\s*(?:목차|toc)\s*\]{1,2}$`),
			build: func([]string) types.Directive {
				return types.Directive{Directive: types.DirectiveTOC}
			},
		},
		{
			pattern: regexp.MustCompile(`^(?:\[\[\s*분류\s*:[^\[\]]+\]\]\s*)+$`),
			build: func(m []string) types.Directive {
				var names []string
				for _, c := range categoryTagPattern.FindAllStringSubmatch(m[0], -1) {
					names = append(names, c[1])
				}
				return types.Directive{Directive: types.DirectiveCategoryTag, Args: names}
			},
		},
		{
			pattern: regexp.MustCompile(`^분류\s*:\s*(.+)$`),
			build: func(m []string) types.Directive {
				return types.Directive{Directive: types.DirectiveCategoryTag, Args: splitArgs(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)^\[\[\s*(?:탭|tabs?)\s*:\s*(.+?)\s*\]\]$`),
			build: func(m []string) types.Directive {
				return types.Directive{Directive: types.DirectiveTabBar, Args: splitArgs(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)^\[\s*(?:이미지|image)\s*:\s*([^\[\]|]+?)\s*(?:\|\s*([^\[\]]*?)\s*)?\]$`),
			build: func(m []string) types.Directive {
				return types.Directive{Directive: types.DirectiveImage, Args: []string{m[1]}, Caption: m[2]}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)^\[\[\s*(?:파일|file)\s*:\s*([^\[\]|]+?)\s*(?:\|\s*([^\[\]]*?)\s*)?\]\]$`),
			build: func(m []string) types.Directive {
				return types.Directive{Directive: types.DirectiveFile, Args: []string{m[1]}, Caption: m[2]}
			},
		},
	}
)

func startsDirective(line string) bool {
	_, ok := matchDirective(line)
	return ok
}

func matchDirective(line string) (types.Directive, bool) {
	t := strings.TrimSpace(line)
	for _, d := range directives {
		if m := d.pattern.FindStringSubmatch(t); m != nil {
			return d.build(m), true
		}
	}
	return types.Directive{}, false
}

func (s *scanner) directive(i int) (int, bool) {
	d, ok := matchDirective(s.lines[i])
	if !ok {
		return i, false
	}
	d.Range = types.LineRange{Start: i, End: i + 1}
	s.emit(d)
	return i + 1, true
}

// splitArgs splits "A | B" into trimmed, non-empty operands.
func splitArgs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
