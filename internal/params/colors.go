package params

import (
	"regexp"
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

var (
	colorDirectivePattern = regexp.MustCompile(`(?i)<\s*(bgcolor|color|border)\s*[:=]\s*([^<>]*?)\s*>`)
	hexColorPattern       = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	namedColorPattern     = regexp.MustCompile(`^[a-zA-Z]{3,30}$`)
	functionColorPattern  = regexp.MustCompile(`^(?i)(rgb|rgba|hsl|hsla)\(\s*[0-9.%\s,/]+\)$`)
)

// ParseColorAttributes strips every <bgcolor:..>, <color:..> and <border:..>
// directive from value and returns the normalized colors together with the
// remaining content. When a kind occurs more than once the last one wins.
// Directives whose color does not normalize are still stripped.
func ParseColorAttributes(value string) (types.ColorAttributes, string) {
	var colors types.ColorAttributes
	matches := colorDirectivePattern.FindAllStringSubmatch(value, -1)
	if matches == nil {
		return colors, strings.TrimSpace(value)
	}

	for _, m := range matches {
		color := NormalizeColor(m[2])
		if color == "" {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "bgcolor":
			colors.Background = color
		case "color":
			colors.Text = color
		case "border":
			colors.Border = color
		}
	}

	content := colorDirectivePattern.ReplaceAllString(value, "")
	return colors, strings.TrimSpace(content)
}

// NormalizeColor returns a CSS-safe color: bare hex gets a leading '#',
// '#'-prefixed hex, CSS color names and rgb()/hsl() functions pass through.
// Anything else yields "".
func NormalizeColor(raw string) string {
	c := strings.TrimSpace(raw)
	if c == "" {
		return ""
	}
	if hexColorPattern.MatchString(c) {
		if !strings.HasPrefix(c, "#") {
			return "#" + c
		}
		return c
	}
	if namedColorPattern.MatchString(c) {
		return strings.ToLower(c)
	}
	if functionColorPattern.MatchString(c) {
		return c
	}
	return ""
}
