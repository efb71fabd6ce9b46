package inline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/conneroisu/wikimark/internal/params"
	"github.com/conneroisu/wikimark/internal/types"
)

// matcher is one entry of the priority table. build turns a submatch into a
// node; it may shorten node.Raw (the candidate then ends earlier) or reject
// the match by returning false. When children is non-zero that submatch is
// parsed recursively, but only for candidates that survive the overlap
// filter.
type matcher struct {
	name     string
	pattern  *regexp.Regexp
	children int
	build    func(m match) (types.InlineNode, bool)
}

// match is a located regexp submatch. group returns the text of submatch i
// and the absolute offset it starts at.
type match struct {
	text    string
	base    int
	indexes []int
}

func (m match) raw() string {
	return m.text[m.indexes[0]:m.indexes[1]]
}

func (m match) group(i int) (string, int) {
	start, end := m.indexes[2*i], m.indexes[2*i+1]
	if start < 0 {
		return "", -1
	}
	return m.text[start:end], m.base + start
}

const urlPrefixes = "http://|https://|ftp://|mailto:"

var (
	schemePattern   = regexp.MustCompile(`^(?i)(` + urlPrefixes + `)`)
	imagePrefixes   = []string{"파일:", "이미지:", "file:", "image:"}
	autoURLTrailing = ".,;:!?)'\""
)

// matchers is the priority-ordered table. Earlier entries win when two
// candidates start at the same offset.
var matchers = []matcher{
	{
		name:    "markdown_link",
		pattern: regexp.MustCompile(`\[([^\[\]]+)\]\(([^\s()]+)\)`),
		build:   buildMarkdownLink,
	},
	{
		name:    "wiki_link",
		pattern: regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]*))?\]\]`),
		build:   buildWikiLink,
	},
	{
		name:     "superscript",
		pattern:  regexp.MustCompile(`\^\^(.+?)\^\^`),
		children: 1,
		build:    styled(types.InlineSuperscript),
	},
	{
		name:     "subscript",
		pattern:  regexp.MustCompile(`,,(.+?),,`),
		children: 1,
		build:    styled(types.InlineSubscript),
	},
	{
		name:    "footnote_ref",
		pattern: regexp.MustCompile(`\[\*([^\s\[\]]*)(?:\s+((?:[^\[\]]|\[\[[^\[\]]*\]\])*))?\]`),
		build:   buildFootnoteRef,
	},
	{
		name:     "bold",
		pattern:  regexp.MustCompile(`'''(.+?)'''`),
		children: 1,
		build:    styled(types.InlineBold),
	},
	{
		name:     "bold_markdown",
		pattern:  regexp.MustCompile(`\*\*([^*\s](?:[^*]*[^*\s])?)\*\*`),
		children: 1,
		build:    styled(types.InlineBold),
	},
	{
		name:     "italic",
		pattern:  regexp.MustCompile(`''(.+?)''`),
		children: 1,
		build:    styled(types.InlineItalic),
	},
	{
		name:    "inline_code",
		pattern: regexp.MustCompile("```(.+?)```"),
		build:   buildCode,
	},
	{
		name:     "strikethrough",
		pattern:  regexp.MustCompile(`~~(.+?)~~`),
		children: 1,
		build:    styled(types.InlineStrikethrough),
	},
	{
		name:     "underline",
		pattern:  regexp.MustCompile(`__(.+?)__`),
		children: 1,
		build:    styled(types.InlineUnderline),
	},
	{
		name:     "colored_text",
		pattern:  regexp.MustCompile(`\{\{\{#([0-9a-zA-Z]{3,30})\s+(.+?)\}\}\}`),
		children: 2,
		build:    buildColored,
	},
	{
		name:     "sized_text",
		pattern:  regexp.MustCompile(`\{\{\{([+-][1-5])\s+(.+?)\}\}\}`),
		children: 2,
		build:    buildSized,
	},
	{
		name:    "code",
		pattern: regexp.MustCompile("`([^`]+)`"),
		build:   buildCode,
	},
	{
		name:    "icon",
		pattern: regexp.MustCompile(`\[(?:icon|아이콘):([A-Za-z0-9_-]+)(?:\|(\d{1,3}))?(?:\|([^\[\]|]+))?\]`),
		build:   buildIcon,
	},
	{
		name:    "auto_url",
		pattern: regexp.MustCompile(`(?i)(?:https?|ftp)://[^\s<>\[\]{}|\\^"` + "`" + `]+`),
		build:   buildAutoURL,
	},
}

func styled(kind types.InlineKind) func(m match) (types.InlineNode, bool) {
	return func(match) (types.InlineNode, bool) {
		return types.InlineNode{Kind: kind}, true
	}
}

func buildMarkdownLink(m match) (types.InlineNode, bool) {
	display, _ := m.group(1)
	target, _ := m.group(2)
	kind := types.InlineInternalLink
	if IsURL(target) {
		kind = types.InlineExternalLink
	}
	return types.InlineNode{Kind: kind, Target: target, Text: display}, true
}

func buildWikiLink(m match) (types.InlineNode, bool) {
	target, _ := m.group(1)
	display, displayOffset := m.group(2)
	target = strings.TrimSpace(target)
	if target == "" {
		return types.InlineNode{}, false
	}
	display = strings.TrimSpace(display)

	for _, prefix := range imagePrefixes {
		if strings.HasPrefix(strings.ToLower(target), prefix) {
			return types.InlineNode{
				Kind:   types.InlineImage,
				Target: strings.TrimSpace(target[len(prefix):]),
				Text:   display,
			}, true
		}
	}

	if displayOffset < 0 || display == "" {
		display = target
	}
	kind := types.InlineInternalLink
	if IsURL(target) {
		kind = types.InlineExternalLink
	}
	return types.InlineNode{Kind: kind, Target: target, Text: display}, true
}

func buildFootnoteRef(m match) (types.InlineNode, bool) {
	key, _ := m.group(1)
	text, _ := m.group(2)
	return types.InlineNode{
		Kind:        types.InlineFootnoteRef,
		FootnoteKey: key,
		Text:        strings.TrimSpace(text),
	}, true
}

func buildCode(m match) (types.InlineNode, bool) {
	code, _ := m.group(1)
	return types.InlineNode{Kind: types.InlineCode, Text: code}, true
}

func buildColored(m match) (types.InlineNode, bool) {
	color, _ := m.group(1)
	normalized := params.NormalizeColor(color)
	if normalized == "" {
		return types.InlineNode{}, false
	}
	return types.InlineNode{Kind: types.InlineColoredText, Color: normalized}, true
}

func buildSized(m match) (types.InlineNode, bool) {
	size, _ := m.group(1)
	n, err := strconv.Atoi(size)
	if err != nil {
		return types.InlineNode{}, false
	}
	return types.InlineNode{Kind: types.InlineSizedText, Size: n}, true
}

func buildIcon(m match) (types.InlineNode, bool) {
	name, _ := m.group(1)
	node := types.InlineNode{Kind: types.InlineIcon, Name: name}
	if size, _ := m.group(2); size != "" {
		node.Size, _ = strconv.Atoi(size)
	}
	if color, _ := m.group(3); color != "" {
		node.Color = params.NormalizeColor(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	}
	return node, true
}

func buildAutoURL(m match) (types.InlineNode, bool) {
	url := strings.TrimRight(m.raw(), autoURLTrailing)
	if !strings.Contains(url, "://") || strings.HasSuffix(url, "://") {
		return types.InlineNode{}, false
	}
	return types.InlineNode{Kind: types.InlineAutoURL, Target: url, Text: url, Raw: url}, true
}

// IsURL reports whether target carries a URL scheme.
func IsURL(target string) bool {
	return schemePattern.MatchString(strings.TrimSpace(target))
}
