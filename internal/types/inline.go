package types

import "strings"

// InlineKind identifies the span-level construct an InlineNode represents.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineBold
	InlineItalic
	InlineStrikethrough
	InlineUnderline
	InlineSuperscript
	InlineSubscript
	InlineCode
	InlineColoredText
	InlineSizedText
	InlineFootnoteRef
	InlineInternalLink
	InlineExternalLink
	InlineIcon
	InlineAutoURL
	InlineImage
)

var inlineKindNames = map[InlineKind]string{
	InlineText:          "text",
	InlineBold:          "bold",
	InlineItalic:        "italic",
	InlineStrikethrough: "strikethrough",
	InlineUnderline:     "underline",
	InlineSuperscript:   "superscript",
	InlineSubscript:     "subscript",
	InlineCode:          "code",
	InlineColoredText:   "colored_text",
	InlineSizedText:     "sized_text",
	InlineFootnoteRef:   "footnote_ref",
	InlineInternalLink:  "internal_link",
	InlineExternalLink:  "external_link",
	InlineIcon:          "icon",
	InlineAutoURL:       "auto_url",
	InlineImage:         "image",
}

// String returns the string representation of the inline kind
func (k InlineKind) String() string {
	if name, ok := inlineKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// InlineNode is a tagged span. Which fields are meaningful depends on Kind:
//
//	Text, Code           Text
//	Bold .. Subscript    Children
//	ColoredText          Color, Children
//	SizedText            Size, Children
//	FootnoteRef          FootnoteKey, FootnoteNumber
//	InternalLink         Target, Text
//	ExternalLink/AutoURL Target, Text
//	Icon                 Name, Size, Color
//	Image                Target, Text (caption)
//
// Start and End are byte offsets into the text the node was parsed from and
// Raw is the exact source slice, so the top-level nodes of a parse always
// concatenate back to the input.
type InlineNode struct {
	Kind           InlineKind
	Text           string
	Children       []InlineNode
	Target         string
	Color          string
	Size           int
	Name           string
	FootnoteKey    string
	FootnoteNumber int
	Start          int
	End            int
	Raw            string
}

// PlainText flattens nodes to their visible text, dropping markup and
// footnote references.
func PlainText(nodes []InlineNode) string {
	var sb strings.Builder
	writePlain(&sb, nodes)
	return sb.String()
}

func writePlain(sb *strings.Builder, nodes []InlineNode) {
	for _, n := range nodes {
		switch n.Kind {
		case InlineFootnoteRef, InlineIcon, InlineImage:
		case InlineText, InlineCode, InlineInternalLink, InlineExternalLink, InlineAutoURL:
			sb.WriteString(n.Text)
		default:
			writePlain(sb, n.Children)
		}
	}
}
