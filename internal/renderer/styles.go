package renderer

import (
	"strings"

	"github.com/aymerick/douceur/css"

	"github.com/conneroisu/wikimark/internal/types"
)

// fontSizes maps {{{+N text}}} steps to relative sizes.
var fontSizes = map[int]string{
	-5: "0.5em", -4: "0.6em", -3: "0.7em", -2: "0.8em", -1: "0.9em",
	1: "1.2em", 2: "1.4em", 3: "1.6em", 4: "1.8em", 5: "2em",
}

func fontSize(step int) string {
	if size, ok := fontSizes[step]; ok {
		return size
	}
	return "1em"
}

func decl(property, value string) *css.Declaration {
	return &css.Declaration{Property: property, Value: value}
}

// inlineStyle serializes declarations with a value into a style attribute.
// Values reaching here are normalized colors or fixed sizes.
func inlineStyle(decls ...*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d == nil || d.Value == "" {
			continue
		}
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

func colorDecls(c types.ColorAttributes) []*css.Declaration {
	var decls []*css.Declaration
	if c.Background != "" {
		decls = append(decls, decl("background-color", c.Background))
	}
	if c.Text != "" {
		decls = append(decls, decl("color", c.Text))
	}
	if c.Border != "" {
		decls = append(decls, decl("border", "1px solid "+c.Border))
	}
	return decls
}

func colorStyle(c types.ColorAttributes) string {
	return inlineStyle(colorDecls(c)...)
}

func cellStyle(c types.ColorAttributes, align types.Alignment) string {
	decls := colorDecls(c)
	if a := align.String(); a != "" {
		decls = append(decls, decl("text-align", a))
	}
	return inlineStyle(decls...)
}

func rule(selector string, decls ...*css.Declaration) *css.Rule {
	r := css.NewRule(css.QualifiedRule)
	r.Selectors = []string{selector}
	r.Declarations = decls
	return r
}

// Stylesheet returns the base stylesheet for rendered documents.
func Stylesheet() string {
	sheet := css.NewStylesheet()
	sheet.Rules = []*css.Rule{
		rule(".wm-document",
			decl("line-height", "1.7"),
			decl("word-break", "keep-all"),
		),
		rule(".wm-heading",
			decl("border-bottom", "1px solid #ddd"),
			decl("padding-bottom", "0.2em"),
		),
		rule(".wm-heading-number",
			decl("color", "#0275d8"),
			decl("text-decoration", "none"),
		),
		rule(".wm-table",
			decl("border-collapse", "collapse"),
			decl("margin", "0.5em 0"),
		),
		rule(".wm-table th, .wm-table td",
			decl("border", "1px solid #ccc"),
			decl("padding", "0.3em 0.6em"),
		),
		rule(".wm-quote",
			decl("border-left", "4px solid #71bc6d"),
			decl("background", "#eee"),
			decl("margin", "0.5em 0"),
			decl("padding", "0.5em 1em"),
		),
		rule(".wm-infobox",
			decl("float", "right"),
			decl("width", "22em"),
			decl("margin", "0 0 1em 1em"),
			decl("border", "2px solid #ccc"),
		),
		rule(".wm-card-grid .wm-cards",
			decl("display", "grid"),
			decl("grid-template-columns", "repeat(auto-fill, minmax(10em, 1fr))"),
			decl("gap", "1em"),
		),
		rule(".wm-card",
			decl("display", "block"),
			decl("border", "1px solid #ccc"),
			decl("border-radius", "6px"),
			decl("padding", "0.5em"),
		),
		rule(".wm-card img",
			decl("max-width", "100%"),
		),
		rule(".wm-toc",
			decl("display", "inline-block"),
			decl("border", "1px solid #ccc"),
			decl("padding", "0.5em 1.5em"),
		),
		rule(".wm-footnotes",
			decl("border-top", "1px solid #ccc"),
			decl("font-size", "0.9em"),
		),
		rule(".wm-error",
			decl("border", "2px solid #d9534f"),
			decl("background", "#fdf2f2"),
			decl("padding", "0.5em 1em"),
		),
		rule(".wm-role-banner",
			decl("font-weight", "bold"),
			decl("padding", "0.5em 1em"),
			decl("background", "#f5f5f5"),
		),
	}
	return sheet.String()
}
