// Package highlight renders code fences to class-annotated HTML with chroma.
package highlight

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is used when no style name is configured.
const DefaultStyle = "github"

// ErrUnknownLanguage is returned when neither the language tag nor content
// analysis selects a lexer.
var ErrUnknownLanguage = errors.New("unknown code language")

// Highlighter selects lexers by tag, then by file extension, then by content
// analysis. Only lexers found by tag or extension are cached, so the result
// for one fence never depends on fences highlighted before it. It is safe for
// concurrent use.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter

	mu     sync.RWMutex
	lexers map[string]chroma.Lexer
}

// New creates a highlighter using the named chroma style. Unknown names fall
// back to chroma's default style.
func New(styleName string) *Highlighter {
	if styleName == "" {
		styleName = DefaultStyle
	}
	return &Highlighter{
		style: styles.Get(styleName),
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
		lexers: make(map[string]chroma.Lexer),
	}
}

// Highlight returns code as HTML spans for placement inside <code>.
func (h *Highlighter) Highlight(code, lang string) (string, error) {
	lexer := h.lexer(code, lang)
	if lexer == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenising %s: %w", lexer.Config().Name, err)
	}

	var sb strings.Builder
	if err := h.formatter.Format(&sb, h.style, iterator); err != nil {
		return "", fmt.Errorf("formatting %s: %w", lexer.Config().Name, err)
	}
	return sb.String(), nil
}

// Language reports the name of the lexer Highlight would use, or "" when
// none matches.
func (h *Highlighter) Language(code, lang string) string {
	if lexer := h.lexer(code, lang); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}

// WriteCSS writes the stylesheet for the highlighter's classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}

// StyleName returns the name of the active style.
func (h *Highlighter) StyleName() string {
	return h.style.Name
}

func (h *Highlighter) lexer(code, lang string) chroma.Lexer {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		if lexer := lexers.Analyse(code); lexer != nil {
			return chroma.Coalesce(lexer)
		}
		return nil
	}

	h.mu.RLock()
	lexer, ok := h.lexers[lang]
	h.mu.RUnlock()
	if ok {
		return lexer
	}

	lexer = lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Match("file." + lang)
	}
	if lexer == nil {
		if analysed := lexers.Analyse(code); analysed != nil {
			return chroma.Coalesce(analysed)
		}
		return nil
	}

	lexer = chroma.Coalesce(lexer)
	h.mu.Lock()
	h.lexers[lang] = lexer
	h.mu.Unlock()
	return lexer
}

// KnownStyle reports whether chroma registers a style called name.
func KnownStyle(name string) bool {
	_, ok := styles.Registry[strings.ToLower(name)]
	return ok
}
