// Package toc builds heading anchors and the table of contents.
package toc

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/wikimark/internal/types"
)

// DefaultSlug replaces titles that slugify to nothing.
const DefaultSlug = "section"

// Slugify returns the deterministic anchor slug for title: NFC-normalized,
// lowercased, non-word characters dropped, whitespace runs collapsed to a
// single hyphen and hyphens trimmed from both ends. Letters and digits of
// any script are kept.
func Slugify(title string) string {
	title = cases.Lower(language.Und).String(norm.NFC.String(title))

	var sb strings.Builder
	pendingHyphen := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_':
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
		}
	}
	return sb.String()
}

// Slugger hands out collision-free anchors within one document. The first
// use of a slug is returned as is; later uses get "-2", "-3" and so on,
// skipping any suffixed form already taken.
type Slugger struct {
	used map[string]bool
	next map[string]int
}

// NewSlugger returns a slugger with no anchors taken.
func NewSlugger() *Slugger {
	return &Slugger{
		used: make(map[string]bool),
		next: make(map[string]int),
	}
}

// Slug returns a unique anchor for title.
func (s *Slugger) Slug(title string) string {
	base := Slugify(title)
	if base == "" {
		base = DefaultSlug
	}
	if !s.used[base] {
		s.used[base] = true
		return base
	}
	n := s.next[base]
	if n < 2 {
		n = 2
	}
	for {
		candidate := base + "-" + strconv.Itoa(n)
		n++
		if !s.used[candidate] {
			s.used[candidate] = true
			s.next[base] = n
			return candidate
		}
	}
}

// Outline accumulates table-of-contents entries in document order and
// numbers them hierarchically ("1.", "1.1.", "2."). Skipped heading levels
// nest one step, so "=" followed by "===" numbers the second as "1.1.".
type Outline struct {
	slugger  *Slugger
	levels   []int
	counters []int
	entries  []types.TOCEntry
}

// NewOutline returns an outline that draws anchors from slugger. A nil
// slugger gets a fresh one.
func NewOutline(slugger *Slugger) *Outline {
	if slugger == nil {
		slugger = NewSlugger()
	}
	return &Outline{slugger: slugger}
}

// Add records a heading and returns its entry.
func (o *Outline) Add(level int, title string) types.TOCEntry {
	for len(o.levels) > 0 && o.levels[len(o.levels)-1] >= level {
		o.levels = o.levels[:len(o.levels)-1]
	}
	o.levels = append(o.levels, level)
	depth := len(o.levels)

	for len(o.counters) < depth {
		o.counters = append(o.counters, 0)
	}
	o.counters = o.counters[:depth]
	o.counters[depth-1]++

	parts := make([]string, depth)
	for i, c := range o.counters {
		parts[i] = strconv.Itoa(c)
	}

	entry := types.TOCEntry{
		Level:  level,
		Title:  title,
		Anchor: o.slugger.Slug(title),
		Number: strings.Join(parts, ".") + ".",
	}
	o.entries = append(o.entries, entry)
	return entry
}

// Entries returns the entries added so far.
func (o *Outline) Entries() []types.TOCEntry {
	return append([]types.TOCEntry(nil), o.entries...)
}

// Build returns the table of contents for headings using plain titles.
func Build(headings []types.Heading) []types.TOCEntry {
	o := NewOutline(nil)
	for _, h := range headings {
		o.Add(h.Level, h.Title)
	}
	return o.Entries()
}
