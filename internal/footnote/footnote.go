// Package footnote implements two-pass footnote handling.
//
// Extract runs before any inline parsing and collects definition text by
// key. A Numberer then hands out display numbers in first-reference order
// while the document's inline content is parsed, and finally resolves the
// text of every numbered footnote against the extracted Table.
package footnote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/conneroisu/wikimark/internal/segmenter"
	"github.com/conneroisu/wikimark/internal/types"
)

const (
	autoPrefix   = "auto:"
	inlinePrefix = "inline:"
)

// inlineDefinitionPattern matches "[*key text]" embedded in running text.
// The key is required; "[* text]" is an inline footnote, not a definition.
var inlineDefinitionPattern = regexp.MustCompile(`\[\*([^\s\[\]]+)\s+((?:[^\[\]]|\[\[[^\[\]]*\]\])+?)\]`)

// AutoKey is the synthetic key of the n-th anonymous definition or
// reference, counting from 1.
func AutoKey(n int) string {
	return autoPrefix + strconv.Itoa(n)
}

// Table maps definition keys to footnote text.
type Table struct {
	text      map[string]string
	keys      []string
	anonymous []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{text: make(map[string]string)}
}

// Extract collects footnote definitions from source lines, skipping fenced
// code. Whole-line "[*key] text" and embedded "[*key text]" both define a
// key; anonymous whole-line definitions "[*] text" get AutoKey(n) in source
// order. The first definition of a key wins.
func Extract(lines []string) *Table {
	t := NewTable()
	inFence := false
	for _, line := range lines {
		if inFence {
			inFence = !segmenter.ClosesFence(line)
			continue
		}
		if _, ok := segmenter.OpensFence(line); ok {
			inFence = true
			continue
		}

		if key, text, ok := segmenter.Definition(line); ok {
			if key == "" {
				key = AutoKey(len(t.anonymous) + 1)
				t.anonymous = append(t.anonymous, key)
			}
			t.Define(key, text)
			continue
		}
		for _, m := range inlineDefinitionPattern.FindAllStringSubmatch(line, -1) {
			t.Define(m[1], strings.TrimSpace(m[2]))
		}
	}
	return t
}

// Define records text for key unless the key is already defined.
func (t *Table) Define(key, text string) {
	if _, exists := t.text[key]; exists {
		return
	}
	t.text[key] = text
	t.keys = append(t.keys, key)
}

// Lookup returns the text defined for key.
func (t *Table) Lookup(key string) (string, bool) {
	text, ok := t.text[key]
	return text, ok
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	return len(t.keys)
}

// Numberer assigns display numbers in first-reference order. It is scoped to
// one compilation and must not be shared between documents.
type Numberer struct {
	counter    int
	numbers    map[string]int
	order      []string
	carried    map[string]string
	anonymous  int
	inlineOnly int
}

// NewNumberer returns a numberer with no references recorded.
func NewNumberer() *Numberer {
	return &Numberer{
		numbers: make(map[string]int),
		carried: make(map[string]string),
	}
}

// Reference records one reference occurrence and returns the key it was
// recorded under and its display number. A key that was seen before keeps
// its number. Anonymous references "[*]" are keyed AutoKey(n) by
// occurrence, so the n-th one pairs with the n-th anonymous definition;
// anonymous inline footnotes "[* text]" get "inline:<n>" keys and carry
// their own text.
func (n *Numberer) Reference(key, text string) (string, int) {
	switch {
	case key == "" && text == "":
		n.anonymous++
		key = AutoKey(n.anonymous)
	case key == "":
		n.inlineOnly++
		key = inlinePrefix + strconv.Itoa(n.inlineOnly)
	}
	if text != "" {
		if _, ok := n.carried[key]; !ok {
			n.carried[key] = text
		}
	}

	if number, ok := n.numbers[key]; ok {
		return key, number
	}
	n.counter++
	n.numbers[key] = n.counter
	n.order = append(n.order, key)
	return key, n.counter
}

// Count returns the number of distinct footnotes referenced so far.
func (n *Numberer) Count() int {
	return n.counter
}

// Footnotes resolves the text of footnotes 1..Count. For each number the
// text comes from, in order: the definition with the reference's key, text
// carried by the reference itself, the definition keyed by the display
// number, the next anonymous definition not claimed by key, and finally a
// "footnote N" placeholder.
func (n *Numberer) Footnotes(table *Table) []types.Footnote {
	if table == nil {
		table = NewTable()
	}

	claimed := make(map[string]bool, len(n.order))
	for _, key := range n.order {
		if _, ok := table.Lookup(key); ok {
			claimed[key] = true
		}
	}
	anonymous := make([]string, 0, len(table.anonymous))
	for _, key := range table.anonymous {
		if !claimed[key] {
			anonymous = append(anonymous, key)
		}
	}

	notes := make([]types.Footnote, 0, len(n.order))
	for i, key := range n.order {
		number := i + 1
		text, ok := table.Lookup(key)
		if !ok {
			text, ok = n.carried[key]
		}
		if !ok {
			numeric := strconv.Itoa(number)
			if !claimed[numeric] {
				if text, ok = table.Lookup(numeric); ok {
					claimed[numeric] = true
				}
			}
		}
		if !ok && len(anonymous) > 0 {
			text, ok = table.text[anonymous[0]], true
			anonymous = anonymous[1:]
		}
		if !ok {
			text = fmt.Sprintf("footnote %d", number)
		}
		notes = append(notes, types.Footnote{Number: number, Key: key, Text: text})
	}
	return notes
}

// Unreferenced returns defined keys that no reference resolved to by key,
// in source order. Anonymous definitions are skipped since they pair by
// position.
func (n *Numberer) Unreferenced(table *Table) []string {
	var out []string
	for _, key := range table.keys {
		if strings.HasPrefix(key, autoPrefix) {
			continue
		}
		if _, ok := n.numbers[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
