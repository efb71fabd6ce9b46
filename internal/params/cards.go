package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/conneroisu/wikimark/internal/types"
)

var cardFieldAliases = map[string][]string{
	"title":       {"title", "name", "이름", "제목"},
	"subtitle":    {"subtitle", "부제"},
	"image":       {"image", "img", "이미지"},
	"link":        {"link", "href", "링크", "문서"},
	"description": {"description", "desc", "설명"},
	"color":       {"color", "색상"},
}

// ParseCards decodes a card-grid payload: a JSON array of objects, optionally
// prefixed with "items=". Comments and trailing commas are accepted. Unknown
// object keys are ignored; non-string values are formatted with %v.
func ParseCards(payload string) ([]types.Card, error) {
	text := strings.TrimSpace(payload)
	if rest, ok := cutItemsPrefix(text); ok {
		text = rest
	}
	if text == "" {
		return nil, fmt.Errorf("empty card list")
	}
	if !strings.HasPrefix(text, "[") {
		return nil, fmt.Errorf("card list must be a JSON array")
	}

	standard, err := hujson.Standardize([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parsing card list: %w", err)
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(standard, &raw); err != nil {
		return nil, fmt.Errorf("decoding card list: %w", err)
	}

	cards := make([]types.Card, 0, len(raw))
	for _, item := range raw {
		cards = append(cards, types.Card{
			Title:       cardField(item, "title"),
			Subtitle:    cardField(item, "subtitle"),
			Image:       cardField(item, "image"),
			Link:        cardField(item, "link"),
			Description: cardField(item, "description"),
			Color:       NormalizeColor(cardField(item, "color")),
		})
	}
	return cards, nil
}

func cutItemsPrefix(text string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(text), FieldItems) {
		return text, false
	}
	rest := strings.TrimSpace(text[len(FieldItems):])
	if !strings.HasPrefix(rest, "=") {
		return text, false
	}
	return strings.TrimSpace(rest[1:]), true
}

func cardField(item map[string]interface{}, field string) string {
	for _, alias := range cardFieldAliases[field] {
		if v, ok := item[alias]; ok && v != nil {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
