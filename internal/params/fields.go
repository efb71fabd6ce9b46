package params

import (
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

// Reserved field names. Person and group infoboxes render these in their
// header; card grids render the top fields above the grid.
const (
	FieldName           = "이름"
	FieldEnglishName    = "영문명"
	FieldImage          = "이미지"
	FieldImageCaption   = "이미지설명"
	FieldTitle          = "제목"
	FieldTopLogo        = "상단로고"
	FieldTopTitle       = "상단제목"
	FieldTopSubtitle    = "상단부제"
	FieldTopDescription = "상단설명"
	FieldItems          = "items"
)

var templateNames = map[string]types.TemplateKind{
	"정보상자":    types.TemplateInfobox,
	"infobox": types.TemplateInfobox,
	"인물정보상자":  types.TemplatePersonInfobox,
	"person":  types.TemplatePersonInfobox,
	"그룹정보상자":  types.TemplateGroupInfobox,
	"group":   types.TemplateGroupInfobox,
	"카드그리드":   types.TemplateCardGrid,
	"cardgrid": types.TemplateCardGrid,
}

var reservedFields = map[types.TemplateKind]map[string]bool{
	types.TemplatePersonInfobox: {
		FieldName: true, FieldEnglishName: true, FieldImage: true, FieldImageCaption: true,
	},
	types.TemplateGroupInfobox: {
		FieldName: true, FieldEnglishName: true, FieldImage: true, FieldImageCaption: true,
	},
	types.TemplateCardGrid: {
		FieldTopLogo: true, FieldTopTitle: true, FieldTopSubtitle: true,
		FieldTopDescription: true, FieldItems: true,
	},
}

// KindForName maps a template name to its kind. Unknown names are treated as
// generic infoboxes and reported with ok == false.
func KindForName(name string) (types.TemplateKind, bool) {
	kind, ok := templateNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return types.TemplateInfobox, false
	}
	return kind, true
}

// IsReserved reports whether key is rendered in the header of kind rather
// than in its field table.
func IsReserved(kind types.TemplateKind, key string) bool {
	return reservedFields[kind][key]
}

// DisplayParams returns the params of kind that belong in the key/value
// table, in declaration order.
func DisplayParams(kind types.TemplateKind, params []types.Param) []types.Param {
	out := make([]types.Param, 0, len(params))
	for _, p := range params {
		if IsReserved(kind, p.Key) {
			continue
		}
		out = append(out, p)
	}
	return out
}
