package types

// BlockKind identifies the concrete type behind a Block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockQuote
	BlockCodeFence
	BlockTable
	BlockTemplate
	BlockDirective
	BlockHorizontalRule
	BlockError
)

var blockKindNames = map[BlockKind]string{
	BlockParagraph:      "paragraph",
	BlockHeading:        "heading",
	BlockListItem:       "list_item",
	BlockQuote:          "quote",
	BlockCodeFence:      "code_fence",
	BlockTable:          "table",
	BlockTemplate:       "template",
	BlockDirective:      "directive",
	BlockHorizontalRule: "horizontal_rule",
	BlockError:          "error",
}

// String returns the string representation of the block kind
func (k BlockKind) String() string {
	if name, ok := blockKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Block is a top-level structural unit of a document.
type Block interface {
	Kind() BlockKind
	Lines() LineRange
}

// Heading is a section title. Anchor and Number are filled in by the
// compiler; the segmenter leaves them empty.
type Heading struct {
	Level   int
	Title   string
	Anchor  string
	Number  string
	Inlines []InlineNode
	Range   LineRange
}

func (Heading) Kind() BlockKind    { return BlockHeading }
func (h Heading) Lines() LineRange { return h.Range }

// ListItem is a single bullet or numbered item. Level is the normalized
// nesting depth starting at zero.
type ListItem struct {
	Level   int
	Ordered bool
	Marker  string
	Content string
	Inlines []InlineNode
	Range   LineRange
}

func (ListItem) Kind() BlockKind    { return BlockListItem }
func (l ListItem) Lines() LineRange { return l.Range }

// Quote is a run of consecutive "> " lines.
type Quote struct {
	Content string
	Inlines [][]InlineNode
	Range   LineRange
}

func (Quote) Kind() BlockKind    { return BlockQuote }
func (q Quote) Lines() LineRange { return q.Range }

// CodeFence is a fenced code block. Code is kept verbatim.
type CodeFence struct {
	Language string
	Code     string
	Range    LineRange
}

func (CodeFence) Kind() BlockKind    { return BlockCodeFence }
func (c CodeFence) Lines() LineRange { return c.Range }

// TableGrammar records which table syntax produced a Table.
type TableGrammar int

const (
	TableNamu TableGrammar = iota
	TableMarkdown
)

// Alignment is a markdown column alignment.
type Alignment int

const (
	AlignDefault Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// String returns the CSS text-align value, or "" for the default.
func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return ""
	}
}

// Table is a grid of cells. Row 0 is the header row when Header is set.
type Table struct {
	Grammar TableGrammar
	Rows    [][]Cell
	Align   []Alignment
	Header  bool
	Range   LineRange
}

func (Table) Kind() BlockKind    { return BlockTable }
func (t Table) Lines() LineRange { return t.Range }

// ColorAttributes are the per-cell color directives. Empty means unset.
type ColorAttributes struct {
	Background string `json:"background,omitempty"`
	Text       string `json:"text,omitempty"`
	Border     string `json:"border,omitempty"`
}

// IsZero reports whether no color is set.
func (c ColorAttributes) IsZero() bool {
	return c.Background == "" && c.Text == "" && c.Border == ""
}

// Cell is one table cell. Content is Raw with color directives stripped.
type Cell struct {
	Raw     string
	Content string
	Colors  ColorAttributes
	Inlines []InlineNode
}

// TemplateKind is the semantic type of a template block.
type TemplateKind int

const (
	TemplateInfobox TemplateKind = iota
	TemplatePersonInfobox
	TemplateGroupInfobox
	TemplateCardGrid
)

// String returns the string representation of the template kind
func (k TemplateKind) String() string {
	switch k {
	case TemplateInfobox:
		return "infobox"
	case TemplatePersonInfobox:
		return "person_infobox"
	case TemplateGroupInfobox:
		return "group_infobox"
	case TemplateCardGrid:
		return "card_grid"
	default:
		return "unknown"
	}
}

// Param is one key/value pair of a template block, in declaration order.
type Param struct {
	Key     string
	Value   string
	Content string
	Colors  ColorAttributes
	Inlines []InlineNode
}

// Card is one entry of a card grid.
type Card struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Image       string `json:"image,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// TemplateBlock is a {{...}} construct or a card grid directive.
type TemplateBlock struct {
	Template TemplateKind
	Name     string
	Params   []Param
	Colors   ColorAttributes
	Cards    []Card
	Range    LineRange
}

func (TemplateBlock) Kind() BlockKind    { return BlockTemplate }
func (t TemplateBlock) Lines() LineRange { return t.Range }

// Lookup returns the first param value with the given key.
func (t TemplateBlock) Lookup(key string) (Param, bool) {
	for _, p := range t.Params {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

// DirectiveKind identifies a single-line directive.
type DirectiveKind int

const (
	DirectiveTOC DirectiveKind = iota
	DirectiveCategoryTag
	DirectiveRoleBanner
	DirectiveTabBar
	DirectiveImage
	DirectiveFile
)

// String returns the string representation of the directive kind
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveTOC:
		return "toc"
	case DirectiveCategoryTag:
		return "category"
	case DirectiveRoleBanner:
		return "role_banner"
	case DirectiveTabBar:
		return "tab_bar"
	case DirectiveImage:
		return "image"
	case DirectiveFile:
		return "file"
	default:
		return "unknown"
	}
}

// Directive is a whole-line instruction such as [[목차]] or 분류: A | B.
// Args holds the directive operands: category names, tab labels, the role
// key, or the image/file path.
type Directive struct {
	Directive      DirectiveKind
	Args           []string
	Caption        string
	CaptionInlines []InlineNode
	Range          LineRange
}

func (Directive) Kind() BlockKind    { return BlockDirective }
func (d Directive) Lines() LineRange { return d.Range }

// Paragraph is a run of folded plain lines. Inlines has one entry per line.
type Paragraph struct {
	Text    []string
	Inlines [][]InlineNode
	Range   LineRange
}

func (Paragraph) Kind() BlockKind    { return BlockParagraph }
func (p Paragraph) Lines() LineRange { return p.Range }

// HorizontalRule is a "----" separator.
type HorizontalRule struct {
	Range LineRange
}

func (HorizontalRule) Kind() BlockKind    { return BlockHorizontalRule }
func (h HorizontalRule) Lines() LineRange { return h.Range }

// ErrorBlock is rendered in place of a construct that was clearly intended
// but could not be parsed. Raw carries the offending source so the author can
// fix it.
type ErrorBlock struct {
	Message string
	Raw     string
	Range   LineRange
}

func (ErrorBlock) Kind() BlockKind    { return BlockError }
func (e ErrorBlock) Lines() LineRange { return e.Range }
