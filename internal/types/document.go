// Package types provides the document model shared by the wiki compiler
// stages. It has no dependencies on the other internal packages so the
// segmenter, inline engine, compiler and renderer can all import it without
// cycles.
package types

// Document is the compiled form of one markup source. It is rebuilt from
// scratch on every content change and never mutated after compilation.
type Document struct {
	Blocks      []Block
	TOC         []TOCEntry
	Footnotes   []Footnote
	Categories  []string
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (d *Document) HasErrors() bool {
	for _, diag := range d.Diagnostics {
		if diag.Severity == SeverityError {
			return true
		}
	}
	return false
}

// LineRange is the half-open range [Start, End) of zero-based source lines a
// block was built from.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TOCEntry is one heading in the table of contents.
type TOCEntry struct {
	Level  int    `json:"level" yaml:"level"`
	Title  string `json:"title" yaml:"title"`
	Anchor string `json:"anchor" yaml:"anchor"`
	Number string `json:"number" yaml:"number"`
}

// Footnote is a numbered footnote as it appears in the trailing list.
type Footnote struct {
	Number int    `json:"number" yaml:"number"`
	Key    string `json:"key" yaml:"key"`
	Text   string `json:"text" yaml:"text"`
	// Inlines holds the parsed footnote text.
	Inlines []InlineNode `json:"-" yaml:"-"`
}

// Severity classifies a compile diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic records a recoverable problem found while compiling. The
// document still renders; diagnostics let tooling point authors at the source.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Raw      string   `json:"raw,omitempty"`
}
