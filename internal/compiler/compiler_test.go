package compiler

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/types"
)

const sample = `= 개요 =
'''홍길동'''은 ''조선'' 시대의 인물이다.[*1] 활빈당을 이끌었다.[*note]

{{인물정보상자
이름 = 홍길동
소속 = [[활빈당]]
}}

== 생애 ==
|| 연도 || 사건 ||
|| 1500 || 출생[* 추정] ||

분류: 인물 | 조선

[*1] 허균의 소설.
[*note] 의적 집단.`

func TestCompileIsIdempotent(t *testing.T) {
	first := Compile(sample)
	second := Compile(sample)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("compiling twice differs (-first +second):\n%s", diff)
	}
}

func TestCompileConcurrentDocumentsDoNotInterfere(t *testing.T) {
	want := Compile(sample)

	var wg sync.WaitGroup
	results := make([]*types.Document, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Compile(sample)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Empty(t, cmp.Diff(want, got))
	}
}

func TestFootnotesNumberInFirstReferenceOrder(t *testing.T) {
	doc := Compile("[*y] why\na[*x] ... b[*x] ... c[*y]\n[*x] ex")

	require.Len(t, doc.Footnotes, 2)
	assert.Equal(t, types.Footnote{Number: 1, Key: "x", Text: "ex"}, stripInlines(doc.Footnotes[0]))
	assert.Equal(t, types.Footnote{Number: 2, Key: "y", Text: "why"}, stripInlines(doc.Footnotes[1]))

	para, ok := doc.Blocks[0].(types.Paragraph)
	require.True(t, ok)
	var numbers []int
	for _, n := range para.Inlines[0] {
		if n.Kind == types.InlineFootnoteRef {
			numbers = append(numbers, n.FootnoteNumber)
		}
	}
	assert.Equal(t, []int{1, 1, 2}, numbers)
}

func TestFootnoteInlinesAreParsed(t *testing.T) {
	doc := Compile("본문[*a]\n[*a] '''굵은''' 각주")
	require.Len(t, doc.Footnotes, 1)
	require.NotEmpty(t, doc.Footnotes[0].Inlines)
	assert.Equal(t, types.InlineBold, doc.Footnotes[0].Inlines[0].Kind)
}

func TestTOCExtraction(t *testing.T) {
	doc := Compile("= Title1 =\n== Title2 ==")

	require.Len(t, doc.TOC, 2)
	assert.Equal(t, types.TOCEntry{Level: 1, Title: "Title1", Anchor: "title1", Number: "1."}, doc.TOC[0])
	assert.Equal(t, types.TOCEntry{Level: 2, Title: "Title2", Anchor: "title2", Number: "1.1."}, doc.TOC[1])

	heading := doc.Blocks[1].(types.Heading)
	assert.Equal(t, "title2", heading.Anchor)
	assert.Equal(t, "1.1.", heading.Number)
}

func TestHeadingAnchorsAreCollisionFree(t *testing.T) {
	doc := Compile("= 역사 =\n= 역사 =\n= '''역사''' =")

	anchors := make([]string, len(doc.TOC))
	for i, entry := range doc.TOC {
		anchors[i] = entry.Anchor
	}
	assert.Equal(t, []string{"역사", "역사-2", "역사-3"}, anchors)
	assert.Equal(t, "역사", doc.TOC[2].Title)
}

func TestTableGrammarsAreEquivalent(t *testing.T) {
	namu := Compile("|| a || b ||\n|| 1 || 2 ||")
	markdown := Compile("| a | b |\n| - | - |\n| 1 | 2 |")

	for name, doc := range map[string]*types.Document{"namu": namu, "markdown": markdown} {
		t.Run(name, func(t *testing.T) {
			require.Len(t, doc.Blocks, 1)
			table, ok := doc.Blocks[0].(types.Table)
			require.True(t, ok)
			assert.True(t, table.Header)
			assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, cellText(table))
			assert.Equal(t, "a", table.Rows[0][0].Inlines[0].Text)
		})
	}
}

func TestMalformedCardGridIsIsolated(t *testing.T) {
	doc := Compile("[[카드그리드: items=[{bad json]]\n\n= After =\n'''still''' renders")

	require.Len(t, doc.Blocks, 3)
	errBlock, ok := doc.Blocks[0].(types.ErrorBlock)
	require.True(t, ok)
	assert.Contains(t, errBlock.Raw, "{bad json")

	assert.Equal(t, types.BlockHeading, doc.Blocks[1].Kind())
	para := doc.Blocks[2].(types.Paragraph)
	assert.Equal(t, types.InlineBold, para.Inlines[0][0].Kind)

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, types.SeverityError, doc.Diagnostics[0].Severity)
	assert.Equal(t, 0, doc.Diagnostics[0].Line)
	assert.True(t, doc.HasErrors())
}

func TestBoldAndItalicStaySeparate(t *testing.T) {
	doc := Compile("'''bold''' and ''italic''")
	para := doc.Blocks[0].(types.Paragraph)
	nodes := para.Inlines[0]

	require.Len(t, nodes, 3)
	assert.Equal(t, types.InlineBold, nodes[0].Kind)
	assert.Equal(t, "bold", types.PlainText(nodes[0].Children))
	assert.Equal(t, types.InlineText, nodes[1].Kind)
	assert.Equal(t, " and ", nodes[1].Text)
	assert.Equal(t, types.InlineItalic, nodes[2].Kind)
	assert.Equal(t, "italic", types.PlainText(nodes[2].Children))
}

func TestCategoriesAreDeduplicated(t *testing.T) {
	doc := Compile("본문\n\n분류: 인물 | 조선\n[[분류:인물]][[분류:활빈당]]")
	assert.Equal(t, []string{"인물", "조선", "활빈당"}, doc.Categories)
}

func TestTemplateParamsAreInlineParsed(t *testing.T) {
	doc := Compile(sample)

	var tpl types.TemplateBlock
	for _, b := range doc.Blocks {
		if t, ok := b.(types.TemplateBlock); ok {
			tpl = t
		}
	}
	p, ok := tpl.Lookup("소속")
	require.True(t, ok)
	require.Len(t, p.Inlines, 1)
	assert.Equal(t, types.InlineInternalLink, p.Inlines[0].Kind)
	assert.Equal(t, "활빈당", p.Inlines[0].Target)
}

func TestSampleFootnotes(t *testing.T) {
	doc := Compile(sample)

	texts := make([]string, len(doc.Footnotes))
	for i, f := range doc.Footnotes {
		texts[i] = f.Text
	}
	assert.Equal(t, []string{"허균의 소설.", "의적 집단.", "추정"}, texts)
	assert.Empty(t, doc.Diagnostics)
}

func TestUnreferencedFootnoteIsDiagnosed(t *testing.T) {
	doc := Compile("본문\n\n[*z] unused")

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, types.SeverityWarning, doc.Diagnostics[0].Severity)
	assert.Equal(t, 2, doc.Diagnostics[0].Line)
	assert.Contains(t, doc.Diagnostics[0].Message, "[*z]")
}

func TestCompilerLogsDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelDebug,
		Format: "json",
		Output: &buf,
	})

	doc := New(logger).Compile(context.Background(), "demo", "본문\n\n[*z] unused")
	require.Len(t, doc.Diagnostics, 1)

	out := buf.String()
	assert.Contains(t, out, "never referenced")
	assert.Contains(t, out, `"page":"demo"`)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

// fixedLanguages knows only the tags in its map.
type fixedLanguages map[string]string

func (f fixedLanguages) Language(_, lang string) string { return f[lang] }

func TestUnknownFenceLanguageIsDiagnosed(t *testing.T) {
	src := "```go\nx := 1\n```\n\n```klingon\nqaplah\n```\n\n```\nplain\n```"
	c := New(nil, WithLanguages(fixedLanguages{"go": "Go"}))

	doc := c.Compile(context.Background(), "demo", src)
	require.Len(t, doc.Diagnostics, 1)
	d := doc.Diagnostics[0]
	assert.Equal(t, types.SeverityWarning, d.Severity)
	assert.Equal(t, 4, d.Line)
	assert.Contains(t, d.Message, `"klingon"`)
	assert.False(t, doc.HasErrors())

	assert.Empty(t, Compile(src).Diagnostics)
}

func TestDegradedBlocksAreDiagnosed(t *testing.T) {
	doc := Compile(strings.Join([]string{
		"[*z] unused",
		"| a | b |",
		"| 1 | 2 |",
		"",
		"[[카드그리드: items=[{bad json]]",
		"",
		"{{정보상자",
		"이름 = x",
	}, "\n"))

	require.Len(t, doc.Diagnostics, 4)
	lines := make([]int, len(doc.Diagnostics))
	for i, d := range doc.Diagnostics {
		lines[i] = d.Line
	}
	assert.Equal(t, []int{0, 1, 4, 6}, lines)
	assert.Contains(t, doc.Diagnostics[1].Message, "separator")
	assert.Equal(t, types.SeverityError, doc.Diagnostics[2].Severity)
	assert.Contains(t, doc.Diagnostics[3].Message, "unterminated template")
}

func TestCompileEmpty(t *testing.T) {
	doc := Compile("")
	assert.Empty(t, doc.Blocks)
	assert.Empty(t, doc.TOC)
	assert.Empty(t, doc.Footnotes)
	assert.False(t, doc.HasErrors())
}

func stripInlines(f types.Footnote) types.Footnote {
	f.Inlines = nil
	return f
}

func cellText(table types.Table) [][]string {
	out := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		for _, cell := range row {
			out[i] = append(out[i], cell.Content)
		}
	}
	return out
}
