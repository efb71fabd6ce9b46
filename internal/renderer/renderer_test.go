package renderer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/wikimark/internal/compiler"
	"github.com/conneroisu/wikimark/internal/highlight"
	"github.com/conneroisu/wikimark/internal/types"
)

func query(t *testing.T, root *html.Node, selector string) []*html.Node {
	t.Helper()
	return cascadia.MustCompile(selector).MatchAll(root)
}

func first(t *testing.T, root *html.Node, selector string) *html.Node {
	t.Helper()
	n := cascadia.MustCompile(selector).MatchFirst(root)
	require.NotNil(t, n, "no match for %q", selector)
	return n
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func renderText(t *testing.T, src string, hooks Hooks) *html.Node {
	t.Helper()
	return Render(compiler.Compile(src), hooks)
}

func TestRenderHeadings(t *testing.T) {
	root := renderText(t, "= 개요 =\n== '''생애''' ==", Hooks{})

	h1 := first(t, root, "h1#개요")
	assert.Equal(t, "1. 개요", textContent(h1))
	assert.Equal(t, "#개요", attr(first(t, h1, "a.wm-heading-number"), "href"))

	h2 := first(t, root, "h2#생애")
	require.NotNil(t, cascadia.MustCompile("span.wm-heading-title > strong").MatchFirst(h2))
}

func TestRenderInlineStyles(t *testing.T) {
	root := renderText(t, "'''bold''' and ''italic'' ~~del~~ {{{#red 빨강}}} {{{+2 큰}}}", Hooks{})

	assert.Equal(t, "bold", textContent(first(t, root, "p > strong")))
	assert.Equal(t, "italic", textContent(first(t, root, "p > em")))
	assert.Equal(t, "del", textContent(first(t, root, "p > del")))

	colored := first(t, root, `span[style*="color"]`)
	assert.Equal(t, "빨강", textContent(colored))
	decls, err := parser.ParseDeclarations(attr(colored, "style"))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "color", decls[0].Property)
	assert.Equal(t, "red", decls[0].Value)

	assert.Equal(t, "큰", textContent(first(t, root, "span.wm-size-\\+2")))
}

func TestRenderLinksUseHooks(t *testing.T) {
	hooks := Hooks{
		LinkHref:     func(target string) string { return "/doc?title=" + target },
		ResolveImage: func(ref string) string { return "https://cdn.example.com/" + ref },
	}
	root := renderText(t, "[[홍길동|길동]] [[https://example.com|외부]] [[파일:a.png|사진]]", hooks)

	internal := first(t, root, "a.wm-link-internal")
	assert.Equal(t, "/doc?title=홍길동", attr(internal, "href"))
	assert.Equal(t, "길동", textContent(internal))

	external := first(t, root, "a.wm-link-external")
	assert.Equal(t, "https://example.com", attr(external, "href"))
	assert.Equal(t, "noopener noreferrer", attr(external, "rel"))

	img := first(t, root, "img.wm-inline-image")
	assert.Equal(t, "https://cdn.example.com/a.png", attr(img, "src"))
}

func TestRenderEscapesMarkup(t *testing.T) {
	out, err := New(Hooks{}, nil).RenderHTML(compiler.Compile("<script>alert(1)</script>\n\n|| <img src=x onerror=y> ||"))
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<img src=x")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderTable(t *testing.T) {
	root := renderText(t, "|| <bgcolor:#E8F4FD> 이름 || 값 ||\n|| 홍길동 || '''1''' ||", Hooks{})

	th := query(t, root, "table.wm-table thead th")
	require.Len(t, th, 2)
	assert.Equal(t, "이름", textContent(th[0]))

	decls, err := parser.ParseDeclarations(attr(th[0], "style"))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "background-color", decls[0].Property)
	assert.Equal(t, "#E8F4FD", decls[0].Value)

	td := query(t, root, "table.wm-table tbody td")
	require.Len(t, td, 2)
	require.NotNil(t, cascadia.MustCompile("strong").MatchFirst(td[1]))
}

func TestRenderMarkdownTableAlignment(t *testing.T) {
	root := renderText(t, "| a | b |\n|:-:|--:|\n| 1 | 2 |", Hooks{})
	td := query(t, root, "tbody td")
	require.Len(t, td, 2)
	assert.Equal(t, "text-align: center;", attr(td[0], "style"))
	assert.Equal(t, "text-align: right;", attr(td[1], "style"))
}

func TestRenderNestedLists(t *testing.T) {
	root := renderText(t, "* a\n  * b\n  * c\n* d\n1. one", Hooks{})

	top := query(t, root, "div.wm-document > ul")
	require.Len(t, top, 1)
	assert.Len(t, query(t, top[0], "ul > li > ul > li"), 2)
	assert.Len(t, query(t, root, "div.wm-document > ul > li"), 2)
	assert.Len(t, query(t, root, "ol > li"), 1)
}

func TestRenderInfobox(t *testing.T) {
	src := "{{인물정보상자\n이름 = 홍길동\n영문명 = Hong Gil-dong\n이미지 = hong.png\n소속 = [[활빈당]]\n나이 = <color:red>30\n}}"
	root := renderText(t, src, Hooks{})

	box := first(t, root, "aside.wm-person-infobox")
	assert.Equal(t, "홍길동", textContent(first(t, box, ".wm-infobox-title")))
	assert.Equal(t, "Hong Gil-dong", textContent(first(t, box, ".wm-infobox-subtitle")))
	assert.Equal(t, "hong.png", attr(first(t, box, "figure img"), "src"))

	keys := query(t, box, "table.wm-infobox-fields th")
	require.Len(t, keys, 2)
	assert.Equal(t, "소속", textContent(keys[0]))
	assert.Equal(t, "나이", textContent(keys[1]))
	assert.Equal(t, "/w/%ED%99%9C%EB%B9%88%EB%8B%B9", attr(first(t, box, "td a.wm-link-internal"), "href"))
	assert.Equal(t, "color: red;", attr(query(t, box, "td")[1], "style"))
}

func TestRenderCardGrid(t *testing.T) {
	src := `[[카드그리드: items=[{"title": "A", "link": "문서A", "color": "ff0000"}, {"title": "B", "link": "https://b.example"}]]]`
	root := renderText(t, src, Hooks{LinkHref: func(target string) string { return "#" + target }})

	cards := query(t, root, "section.wm-card-grid a.wm-card")
	require.Len(t, cards, 2)
	assert.Equal(t, "#문서A", attr(cards[0], "href"))
	assert.Equal(t, "border-color: #ff0000;", attr(cards[0], "style"))
	assert.Equal(t, "https://b.example", attr(cards[1], "href"))
	assert.Equal(t, "A", textContent(first(t, cards[0], ".wm-card-title")))
}

func TestRenderErrorBlockKeepsRestOfDocument(t *testing.T) {
	root := renderText(t, "[[카드그리드: items=[{bad json]]\n\n= After =\n본문", Hooks{})

	errDiv := first(t, root, "div.wm-error")
	assert.Equal(t, "alert", attr(errDiv, "role"))
	assert.Contains(t, textContent(first(t, errDiv, "pre")), "{bad json")
	assert.NotNil(t, cascadia.MustCompile("h1#after").MatchFirst(root))
	assert.Equal(t, "본문", textContent(first(t, root, "div.wm-document > p")))
}

func TestRenderFootnotes(t *testing.T) {
	root := renderText(t, "a[*x] b[*x] c[*y]\n\n[*x] ex\n[*y] why", Hooks{})

	refs := query(t, root, "sup.wm-footnote-ref")
	require.Len(t, refs, 3)
	assert.Equal(t, "fnref-1", attr(refs[0], "id"))
	assert.Empty(t, attr(refs[1], "id"))
	assert.Equal(t, "fnref-2", attr(refs[2], "id"))
	assert.Equal(t, "ex", attr(first(t, refs[0], "a"), "title"))

	items := query(t, root, "section.wm-footnotes li")
	require.Len(t, items, 2)
	assert.Equal(t, "fn-1", attr(items[0], "id"))
	assert.Equal(t, "[1] ex", textContent(items[0]))
}

func TestRenderDirectives(t *testing.T) {
	src := "[목차]\n= 가 =\n== 나 ==\n[[탭: 개요 | 역사]]\n[이미지:a.png|캡션]\n{{role:admin}}\n분류: 인물"
	root := renderText(t, src, Hooks{})

	tocLinks := query(t, root, "nav.wm-toc a")
	require.Len(t, tocLinks, 2)
	assert.Equal(t, "#나", attr(tocLinks[1], "href"))
	assert.Equal(t, "1.1. 나", textContent(tocLinks[1]))

	tabs := query(t, root, "div.wm-tabs button")
	require.Len(t, tabs, 2)
	assert.Equal(t, "true", attr(tabs[0], "aria-selected"))

	fig := first(t, root, "figure.wm-figure")
	assert.Equal(t, "a.png", attr(first(t, fig, "img"), "src"))
	assert.Equal(t, "캡션", textContent(first(t, fig, "figcaption")))

	assert.Equal(t, "admin", attr(first(t, root, "div.wm-role-banner"), "data-role"))
	assert.Equal(t, "인물", textContent(first(t, root, "div.wm-categories a")))
}

func TestRenderHighlightHook(t *testing.T) {
	src := "```go\nfunc main() {}\n```"
	h := highlight.New("")
	root := renderText(t, src, Hooks{Highlight: h.Highlight})

	pre := first(t, root, "pre.wm-code")
	assert.Equal(t, "true", attr(pre, "data-highlighted"))
	assert.NotEmpty(t, query(t, pre, "code.language-go span"))
	assert.Equal(t, "func main() {}", strings.TrimSpace(textContent(pre)))
}

func TestRenderHighlightErrorFallsBackToPlainCode(t *testing.T) {
	hooks := Hooks{Highlight: func(string, string) (string, error) {
		return "", errors.New("no lexer")
	}}
	root := renderText(t, "```x\n<b>raw</b>\n```", hooks)

	code := first(t, root, "pre.wm-code > code")
	assert.Nil(t, code.FirstChild.NextSibling)
	assert.Equal(t, "<b>raw</b>", textContent(code))
	assert.Empty(t, attr(first(t, root, "pre"), "data-highlighted"))
}

func TestRenderHookPanicDegradesOneBlock(t *testing.T) {
	hooks := Hooks{LinkHref: func(string) string { panic("boom") }}
	root := renderText(t, "= 제목 =\n\n[[링크]] 문단\n\n다음 문단", hooks)

	literal := first(t, root, "p.wm-literal")
	assert.Equal(t, "[[링크]] 문단", textContent(literal))
	assert.NotNil(t, cascadia.MustCompile("h1#제목").MatchFirst(root))

	paragraphs := query(t, root, "div.wm-document > p")
	require.Len(t, paragraphs, 2)
	assert.Equal(t, "다음 문단", textContent(paragraphs[1]))
}

type unknownBlock struct{}

func (unknownBlock) Kind() types.BlockKind  { return types.BlockKind(99) }
func (unknownBlock) Lines() types.LineRange { return types.LineRange{} }
func (unknownBlock) String() string         { return "<unknown>" }

func TestRenderUnknownKindsAsLiteral(t *testing.T) {
	doc := &types.Document{Blocks: []types.Block{
		unknownBlock{},
		types.Paragraph{Text: []string{"x"}, Inlines: [][]types.InlineNode{{
			{Kind: types.InlineKind(99), Raw: "<raw>"},
		}}},
	}}
	out, err := New(Hooks{}, nil).RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, out, `<p class="wm-literal">&lt;unknown&gt;</p>`)
	assert.Contains(t, out, "<p>&lt;raw&gt;</p>")
}

func TestRenderNilDocument(t *testing.T) {
	root := Render(nil, Hooks{})
	assert.Equal(t, "wm-document", attr(root, "class"))
	assert.Nil(t, root.FirstChild)
}

func TestComponentMatchesRenderHTML(t *testing.T) {
	doc := compiler.Compile("= 가 =\n'''나'''[*1]\n\n[*1] 다")
	r := New(Hooks{}, nil)

	want, err := r.RenderHTML(doc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Component(doc).Render(context.Background(), &buf))
	assert.Equal(t, want, buf.String())
}

func TestPageLayout(t *testing.T) {
	doc := compiler.Compile("본문")
	r := New(Hooks{}, nil)

	var buf bytes.Buffer
	err := Page(`<대문>`, r.Component(doc), PageOptions{
		LiveReload:  true,
		Stylesheets: []string{"/static/highlight.css"},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>&lt;대문&gt; - wikimark</title>")
	assert.Contains(t, out, `href="/static/highlight.css"`)
	assert.Contains(t, out, "new WebSocket")
	assert.Contains(t, out, `<div class="wm-document"><p>본문</p></div>`)

	buf.Reset()
	require.NoError(t, Page("x", r.Component(doc), PageOptions{}).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "WebSocket")
}

func TestStylesheetParses(t *testing.T) {
	sheet, err := parser.Parse(Stylesheet())
	require.NoError(t, err)
	assert.NotEmpty(t, sheet.Rules)
	assert.Equal(t, []string{".wm-document"}, sheet.Rules[0].Selectors)
}

func TestPrefixLinkHref(t *testing.T) {
	href := PrefixLinkHref("/wiki/")
	assert.Equal(t, "/wiki/a%20b/c", href("a b/c"))
	assert.Equal(t, "/wiki/%ED%99%8D#%EA%B0%9C%EC%9A%94", href("홍#개요"))
	assert.Equal(t, "#top", href("#top"))
	assert.Equal(t, "/w/x", DefaultLinkHref("x"))
}

func TestPageIndex(t *testing.T) {
	r := New(Hooks{LinkHref: PrefixLinkHref("/wiki/")}, nil)

	var buf bytes.Buffer
	require.NoError(t, r.PageIndex([]string{"가", "활빈당/역사"}).Render(context.Background(), &buf))
	root, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)

	links := query(t, root, "nav.wm-page-index li a")
	require.Len(t, links, 2)
	assert.Equal(t, "가", textContent(links[0]))
	assert.Equal(t, "/wiki/%ED%99%9C%EB%B9%88%EB%8B%B9/%EC%97%AD%EC%82%AC", attr(links[1], "href"))

	buf.Reset()
	require.NoError(t, r.PageIndex(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "wm-page-index-empty")
}
