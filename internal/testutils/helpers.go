// Package testutils provides page fixtures and generators shared by the
// package tests and benchmarks.
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/config"
)

// PageExt is the extension used for generated pages.
const PageExt = ".wiki"

// CreateTestConfig returns the default configuration with the pages
// directory pointed at a fresh temporary directory.
func CreateTestConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	cfg.Pages.Dir = t.TempDir()
	cfg.Pages.Extensions = []string{PageExt}
	cfg.Build.OutputDir = filepath.Join(t.TempDir(), "dist")
	return cfg
}

// WritePage writes page name under dir, creating parent directories for
// nested names such as "역사/고대".
func WritePage(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+PageExt)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WritePages writes every page in pages under dir.
func WritePages(t testing.TB, dir string, pages map[string]string) {
	t.Helper()
	for name, content := range pages {
		WritePage(t, dir, name, content)
	}
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(t testing.TB, filePath string, originalModTime time.Time, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}

var simpleTemplates = []string{
	"== 개요 %d ==\n'''굵게''' 그리고 ''기울임''.[* 각주 %d]\n",
	"|| 이름 || 값 ||\n|| 항목 || %d ||\n\n본문 %d [[대문]]\n",
	"```go\nfmt.Println(%d)\n```\n\n * 목록 %d\n * 둘째\n",
	"{{{#red 빨강 %d}}} ~~취소~~ ^^위^^ ,,아래,, %d\n[[분류:생성]]\n",
}

// SimplePage returns the i-th generated small page.
func SimplePage(i int) string {
	tmpl := simpleTemplates[i%len(simpleTemplates)]
	return fmt.Sprintf(tmpl, i, i)
}

// GenerateSimplePages writes count small pages named "문서 N" under dir and
// returns their names.
func GenerateSimplePages(t testing.TB, dir string, count int) []string {
	t.Helper()
	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = fmt.Sprintf("문서 %d", i)
		WritePage(t, dir, names[i], SimplePage(i))
	}
	return names
}

// ComplexPage exercises every block kind: templates, both table grammars,
// fenced code, card grids, footnotes and categories.
const ComplexPage = `[목차]
= 홍길동 =
{{인물정보상자
이름 = '''홍길동'''
소속 = [[활빈당]]
직업 = 의적
}}
'''홍길동'''은 ''조선'' 시대의 인물이다.[*1] 활빈당을 이끌었다.[*note]

== 생애 ==
=== 어린 시절 ===
|| 연도 || 사건 ||
|| 1500 || 출생[* 추정] ||

| 연도 | 사건 |
|---|---|
| 1520 | 활빈당 결성 |

=== 활동 ===
 * 탐관오리 응징
 * 빈민 구제
  * 곡식 분배

` + "```python\nprint('활빈당')\n```" + `

[[카드그리드: items=[{"title":"활빈당","link":"활빈당"},{"title":"율도국"}]]]

== 평가 ==
> 백성의 영웅
{{{+1 큰 글씨}}} {{{#blue 파란 글씨}}}

[[분류:인물]]
[[분류:조선]]

[*1] 허균의 소설.
[*note] 의적 집단.`

// LargePage returns a page with the given number of top-level sections,
// each carrying a table, a list and footnotes.
func LargePage(sections int) string {
	var b strings.Builder
	b.WriteString("[목차]\n")
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&b, "== 절 %d ==\n", i)
		fmt.Fprintf(&b, "'''본문''' %d 문단과 [[문서 %d]] 링크.[* 주석 %d]\n", i, i, i)
		fmt.Fprintf(&b, "=== 소절 %d ===\n", i)
		b.WriteString("|| 가 || 나 || 다 ||\n")
		for r := 0; r < 3; r++ {
			fmt.Fprintf(&b, "|| %d || ''%d'' || ~~%d~~ ||\n", r, r, r)
		}
		b.WriteString("\n * 하나\n * 둘\n  * 셋\n\n")
	}
	b.WriteString("[[분류:큰 문서]]\n")
	return b.String()
}

// MalformedPages are pages whose markup produces diagnostics.
var MalformedPages = map[string]string{
	"깨진 카드": "본문\n[[카드그리드: items=[{bad json]]\n",
	"닫히지 않은 코드": "```go\nfmt.Println(1)\n",
	"빈 표":      "||\n",
	"미사용 각주":   "본문\n\n[*x] 쓰이지 않는 각주\n",
}
