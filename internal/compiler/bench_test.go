package compiler

import (
	"context"
	"testing"

	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/testutils"
)

func BenchmarkCompile(b *testing.B) {
	benchmarks := []struct {
		name   string
		source string
	}{
		{"simple", testutils.SimplePage(0)},
		{"complex", testutils.ComplexPage},
		{"large", testutils.LargePage(200)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			c := New(logging.Discard())
			ctx := context.Background()
			b.SetBytes(int64(len(bm.source)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.Compile(ctx, "bench", bm.source)
			}
		})
	}
}

func BenchmarkCompileParallel(b *testing.B) {
	c := New(logging.Discard())
	source := testutils.ComplexPage
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			c.Compile(ctx, "bench", source)
		}
	})
}

func TestComplexFixtureCompiles(t *testing.T) {
	doc := Compile(testutils.ComplexPage)
	if len(doc.TOC) == 0 || len(doc.Footnotes) != 3 || len(doc.Categories) != 2 {
		t.Fatalf("unexpected document: %d headings, %d footnotes, %v categories",
			len(doc.TOC), len(doc.Footnotes), doc.Categories)
	}
}
