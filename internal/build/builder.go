// Package build renders every page of a wiki into a static site.
//
// Pages are rendered by a bounded pool of workers. Each output file is
// written atomically, so an interrupted build never leaves a half-written
// page behind. The layout mirrors the preview server's routes: page "a/b"
// is written to w/a/b/index.html and served as /w/a/b.
package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/natefinch/atomic"

	"github.com/conneroisu/wikimark/internal/cache"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/highlight"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/registry"
	"github.com/conneroisu/wikimark/internal/renderer"
)

// HighlightCSSPath is the output path, relative to the site root, of the
// highlight stylesheet.
const HighlightCSSPath = "static/highlight.css"

// Site is the page store a build reads from.
type Site interface {
	Pages() []*registry.PageInfo
	Render(ctx context.Context, name string) (*cache.Entry, error)
	Renderer() *renderer.Renderer
	Highlighter() *highlight.Highlighter
}

// Options configures a build.
type Options struct {
	OutputDir string
	Workers   int
	Clean     bool
	// Index names the page also written as the site's index.html.
	Index string
}

// Result summarizes a finished build.
type Result struct {
	OutputDir   string
	Pages       int
	Failed      int
	Diagnostics int
	Duration    time.Duration
	Errors      []error
}

// ManifestEntry describes one built page in pages.json.
type ManifestEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Hash        string `json:"hash"`
	Diagnostics int    `json:"diagnostics"`
}

// Builder is not safe for concurrent Build calls.
type Builder struct {
	site    Site
	opts    Options
	metrics *BuildMetrics
	logger  logging.Logger
}

// NewBuilder creates a builder for site.
func NewBuilder(site Site, opts Options, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Builder{
		site:    site,
		opts:    opts,
		metrics: NewBuildMetrics(),
		logger:  logger.WithComponent("build"),
	}
}

// Metrics returns the metrics of the builder's latest build.
func (b *Builder) Metrics() *BuildMetrics {
	return b.metrics
}

// PagePath returns the output path of page name relative to the site root.
func PagePath(name string) string {
	return filepath.Join("w", filepath.FromSlash(name), "index.html")
}

// Build renders every page and writes the site. Pages that fail are
// reported in Result.Errors and do not stop the build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	perf := logging.StartOperation(b.logger, "build")
	b.metrics.Reset()

	if err := b.prepareOutput(); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	pages := b.site.Pages()
	results := b.renderAll(ctx, pages)
	if err := ctx.Err(); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	result := &Result{OutputDir: b.opts.OutputDir}
	manifest := make([]ManifestEntry, 0, len(pages))
	for i, r := range results {
		result.Pages++
		result.Diagnostics += r.Diagnostics
		if r.Error != nil {
			result.Failed++
			result.Errors = append(result.Errors, r.Error)
			continue
		}
		manifest = append(manifest, ManifestEntry{
			Name:        r.Page,
			Path:        filepath.ToSlash(r.OutputPath),
			Hash:        pages[i].Hash,
			Diagnostics: r.Diagnostics,
		})
	}

	if err := b.writeAssets(ctx, pages, manifest); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	result.Duration = time.Since(start)
	perf.End(ctx, "pages", result.Pages, "failed", result.Failed, "diagnostics", result.Diagnostics)
	return result, nil
}

func (b *Builder) prepareOutput() error {
	dir := filepath.Clean(b.opts.OutputDir)
	if dir == "." || dir == string(filepath.Separator) || b.opts.OutputDir == "" {
		return errors.NewConfigError(errors.ErrCodeInvalidPath, "refusing to build into "+b.opts.OutputDir)
	}
	if b.opts.Clean {
		if err := os.RemoveAll(dir); err != nil {
			return errors.WrapIO(err, errors.ErrCodeInvalidPath, "cleaning output directory").WithLocation(dir, 0)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "creating output directory").WithLocation(dir, 0)
	}
	return nil
}

// renderAll returns one result per page, in the order of pages.
func (b *Builder) renderAll(ctx context.Context, pages []*registry.PageInfo) []PageResult {
	results := make([]PageResult, len(pages))
	tasks := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.opts.Workers && w < len(pages); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				results[i] = b.buildPage(ctx, pages[i].Name)
				b.metrics.RecordPage(results[i])
			}
		}()
	}

feed:
	for i := range pages {
		select {
		case tasks <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	return results
}

func (b *Builder) buildPage(ctx context.Context, name string) PageResult {
	start := time.Now()
	result := PageResult{Page: name, OutputPath: PagePath(name)}

	entry, err := b.site.Render(ctx, name)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	result.CacheHit = entry.Created.Before(start)
	result.Diagnostics = len(entry.Document.Diagnostics)

	if err := b.writePage(ctx, result.OutputPath, name, templ.Raw(entry.HTML)); err != nil {
		result.Error = errors.WrapRender(err, name, "writing page")
	}
	result.Duration = time.Since(start)
	return result
}

func (b *Builder) writePage(ctx context.Context, rel, title string, body templ.Component) error {
	var buf bytes.Buffer
	page := renderer.Page(title, body, renderer.PageOptions{
		Stylesheets: []string{"/" + HighlightCSSPath},
	})
	if err := page.Render(ctx, &buf); err != nil {
		return err
	}
	return b.writeFile(rel, &buf)
}

func (b *Builder) writeFile(rel string, buf *bytes.Buffer) error {
	path := filepath.Join(b.opts.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "creating directory").WithLocation(path, 0)
	}
	if err := atomic.WriteFile(path, buf); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "writing file").WithLocation(path, 0)
	}
	return nil
}

func (b *Builder) writeAssets(ctx context.Context, pages []*registry.PageInfo, manifest []ManifestEntry) error {
	var css bytes.Buffer
	if err := b.site.Highlighter().WriteCSS(&css); err != nil {
		return errors.WrapRender(err, "", "generating highlight stylesheet")
	}
	if err := b.writeFile(HighlightCSSPath, &css); err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := b.writeFile("pages.json", bytes.NewBuffer(data)); err != nil {
		return err
	}

	return b.writeIndex(ctx, pages)
}

// writeIndex copies the index page to index.html, or writes a page list
// when the wiki has no index page.
func (b *Builder) writeIndex(ctx context.Context, pages []*registry.PageInfo) error {
	for _, p := range pages {
		if p.Name != b.opts.Index {
			continue
		}
		entry, err := b.site.Render(ctx, p.Name)
		if err != nil {
			break
		}
		return b.writePage(ctx, "index.html", p.Name, templ.Raw(entry.HTML))
	}

	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return b.writePage(ctx, "index.html", "문서 목록", b.site.Renderer().PageIndex(names))
}
