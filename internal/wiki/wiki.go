// Package wiki ties page discovery, compilation, rendering and caching into
// the page store shared by the preview server and the static builder.
package wiki

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/conneroisu/wikimark/internal/cache"
	"github.com/conneroisu/wikimark/internal/compiler"
	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/highlight"
	"github.com/conneroisu/wikimark/internal/inline"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/registry"
	"github.com/conneroisu/wikimark/internal/renderer"
	"github.com/conneroisu/wikimark/internal/scanner"
	"github.com/conneroisu/wikimark/internal/types"
)

// fragmentVariant keys cached document fragments.
const fragmentVariant = "fragment"

// Wiki is safe for concurrent use.
type Wiki struct {
	cfg         *config.Config
	logger      logging.Logger
	scanner     *scanner.PageScanner
	registry    *registry.PageRegistry
	compiler    *compiler.Compiler
	renderer    *renderer.Renderer
	highlighter *highlight.Highlighter
	cache       *cache.RenderCache
	errors      *errors.ErrorCollector
}

// New creates a wiki over cfg.Pages.Dir. Nothing is read until Load.
func New(cfg *config.Config, logger logging.Logger) (*Wiki, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	reg := registry.NewPageRegistry()
	sc, err := scanner.New(reg, scanner.Options{
		Dir:             cfg.Pages.Dir,
		Extensions:      cfg.Pages.Extensions,
		ExcludePatterns: cfg.Pages.ExcludePatterns,
		Workers:         cfg.Build.Workers,
	}, logger)
	if err != nil {
		return nil, err
	}

	hl := highlight.New(cfg.Render.HighlightStyle)
	w := &Wiki{
		cfg:         cfg,
		logger:      logger.WithComponent("wiki"),
		scanner:     sc,
		registry:    reg,
		compiler:    compiler.New(logger, compiler.WithLanguages(hl)),
		highlighter: hl,
		errors:      errors.NewErrorCollector(),
	}
	w.renderer = renderer.New(renderer.Hooks{
		LinkHref:     renderer.PrefixLinkHref(cfg.Render.LinkPrefix),
		ResolveImage: w.resolveImage,
		Highlight:    hl.Highlight,
	}, logger)
	if cfg.Cache.Enabled {
		w.cache = cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	return w, nil
}

// Config returns the configuration the wiki was created with.
func (w *Wiki) Config() *config.Config { return w.cfg }

// Registry returns the page registry.
func (w *Wiki) Registry() *registry.PageRegistry { return w.registry }

// Renderer returns the renderer configured with the wiki's hooks.
func (w *Wiki) Renderer() *renderer.Renderer { return w.renderer }

// Highlighter returns the code highlighter.
func (w *Wiki) Highlighter() *highlight.Highlighter { return w.highlighter }

// Errors returns the diagnostics collected from the latest render of every
// page.
func (w *Wiki) Errors() *errors.ErrorCollector { return w.errors }

// Cache returns the render cache, or nil when caching is disabled.
func (w *Wiki) Cache() *cache.RenderCache { return w.cache }

// Load scans the pages directory.
func (w *Wiki) Load(ctx context.Context) error {
	w.errors.Clear()
	return w.scanner.ScanDirectory(ctx)
}

// Pages returns all known pages sorted by name.
func (w *Wiki) Pages() []*registry.PageInfo {
	return w.registry.GetAll()
}

// IsPage reports whether path is a page source file.
func (w *Wiki) IsPage(path string) bool {
	return w.scanner.IsPage(path)
}

// Source returns the markup of page name.
func (w *Wiki) Source(name string) (string, error) {
	if err := registry.ValidatePageName(name); err != nil {
		return "", err
	}
	page, ok := w.registry.Get(name)
	if !ok {
		return "", errors.ErrPageNotFound(name)
	}
	content, err := os.ReadFile(page.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			w.scanner.RemoveFile(page.FilePath)
			return "", errors.ErrPageNotFound(name)
		}
		return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading page").WithLocation(page.FilePath, 0)
	}
	return string(content), nil
}

// Render compiles and renders the stored page name.
func (w *Wiki) Render(ctx context.Context, name string) (*cache.Entry, error) {
	source, err := w.Source(name)
	if err != nil {
		return nil, err
	}
	entry, err := w.RenderSource(ctx, name, source)
	if err != nil {
		return nil, err
	}
	page, _ := w.registry.Get(name)
	w.errors.ClearPage(name)
	if page != nil {
		w.errors.AddDiagnostics(name, page.FilePath, entry.Document.Diagnostics)
	}
	return entry, nil
}

// RenderSource compiles and renders source as page name without touching
// the registry.
func (w *Wiki) RenderSource(ctx context.Context, name, source string) (*cache.Entry, error) {
	hash := cache.Hash(source)
	compute := func() (*cache.Entry, error) {
		doc := w.compiler.Compile(ctx, name, source)
		html, err := w.renderer.RenderHTML(doc)
		if err != nil {
			return nil, errors.WrapRender(err, name, "rendering page")
		}
		return &cache.Entry{Page: name, Hash: hash, Document: doc, HTML: html}, nil
	}

	if w.cache == nil {
		return compute()
	}
	entry, cached, err := w.cache.GetOrCompute(cache.Key(name, hash, fragmentVariant), compute)
	if err != nil {
		return nil, err
	}
	if cached {
		w.logger.Debug(ctx, "render cache hit", "page", name)
	}
	return entry, nil
}

// Compile compiles source without rendering it.
func (w *Wiki) Compile(ctx context.Context, name, source string) *types.Document {
	return w.compiler.Compile(ctx, name, source)
}

// Refresh re-reads the source file at path after a change on disk. It
// returns the affected page name, or "" when path is not a page.
func (w *Wiki) Refresh(ctx context.Context, path string) (string, error) {
	if !w.scanner.IsPage(path) {
		return "", nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolving changed file")
	}

	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		page, ok := w.registry.FindByPath(abs)
		if !ok {
			return "", nil
		}
		w.scanner.RemoveFile(abs)
		w.invalidate(page.Name)
		w.logger.Info(ctx, "page removed", "page", page.Name)
		return page.Name, nil
	}

	if err := w.scanner.ScanFile(abs); err != nil {
		return "", err
	}
	page, ok := w.registry.FindByPath(abs)
	if !ok {
		return "", nil
	}
	w.invalidate(page.Name)
	w.logger.Info(ctx, "page changed", "page", page.Name)
	return page.Name, nil
}

func (w *Wiki) invalidate(name string) {
	w.errors.ClearPage(name)
	if w.cache != nil {
		w.cache.InvalidatePage(name)
	}
}

func (w *Wiki) resolveImage(ref string) string {
	if w.cfg.Render.ImageBaseURL == "" || inline.IsURL(ref) {
		return ref
	}
	return w.cfg.Render.ImageBaseURL + url.PathEscape(ref)
}
