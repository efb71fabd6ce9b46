// Package services holds the use cases behind the CLI commands: project
// initialization, static builds and the preview server.
package services

import (
	"context"
	"time"

	"github.com/conneroisu/wikimark/internal/build"
	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/wiki"
)

// BuildService renders every page into a static site.
type BuildService struct {
	config *config.Config
	logger logging.Logger
}

// NewBuildService creates a new build service.
func NewBuildService(cfg *config.Config, logger logging.Logger) *BuildService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &BuildService{config: cfg, logger: logger}
}

// BuildOptions override the build section of the configuration. Zero
// values keep the configured setting.
type BuildOptions struct {
	Output  string
	Workers int
	Clean   bool
	// DryRun lists the pages that would be built without writing anything.
	DryRun bool
}

// BuildResult contains the result of a build operation.
type BuildResult struct {
	OutputDir   string
	Pages       []string
	PageCount   int
	Failed      int
	Diagnostics int
	CacheHits   int64
	Duration    time.Duration
	Success     bool
	Errors      []error
}

// Build scans the pages directory and writes the site.
func (s *BuildService) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	start := time.Now()
	output := s.config.Build.OutputDir
	if opts.Output != "" {
		output = opts.Output
	}
	workers := s.config.Build.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	w, err := wiki.New(s.config, s.logger)
	if err != nil {
		return nil, errors.BuildServiceError("INIT_WIKI", "failed to open pages directory", err)
	}
	result := &BuildResult{OutputDir: output, Success: true}

	if err := w.Load(ctx); err != nil {
		// Unreadable pages are reported but do not stop the others.
		result.Errors = append(result.Errors, err)
		s.logger.Warn(ctx, err, "scan finished with errors")
	}
	for _, p := range w.Pages() {
		result.Pages = append(result.Pages, p.Name)
	}
	result.PageCount = len(result.Pages)

	if opts.DryRun {
		result.Duration = time.Since(start)
		return result, nil
	}

	builder := build.NewBuilder(w, build.Options{
		OutputDir: output,
		Workers:   workers,
		Clean:     s.config.Build.Clean || opts.Clean,
		Index:     s.config.Pages.Index,
	}, s.logger)
	res, err := builder.Build(ctx)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err)
		result.Duration = time.Since(start)
		return result, errors.BuildServiceError("BUILD_SITE", "site build failed", err)
	}

	handler := errors.NewErrorHandler(s.logger)
	for _, pageErr := range res.Errors {
		handler.Handle(ctx, pageErr)
	}

	s.logger.Info(ctx, "site built",
		"pages", res.Pages,
		"success_rate", builder.Metrics().GetSuccessRate(),
		"cache_hit_rate", builder.Metrics().GetCacheHitRate(),
		"highlight_style", w.Highlighter().StyleName())

	metrics := builder.Metrics().GetSnapshot()
	result.Failed = res.Failed
	result.Diagnostics = res.Diagnostics
	result.CacheHits = metrics.CacheHits
	result.Errors = append(result.Errors, res.Errors...)
	result.Success = res.Failed == 0
	result.Duration = time.Since(start)
	return result, nil
}
