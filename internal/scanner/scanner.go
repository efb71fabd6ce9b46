// Package scanner discovers wiki page sources under the pages directory and
// registers them with the page registry.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/registry"
)

// MaxPageSize is the largest page source the scanner will read.
const MaxPageSize = 4 << 20

// Options selects which files under Dir are pages.
type Options struct {
	Dir             string
	Extensions      []string
	ExcludePatterns []string
	Workers         int
}

// PageScanner walks the pages directory and keeps the registry in sync.
type PageScanner struct {
	registry *registry.PageRegistry
	logger   logging.Logger
	root     string
	opts     Options
}

type scanResult struct {
	path string
	err  error
}

// New creates a scanner for opts.Dir. The directory does not have to exist
// yet.
func New(reg *registry.PageRegistry, opts Options, logger logging.Logger) (*PageScanner, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	root, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolving pages directory")
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".wiki"}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &PageScanner{
		registry: reg,
		logger:   logger.WithComponent("scanner"),
		root:     root,
		opts:     opts,
	}, nil
}

// Registry returns the registry the scanner writes to.
func (s *PageScanner) Registry() *registry.PageRegistry {
	return s.registry
}

// IsPage reports whether path has a page extension and matches no exclude
// pattern.
func (s *PageScanner) IsPage(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range s.opts.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range s.opts.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// ScanDirectory registers every page under the root and removes registry
// entries whose files disappeared.
func (s *PageScanner) ScanDirectory(ctx context.Context) error {
	perf := logging.StartOperation(s.logger, "scan")

	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if s.IsPage(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		perf.EndWithError(ctx, err)
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "walking pages directory").
			WithLocation(s.root, 0)
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f] = true
	}
	for _, page := range s.registry.GetAll() {
		if !seen[page.FilePath] {
			s.registry.Remove(page.Name)
		}
	}

	if err := s.processBatch(ctx, files); err != nil {
		perf.EndWithError(ctx, err)
		return err
	}
	perf.End(ctx, "files", len(files), "pages", s.registry.Count())
	return nil
}

func (s *PageScanner) processBatch(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan scanResult, len(files))

	workers := s.opts.Workers
	if workers > len(files) {
		workers = len(files)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- scanResult{path: path, err: s.ScanFile(path)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	var errs []error
	for result := range results {
		if result.err != nil {
			s.logger.Warn(ctx, result.err, "skipping page", "file", result.path)
			errs = append(errs, fmt.Errorf("scanning %s: %w", result.path, result.err))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.CombineErrors(errs...)
}

// ScanFile reads one page source and registers it. It reports no error for
// files that are not pages.
func (s *PageScanner) ScanFile(path string) error {
	cleanPath, err := s.validatePath(path)
	if err != nil {
		return err
	}
	if !s.IsPage(cleanPath) {
		return nil
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading page info").WithLocation(cleanPath, 0)
	}
	if info.Size() > MaxPageSize {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("page is larger than %d bytes", MaxPageSize)).WithLocation(cleanPath, 0)
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading page").WithLocation(cleanPath, 0)
	}

	name, err := registry.PageName(s.root, cleanPath)
	if err != nil {
		return err
	}

	s.registry.Register(&registry.PageInfo{
		Name:     name,
		FilePath: cleanPath,
		Size:     info.Size(),
		LastMod:  info.ModTime(),
		Hash:     registry.HashContent(content),
	})
	return nil
}

// RemoveFile drops the page backed by path, if any.
func (s *PageScanner) RemoveFile(path string) {
	cleanPath, err := s.validatePath(path)
	if err != nil {
		return
	}
	if page, ok := s.registry.FindByPath(cleanPath); ok {
		s.registry.Remove(page.Name)
	}
}

// validatePath cleans path and ensures it stays inside the pages root.
func (s *PageScanner) validatePath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolving path")
	}
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ErrPathTraversal(path)
	}
	return absPath, nil
}
