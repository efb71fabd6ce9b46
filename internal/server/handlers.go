package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/renderer"
	"github.com/conneroisu/wikimark/internal/types"
	"github.com/conneroisu/wikimark/internal/version"
)

const (
	// maxRenderBody bounds the body of POST /api/render.
	maxRenderBody = 1 << 20
	// previewPage names sources posted to the render API without a page.
	previewPage = "preview"
	indexTitle  = "문서 목록"
	cssRoute    = "/static/highlight.css"
)

// RenderRequest is the JSON body of POST /api/render. Plain text bodies
// are treated as the source of an unnamed page.
type RenderRequest struct {
	Page   string `json:"page"`
	Source string `json:"source"`
}

// RenderResponse is the result of POST /api/render.
type RenderResponse struct {
	Page        string           `json:"page"`
	HTML        string           `json:"html"`
	TOC         []types.TOCEntry `json:"toc"`
	Footnotes   []types.Footnote `json:"footnotes"`
	Categories  []string         `json:"categories"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// DiagnosticJSON is a diagnostic with a one-based line number.
type DiagnosticJSON struct {
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// PageJSON describes one page in GET /api/pages.
type PageJSON struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Size    int64     `json:"size"`
	LastMod time.Time `json:"last_mod"`
	Hash    string    `json:"hash"`
}

func (s *PreviewServer) pageOptions() renderer.PageOptions {
	opts := renderer.PageOptions{
		LiveReload:  s.config.Server.LiveReload,
		Stylesheets: []string{cssRoute},
	}
	if s.config.Server.ErrorOverlay {
		opts.Overlay = s.wiki.Errors().ErrorOverlay()
	}
	return opts
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	index := s.config.Pages.Index
	if _, ok := s.wiki.Registry().Get(index); ok {
		s.servePage(w, r, index)
		return
	}
	body := s.wiki.Renderer().PageIndex(s.wiki.Registry().Names())
	s.writePage(w, r, http.StatusOK, renderer.Page(indexTitle, body, s.pageOptions()))
}

func (s *PreviewServer) handlePage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, r.PathValue("page"))
}

func (s *PreviewServer) servePage(w http.ResponseWriter, r *http.Request, name string) {
	entry, err := s.wiki.Render(r.Context(), name)
	switch {
	case err == nil:
	case errors.HasErrorCode(err, errors.ErrCodeInvalidPageName):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.HasErrorCode(err, errors.ErrCodePageNotFound):
		s.writePage(w, r, http.StatusNotFound, renderer.Page(name, s.notFound(name), s.pageOptions()))
		return
	default:
		s.logger.Error(r.Context(), err, "failed to render page", "page", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.writePage(w, r, http.StatusOK, renderer.Page(name, templ.Raw(entry.HTML), s.pageOptions()))
}

// notFound lists suggestions for a missing page.
func (s *PreviewServer) notFound(name string) templ.Component {
	suggestions := errors.PageNotFoundError(name, &errors.SuggestionContext{
		AvailablePages: s.wiki.Registry().Names(),
		PagesDir:       s.config.Pages.Dir,
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		fmt.Fprintf(&b, "<p class=\"wm-not-found\">문서 '%s'이(가) 없습니다.</p>\n<ul class=\"wm-suggestions\">\n", html.EscapeString(name))
		for _, sg := range suggestions {
			fmt.Fprintf(&b, "<li><strong>%s</strong> %s", html.EscapeString(sg.Title), html.EscapeString(sg.Description))
			if sg.Command != "" {
				fmt.Fprintf(&b, " <code>%s</code>", html.EscapeString(sg.Command))
			}
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>")
		_, err := w.Write(b.Bytes())
		return err
	})
}

// writePage buffers the page so render failures still produce a clean 500.
func (s *PreviewServer) writePage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	var buf bytes.Buffer
	if err := page.Render(r.Context(), &buf); err != nil {
		s.logger.Error(r.Context(), err, "failed to write page layout", "path", r.URL.Path)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRenderBody))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	req := RenderRequest{Page: r.URL.Query().Get("page"), Source: string(body)}
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		req = RenderRequest{}
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}
	if req.Page == "" {
		req.Page = previewPage
	}

	entry, err := s.wiki.RenderSource(r.Context(), req.Page, req.Source)
	if err != nil {
		s.logger.Error(r.Context(), err, "render API failed", "page", req.Page)
		writeJSONError(w, http.StatusInternalServerError, "render failed")
		return
	}

	doc := entry.Document
	resp := RenderResponse{
		Page:        req.Page,
		HTML:        entry.HTML,
		TOC:         nonNil(doc.TOC),
		Footnotes:   nonNil(doc.Footnotes),
		Categories:  nonNil(doc.Categories),
		Diagnostics: make([]DiagnosticJSON, 0, len(doc.Diagnostics)),
	}
	for _, d := range doc.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, DiagnosticJSON{
			Severity: d.Severity.String(),
			Line:     d.Line + 1,
			Message:  d.Message,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *PreviewServer) handlePages(w http.ResponseWriter, r *http.Request) {
	pages := s.wiki.Pages()
	href := renderer.PrefixLinkHref(s.config.Render.LinkPrefix)
	out := make([]PageJSON, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageJSON{
			Name:    p.Name,
			URL:     href(p.Name),
			Size:    p.Size,
			LastMod: p.LastMod,
			Hash:    p.Hash,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *PreviewServer) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.wiki.Highlighter().WriteCSS(&buf); err != nil {
		s.logger.Error(r.Context(), err, "failed to write highlight stylesheet")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// handleHealth returns the server health status for health checks.
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	errorCount := s.wiki.Errors().Count(types.SeverityError)
	checks := map[string]interface{}{
		"pages": map[string]interface{}{
			"status": "healthy",
			"count":  s.wiki.Registry().Count(),
		},
		"diagnostics": map[string]interface{}{
			"errors":   errorCount,
			"warnings": s.wiki.Errors().Count(types.SeverityWarning) - errorCount,
		},
		"websocket": map[string]interface{}{
			"status":  "healthy",
			"clients": s.wsManager.GetConnectedClients(),
		},
		"ratelimit": map[string]interface{}{
			"enabled":        s.limiter.Enabled(),
			"active_clients": s.limiter.ActiveClients(),
		},
	}
	if c := s.wiki.Cache(); c != nil {
		checks["cache"] = c.Stats()
	}
	if s.wsManager.IsShutdown() {
		checks["websocket"] = map[string]interface{}{"status": "shutdown"}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks":     checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
