package errors

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/wikimark/internal/types"
)

// PageError is a compile diagnostic attributed to a page.
type PageError struct {
	Page      string
	File      string
	Line      int
	Message   string
	Raw       string
	Severity  types.Severity
	Timestamp time.Time
}

// Error implements the error interface. Line is reported one-based.
func (pe *PageError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", pe.File, pe.Line+1, pe.Severity, pe.Message)
}

// ErrorCollector collects the diagnostics of compiled pages.
type ErrorCollector struct {
	pageErrors []PageError
	mutex      sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{pageErrors: make([]PageError, 0)}
}

// Add adds a page error to the collector
func (ec *ErrorCollector) Add(err PageError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	ec.pageErrors = append(ec.pageErrors, err)
}

// AddDiagnostics records every diagnostic of one compiled page.
func (ec *ErrorCollector) AddDiagnostics(page, file string, diagnostics []types.Diagnostic) {
	now := time.Now()
	for _, d := range diagnostics {
		ec.Add(PageError{
			Page:      page,
			File:      file,
			Line:      d.Line,
			Message:   d.Message,
			Raw:       d.Raw,
			Severity:  d.Severity,
			Timestamp: now,
		})
	}
}

// HasErrors returns true if anything was collected.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.pageErrors) > 0
}

// Count returns the number of page errors at or above min.
func (ec *ErrorCollector) Count(min types.Severity) int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	n := 0
	for _, pe := range ec.pageErrors {
		if pe.Severity >= min {
			n++
		}
	}
	return n
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.pageErrors = ec.pageErrors[:0]
}

// ClearPage drops the errors recorded for page, typically before recompiling it.
func (ec *ErrorCollector) ClearPage(page string) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	kept := ec.pageErrors[:0]
	for _, pe := range ec.pageErrors {
		if pe.Page != page {
			kept = append(kept, pe)
		}
	}
	ec.pageErrors = kept
}

// Pages returns the sorted names of pages with errors.
func (ec *ErrorCollector) Pages() []string {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	seen := make(map[string]bool)
	var pages []string
	for _, pe := range ec.pageErrors {
		if !seen[pe.Page] {
			seen[pe.Page] = true
			pages = append(pages, pe.Page)
		}
	}
	sort.Strings(pages)
	return pages
}

var severityColors = map[types.Severity]string{
	types.SeverityInfo:    "#48dbfb",
	types.SeverityWarning: "#feca57",
	types.SeverityError:   "#ff6b6b",
}

// ErrorOverlay generates HTML for the preview error overlay. All
// author-supplied text is escaped.
func (ec *ErrorCollector) ErrorOverlay() string {
	if !ec.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<div id="wikimark-error-overlay" class="wm-error-overlay">
	<div class="wm-error-overlay-inner">
		<div class="wm-error-overlay-header">
			<h2>Page Diagnostics</h2>
			<button onclick="document.getElementById('wikimark-error-overlay').style.display='none'">Close</button>
		</div>
		<div>`)

	ec.mutex.RLock()
	for _, err := range ec.pageErrors {
		color := severityColors[err.Severity]
		fmt.Fprintf(&sb, `
			<div class="wm-error-entry" style="border-left: 4px solid %s;">
				<div><span style="color: %s; font-weight: bold;">%s</span> <span class="wm-error-time">%s</span></div>
				<div><strong>%s</strong></div>
				<div class="wm-error-location">%s:%d</div>`,
			color, color, err.Severity, err.Timestamp.Format("15:04:05"),
			html.EscapeString(err.Message), html.EscapeString(err.File), err.Line+1)
		if err.Raw != "" {
			fmt.Fprintf(&sb, "\n\t\t\t\t<pre>%s</pre>", html.EscapeString(err.Raw))
		}
		sb.WriteString("\n\t\t\t</div>")
	}
	ec.mutex.RUnlock()

	sb.WriteString(`
		</div>
	</div>
</div>`)
	return sb.String()
}
