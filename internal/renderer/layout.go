package renderer

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageOptions controls the page layout around a rendered document.
type PageOptions struct {
	// LiveReload injects the WebSocket client that reloads on page changes.
	LiveReload bool
	// Stylesheets are extra stylesheet URLs, such as the highlight CSS.
	Stylesheets []string
	// Overlay is trusted HTML shown above the page, such as diagnostics.
	Overlay string
	// InlineCSS is appended to the embedded stylesheet, for pages that must
	// stand alone.
	InlineCSS string
}

const liveReloadScript = `<script>
(function() {
	const proto = window.location.protocol === 'https:' ? 'wss://' : 'ws://';
	const ws = new WebSocket(proto + window.location.host + '/ws');
	ws.onmessage = function(event) {
		const message = JSON.parse(event.data);
		if (message.type === 'full_reload' || (message.type === 'page_updated' && message.target === document.body.dataset.page)) {
			window.location.reload();
		}
	};
})();
</script>`

// Page wraps body in a full HTML document titled title.
func Page(title string, body templ.Component, opts PageOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		escaped := html.EscapeString(title)

		var head strings.Builder
		fmt.Fprintf(&head, "<!DOCTYPE html>\n<html lang=\"ko\">\n<head>\n<meta charset=\"utf-8\">\n")
		fmt.Fprintf(&head, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		fmt.Fprintf(&head, "<title>%s - wikimark</title>\n", escaped)
		fmt.Fprintf(&head, "<style>\n%s\n%s</style>\n", Stylesheet(), opts.InlineCSS)
		for _, href := range opts.Stylesheets {
			fmt.Fprintf(&head, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(href))
		}
		fmt.Fprintf(&head, "</head>\n<body data-page=\"%s\">\n%s\n", escaped, opts.Overlay)
		fmt.Fprintf(&head, "<main class=\"wm-page\">\n<h1 class=\"wm-page-title\">%s</h1>\n", escaped)
		if _, err := io.WriteString(w, head.String()); err != nil {
			return err
		}

		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}

		tail := "\n</main>\n"
		if opts.LiveReload {
			tail += liveReloadScript + "\n"
		}
		tail += "</body>\n</html>"
		_, err := io.WriteString(w, tail)
		return err
	})
}

// PageIndex renders an alphabetical list of links to names, routed through
// the renderer's LinkHref hook.
func (r *Renderer) PageIndex(names []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nav := element(atom.Nav, "class", "wm-page-index")
		if len(names) == 0 {
			p := element(atom.P, "class", "wm-page-index-empty")
			p.AppendChild(text("문서가 없습니다."))
			nav.AppendChild(p)
			return xhtml.Render(w, nav)
		}
		ul := element(atom.Ul)
		for _, name := range names {
			a := element(atom.A, "href", r.hooks.LinkHref(name))
			a.AppendChild(text(name))
			li := element(atom.Li)
			li.AppendChild(a)
			ul.AppendChild(li)
		}
		nav.AppendChild(ul)
		return xhtml.Render(w, nav)
	})
}
