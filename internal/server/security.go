package server

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/websocket"
)

// SecurityConfig holds the response headers and request checks applied to
// every route.
type SecurityConfig struct {
	CSP               *CSPConfig
	XFrameOptions     string
	ContentNoSniff    bool
	ReferrerPolicy    string
	Origins           websocket.OriginValidator
	BlockedUserAgents []string
	Logger            logging.Logger
}

// CSPConfig holds Content Security Policy directives.
type CSPConfig struct {
	DefaultSrc     []string
	ScriptSrc      []string
	StyleSrc       []string
	ImgSrc         []string
	ConnectSrc     []string
	ObjectSrc      []string
	FrameAncestors []string
	BaseURI        []string
}

// DefaultSecurityConfig allows the inline stylesheet and live reload script
// of rendered pages and images from any https host.
func DefaultSecurityConfig(origins websocket.OriginValidator) *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc:     []string{"'self'"},
			ScriptSrc:      []string{"'self'", "'unsafe-inline'"},
			StyleSrc:       []string{"'self'", "'unsafe-inline'"},
			ImgSrc:         []string{"'self'", "data:", "https:"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			ObjectSrc:      []string{"'none'"},
			FrameAncestors: []string{"'self'"},
			BaseURI:        []string{"'self'"},
		},
		XFrameOptions:  "SAMEORIGIN",
		ContentNoSniff: true,
		ReferrerPolicy: "strict-origin-when-cross-origin",
		Origins:        origins,
	}
}

// SecurityMiddleware applies security headers and rejects state-changing
// requests from foreign origins.
func SecurityMiddleware(secConfig *SecurityConfig) func(http.Handler) http.Handler {
	if secConfig == nil {
		secConfig = DefaultSecurityConfig(websocket.NewAllowList(nil))
	}
	logger := secConfig.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applySecurityHeaders(w, secConfig)

			if isBlockedUserAgent(r.UserAgent(), secConfig.BlockedUserAgents) {
				logger.Warn(r.Context(),
					errors.NewSecurityError("BLOCKED_USER_AGENT", "blocked user agent attempted access"),
					"security: blocked user agent",
					"user_agent", r.UserAgent(),
					"ip", getClientIP(r))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
				if !isValidOrigin(r, secConfig.Origins) {
					logger.Warn(r.Context(),
						errors.ErrInvalidOrigin(r.Header.Get("Origin")),
						"security: invalid origin",
						"origin", r.Header.Get("Origin"),
						"referer", r.Header.Get("Referer"),
						"ip", getClientIP(r))
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func applySecurityHeaders(w http.ResponseWriter, config *SecurityConfig) {
	if config.CSP != nil {
		w.Header().Set("Content-Security-Policy", buildCSPHeader(config.CSP))
	}
	if config.XFrameOptions != "" {
		w.Header().Set("X-Frame-Options", config.XFrameOptions)
	}
	if config.ContentNoSniff {
		w.Header().Set("X-Content-Type-Options", "nosniff")
	}
	if config.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
	}
}

func buildCSPHeader(csp *CSPConfig) string {
	var directives []string
	add := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
		}
	}

	add("default-src", csp.DefaultSrc)
	add("script-src", csp.ScriptSrc)
	add("style-src", csp.StyleSrc)
	add("img-src", csp.ImgSrc)
	add("connect-src", csp.ConnectSrc)
	add("object-src", csp.ObjectSrc)
	add("frame-ancestors", csp.FrameAncestors)
	add("base-uri", csp.BaseURI)
	return strings.Join(directives, "; ")
}

func isBlockedUserAgent(userAgent string, blockedAgents []string) bool {
	if userAgent == "" {
		return false
	}
	lower := strings.ToLower(userAgent)
	for _, blocked := range blockedAgents {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}

// isValidOrigin accepts requests without browser origin information, requests
// from the server's own host, and origins the validator allows. The Referer
// stands in for a missing Origin header.
func isValidOrigin(r *http.Request, origins websocket.OriginValidator) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		if referer := r.Header.Get("Referer"); referer != "" {
			if u, err := url.Parse(referer); err == nil && u.Host != "" {
				origin = u.Scheme + "://" + u.Host
			}
		}
	}
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return origins != nil && origins.IsAllowedOrigin(origin)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
