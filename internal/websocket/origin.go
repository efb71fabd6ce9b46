package websocket

import (
	"net"
	"net/url"
	"strings"
)

// AllowList accepts origins served from loopback hosts plus the configured
// origins. "*" accepts every origin.
type AllowList struct {
	origins map[string]bool
	any     bool
}

// NewAllowList creates a validator for origins such as
// "http://localhost:3000".
func NewAllowList(origins []string) *AllowList {
	a := &AllowList{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		if o == "*" {
			a.any = true
			continue
		}
		a.origins[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return a
}

// IsAllowedOrigin implements OriginValidator.
func (a *AllowList) IsAllowedOrigin(origin string) bool {
	if a.any {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if a.origins[strings.ToLower(u.Scheme+"://"+u.Host)] {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
