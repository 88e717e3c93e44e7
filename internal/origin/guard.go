// Package origin decides whether a browser origin may use a bot.
package origin

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotAllowed is returned when the calling origin is not on the bot's
// allow-list.
var ErrNotAllowed = errors.New("origin not allowed")

// DevDomains are hosting and preview platforms that are always allowed so
// tenants can try their widget before going live.
var DevDomains = []string{
	"localhost",
	"127.0.0.1",
	"lovable.app",
	"lovableproject.com",
	"vercel.app",
	"netlify.app",
}

// FromRequest returns the caller's origin, taken from the Origin header or,
// failing that, the scheme and host of the Referer.
func FromRequest(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" && o != "null" {
		return o
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Check returns nil if origin may call a bot with the given allow-list.
func Check(origin string, allowed []string) error {
	if Allowed(origin, allowed) {
		return nil
	}
	return ErrNotAllowed
}

// Allowed reports whether origin matches the allow-list. An empty allow-list
// admits every origin. Otherwise the origin's host must equal an entry or be a
// subdomain of one, or belong to one of DevDomains.
func Allowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	host := hostOf(origin)
	if host == "" {
		return false
	}

	for _, d := range allowed {
		if matchDomain(host, normalize(d)) {
			return true
		}
	}
	for _, d := range DevDomains {
		if matchDomain(host, d) {
			return true
		}
	}
	return false
}

func matchDomain(host, domain string) bool {
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// hostOf extracts the lower-cased hostname from an origin, tolerating values
// without a scheme.
func hostOf(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return ""
	}
	if !strings.Contains(origin, "://") {
		origin = "https://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// normalize turns an allow-list entry into a bare hostname. Entries may be
// stored as full URLs or with a leading "*." wildcard.
func normalize(entry string) string {
	entry = strings.TrimPrefix(strings.TrimSpace(entry), "*.")
	if strings.Contains(entry, "://") {
		return hostOf(entry)
	}
	entry = strings.TrimSuffix(entry, "/")
	if i := strings.IndexAny(entry, ":/"); i >= 0 {
		entry = entry[:i]
	}
	return strings.ToLower(entry)
}
