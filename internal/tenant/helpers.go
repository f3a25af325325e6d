// internal/tenant/helpers.go
//
// Host helpers shared by the resolver, cache, and middleware.
//
//   • `StripPort`         – drops any “:port” suffix from a Host header and
//     lower-cases the name.
//   • `resolveLookupHost` – maps the literal host “localhost” to a configured
//     alias so dev instances can masquerade as any real site row.
//   • `firstSegment`      – the leading path segment used as a site slug in
//     path-prefix mode.
//
// No logging here; callers decide what to log.

package tenant

import (
	"net"
	"strings"
)

// StripPort removes :port from the Host header when present.
func StripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.ToLower(strings.TrimSuffix(h, "."))
}

// resolveLookupHost returns the host string used to query the `site` table.
func resolveLookupHost(h, localhostAlias string) string {
	if h == "localhost" && localhostAlias != "" {
		return localhostAlias
	}
	return h
}

// firstSegment returns "acme" for "/acme/pricing" and "" for "/".
func firstSegment(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return seg
}
