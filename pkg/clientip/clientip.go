// Package clientip derives a best-guess public client address from request signals.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Provenance tags for addresses that do not come from a header.
const (
	SourceResolved = "resolved"
	SourceRemote   = "remote"
)

// DefaultHeaders is the header priority used when none is configured.
// The first entry is expected to be set by a trusted first-hop proxy.
var DefaultHeaders = []string{
	"X-Client-Real-IP",
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"X-Client-IP",
}

// listHeaders hold comma separated proxy chains.
var listHeaders = map[string]struct{}{
	"X-Forwarded-For": {},
}

// Signals is everything the extractor needs from a request.
type Signals struct {
	Header     http.Header
	ResolvedIP string // peer address as resolved by the server, without port
	RemoteAddr string // raw socket address, unprocessed
}

// FromRequest copies the signals out of r so they outlive the request.
func FromRequest(r *http.Request) Signals {
	resolved := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		resolved = host
	}

	return Signals{
		Header:     r.Header.Clone(),
		ResolvedIP: resolved,
		RemoteAddr: r.RemoteAddr,
	}
}

// Result is the chosen address and where it came from.
type Result struct {
	IP     string
	Source string
}

// Extractor picks a client address using an ordered header policy.
type Extractor struct {
	headers []string
}

// NewExtractor returns an extractor checking headers in the given order.
// An empty list falls back to DefaultHeaders.
func NewExtractor(headers []string) *Extractor {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}

	canonical := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		canonical = append(canonical, http.CanonicalHeaderKey(h))
	}

	return &Extractor{headers: canonical}
}

// Headers returns the effective priority order.
func (e *Extractor) Headers() []string {
	out := make([]string, len(e.headers))
	copy(out, e.headers)
	return out
}

// Extract returns the first public address found in priority order.
// The raw remote address is the last resort and is returned even when private.
// ok is false only when no signal carried any value at all.
func (e *Extractor) Extract(s Signals) (Result, bool) {
	for _, name := range e.headers {
		value := strings.TrimSpace(s.Header.Get(name))
		if value == "" {
			continue
		}

		if _, isList := listHeaders[name]; isList {
			// leftmost non-private entry wins, later proxies are ignored
			for _, part := range strings.Split(value, ",") {
				candidate := strings.TrimSpace(part)
				if candidate != "" && !IsPrivate(candidate) {
					return Result{IP: candidate, Source: strings.ToLower(name)}, true
				}
			}
			continue
		}

		if !IsPrivate(value) {
			return Result{IP: value, Source: strings.ToLower(name)}, true
		}
	}

	if s.ResolvedIP != "" && !IsPrivate(s.ResolvedIP) {
		return Result{IP: s.ResolvedIP, Source: SourceResolved}, true
	}

	if s.RemoteAddr != "" {
		return Result{IP: hostOnly(s.RemoteAddr), Source: SourceRemote}, true
	}

	return Result{}, false
}

// hostOnly drops the port from a socket address, leaving other values as is.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Normalize strips IPv6 brackets, a trailing port and the IPv4-mapped prefix.
func Normalize(ip string) string {
	ip = strings.TrimSpace(ip)

	if open := strings.IndexByte(ip, '['); open >= 0 {
		if end := strings.IndexByte(ip[open:], ']'); end > 1 {
			ip = ip[open+1 : open+end]
		}
	}

	if strings.Contains(ip, ":") && !strings.Contains(ip, "::") {
		if _, err := netip.ParseAddr(ip); err != nil {
			ip = ip[:strings.IndexByte(ip, ':')]
		}
	}

	return strings.TrimPrefix(ip, "::ffff:")
}

var privateV4 = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// textual prefixes for values that still do not parse after Normalize
var privatePrefixes = []string{"127.", "10.", "192.168.", "::1"}

// IsPrivate reports whether ip is loopback or RFC1918. Empty input counts as private.
func IsPrivate(ip string) bool {
	ip = Normalize(ip)
	if ip == "" {
		return true
	}

	if strings.EqualFold(ip, "localhost") {
		return true
	}

	if addr, err := netip.ParseAddr(ip); err == nil {
		addr = addr.Unmap()
		if addr.IsLoopback() {
			return true
		}
		if !addr.Is4() {
			return false
		}
		for _, p := range privateV4 {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	for _, p := range privatePrefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	// 172.16. - 172.31.
	if strings.HasPrefix(ip, "172.") {
		rest := strings.TrimPrefix(ip, "172.")
		if dot := strings.IndexByte(rest, '.'); dot > 0 {
			switch rest[:dot] {
			case "16", "17", "18", "19", "20", "21", "22", "23",
				"24", "25", "26", "27", "28", "29", "30", "31":
				return true
			}
		}
	}

	return false
}
