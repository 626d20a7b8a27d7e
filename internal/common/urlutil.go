package common

import (
	"net/url"
	"strings"
)

// StripFragment removes the fragment part of a URL. Two URLs that differ
// only in their fragment address the same document.
func StripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// HostVariants returns the URL rewritten with and without a leading "www."
// on the host, canonical form first. Used for cross-site matching where the
// same document is linked both ways.
func HostVariants(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return []string{rawURL}
	}

	host := u.Host
	alt := *u
	if strings.HasPrefix(host, "www.") {
		alt.Host = strings.TrimPrefix(host, "www.")
	} else {
		alt.Host = "www." + host
	}
	return []string{rawURL, alt.String()}
}

// SameDocument reports whether two URLs address the same document, ignoring
// fragments and a leading "www." on the host.
func SameDocument(a, b string) bool {
	a = StripFragment(a)
	b = StripFragment(b)
	if a == b {
		return true
	}
	for _, v := range HostVariants(a) {
		if v == b {
			return true
		}
	}
	return false
}
