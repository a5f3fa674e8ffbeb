package listing

import (
	"net/url"
	"strings"
)

const canonicalHost = "www.thegradcafe.com"

// CanonicalResultURL rewrites a detail reference into its canonical form:
// https scheme, www host, query and fragment stripped. The canonical form is
// the natural key for deduplication, so every variant of the same reference
// must collapse to one string.
func CanonicalResultURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = "https"

	host := u.Host
	if host == "" {
		host = canonicalHost
	}
	if host == "thegradcafe.com" {
		host = canonicalHost
	}
	u.Host = host

	return u.String()
}

// ValidResultURL reports whether the reference points at a result detail
// page on the listing source.
func ValidResultURL(raw string) bool {
	if raw == "" {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return strings.HasSuffix(u.Host, "thegradcafe.com") && strings.HasPrefix(u.Path, "/result/")
}
