package normalize

import (
	"regexp"
	"strings"
)

// Doctoral and masters keyword sets for degree-level bucketing.
var (
	doctoralKeywords = []string{
		"phd", "dphil", "doctor", "psyd", "edd", "drph", "dpt", "md", "jd", "dds", "dmd",
	}
	mastersAbbrevRe = regexp.MustCompile(`\b(ma|ms|mfa|meng|mpa|mpp|mph|msc|mme|msw|mha)\b`)
)

// DegreeLevel buckets a free-text degree type into "PhD" or "Masters".
// Unrecognized degrees return the empty string and stay unknown.
func DegreeLevel(degree string) string {
	// Punctuated forms like "Ph.D." and "M.S." collapse to their bare
	// abbreviations before matching.
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(degree)), ".", "")
	if t == "" {
		return ""
	}

	for _, kw := range doctoralKeywords {
		if strings.Contains(t, kw) {
			return "PhD"
		}
	}

	if strings.Contains(t, "master") || mastersAbbrevRe.MatchString(t) {
		return "Masters"
	}

	return ""
}
