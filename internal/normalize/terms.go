package normalize

import (
	"regexp"
	"strings"
)

// Start-term inference accepts a term/year pair only when an enrollment
// context token is present AND a season (or month) token is followed by a
// 20xx year within a bounded character window. False positives are worse
// than missing data, so ambiguity rejects the whole inference.

var (
	contextRe = regexp.MustCompile(`(?i)(start|starting|begins?|beginning|term|semester|matriculat|enroll|cohort)`)
	seasonRe  = regexp.MustCompile(`(?i)\b(spring|summer|fall|autumn|winter)\b`)
	monthRe   = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t)?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`)
	yearRe    = regexp.MustCompile(`\b(20\d{2})\b`)
)

var termAliases = map[string]string{
	"spring": "Spring",
	"summer": "Summer",
	"fall":   "Fall",
	"autumn": "Fall",
	"winter": "Winter",
}

var monthTerms = map[string]string{
	"jan": "Spring", "feb": "Spring", "mar": "Spring", "apr": "Spring",
	"may": "Summer", "jun": "Summer", "jul": "Summer",
	"aug": "Fall", "sep": "Fall", "oct": "Fall", "nov": "Fall",
	"dec": "Winter",
}

// InferTermYear infers a start term and year from free text. maxGap is the
// maximum character distance between the term token and the year token; the
// pair is rejected when the year sits further away.
func InferTermYear(maxGap int, texts ...string) (term, year string, ok bool) {
	hay := CleanText(strings.Join(texts, " "))
	if hay == "" {
		return "", "", false
	}

	if !contextRe.MatchString(hay) {
		return "", "", false
	}

	if t, y, found := matchTokenYear(hay, seasonRe, maxGap, seasonTerm); found {
		return t, y, true
	}

	if t, y, found := matchTokenYear(hay, monthRe, maxGap, monthTerm); found {
		return t, y, true
	}

	return "", "", false
}

func matchTokenYear(hay string, tokenRe *regexp.Regexp, maxGap int, toTerm func(string) string) (string, string, bool) {
	for _, loc := range tokenRe.FindAllStringIndex(hay, -1) {
		window := hay[loc[1]:]
		if len(window) > maxGap {
			window = window[:maxGap]
		}

		ym := yearRe.FindStringSubmatch(window)
		if ym == nil {
			continue
		}

		term := toTerm(hay[loc[0]:loc[1]])
		if term == "" {
			continue
		}

		return term, ym[1], true
	}

	return "", "", false
}

func seasonTerm(token string) string {
	return termAliases[strings.ToLower(token)]
}

func monthTerm(token string) string {
	t := strings.ToLower(token)
	if len(t) > 3 {
		t = t[:3]
	}
	return monthTerms[t]
}
