package detail

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nziran/gradpipe/internal/domain"
)

// Labels on the detail page whose following line carries the field value.
const (
	labelDegree = "Degree Type"
	labelOrigin = "Degree's Country of Origin"
	labelNotes  = "Notes"
	labelTerm   = "Term"
	labelYear   = "Year"
	labelGPA    = "Undergrad GPA"
	labelGRE    = "GRE General:"
	labelGREV   = "GRE Verbal:"
	labelGREAW  = "Analytical Writing:"
)

// labelGarbage is label text that shows up as a value when the page layout
// drifts. A candidate value matching any of these is rejected outright.
var labelGarbage = map[string]struct{}{
	"GRE General:":               {},
	"GRE Verbal:":                {},
	"Analytical Writing:":        {},
	"Notes":                      {},
	"Undergrad GPA":              {},
	"Degree Type":                {},
	"Degree's Country of Origin": {},
	"Timeline":                   {},
	"Admissions":                 {},
	"Results":                    {},
	"Logo":                       {},
}

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// maxLabelLikeLen bounds the short trailing-colon strings treated as labels.
const maxLabelLikeLen = 25

// extractFields pulls enrichment fields out of a parsed detail document.
// Every numeric field is accepted only when its label is followed by a
// parseable number token; a derived boolean is set only when its source
// label is unambiguously present. Everything else stays explicitly unknown.
func extractFields(doc *goquery.Document) domain.DetailFields {
	lines := documentLines(doc)

	var fields domain.DetailFields

	if degree := textAfterLabel(lines, labelDegree); degree != "" {
		fields.Degree = domain.Some(degree)
	}

	if origin := textAfterLabel(lines, labelOrigin); origin != "" {
		// Strict: only an explicit "American" maps to false; any other
		// named origin is international. Absent origin stays unknown.
		fields.International = domain.Some(!strings.EqualFold(origin, "American"))
	}

	if notes := textAfterLabel(lines, labelNotes); notes != "" {
		fields.Notes = domain.Some(notes)
	}

	if term := textAfterLabel(lines, labelTerm); term != "" {
		fields.StartTerm = domain.Some(term)
	}
	if year := textAfterLabel(lines, labelYear); year != "" {
		fields.StartYear = domain.Some(year)
	}

	fields.GPA = numberAfterLabel(lines, labelGPA)
	fields.GRETotal = numberAfterLabel(lines, labelGRE)
	fields.GREVerbal = numberAfterLabel(lines, labelGREV)
	fields.GREWriting = numberAfterLabel(lines, labelGREAW)

	return fields
}

// documentLines flattens the document's visible text into trimmed lines.
func documentLines(doc *goquery.Document) []string {
	doc.Find("script, style").Remove()

	raw := strings.Split(doc.Text(), "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// textAfterLabel returns the line following an exact label match, rejecting
// values that are themselves labels.
func textAfterLabel(lines []string, label string) string {
	for i, ln := range lines {
		if ln != label || i+1 >= len(lines) {
			continue
		}

		value := strings.TrimSpace(lines[i+1])
		if isLabelLike(value) {
			return ""
		}
		return value
	}
	return ""
}

// numberAfterLabel applies the numeric extraction policy: the label's value
// line must contain a parseable number token, and zero-valued placeholders
// are treated as absent.
func numberAfterLabel(lines []string, label string) domain.Opt[float64] {
	value := textAfterLabel(lines, label)
	if value == "" {
		return domain.None[float64]()
	}

	token := numberRe.FindString(value)
	if token == "" {
		return domain.None[float64]()
	}

	n, err := strconv.ParseFloat(token, 64)
	if err != nil || n == 0 {
		return domain.None[float64]()
	}

	return domain.Some(n)
}

// isLabelLike reports whether a candidate value is label text rather than
// data: a known label, or a short string ending in a colon.
func isLabelLike(value string) bool {
	if _, ok := labelGarbage[value]; ok {
		return true
	}
	return strings.HasSuffix(value, ":") && len(value) <= maxLabelLikeLen
}
