// Package normalize merges listing and detail fields into the canonical
// record schema.
package normalize

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/nziran/gradpipe/internal/domain"
)

// Options tunes normalization behavior.
type Options struct {
	// TermYearMaxGap is the co-location window for start-term inference.
	TermYearMaxGap int
}

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	errMissingKey = errors.New("missing natural key")
)

// dateLayouts are the posting-date shapes seen on listing pages.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006-01-02",
}

// CleanText strips markup remnants, collapses whitespace, and trims. Empty
// results stay empty so callers can coerce them to the unknown marker.
func CleanText(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Normalize merges a partial record with its detail result into the
// canonical schema. Deterministic and pure: the same inputs always produce
// the same output. Every schema key exists on the returned record; absent
// data is explicitly unknown, never omitted.
func Normalize(p domain.PartialRecord, d domain.DetailResult, opts Options) (domain.NormalizedRecord, error) {
	if p.EntryURL == "" {
		return domain.NormalizedRecord{}, &domain.NormalizationError{
			URL:   p.SourceURL,
			Field: "url",
			Err:   errMissingKey,
		}
	}

	rec := domain.NormalizedRecord{
		URL:        p.EntryURL,
		Program:    CleanText(p.Program),
		University: CleanText(p.University),
		Status:     p.Status,
		Residency:  domain.ResidencyUnknown,
		ScrapedAt:  p.ScrapedAt,
	}

	if p.DecisionDate.Known {
		if date := CleanText(p.DecisionDate.Value); date != "" {
			rec.DecisionDate = domain.Some(date)
		}
	}

	rec.DateAdded = parseDate(CleanText(p.DatePosted))
	rec.Comments = cleanOpt(p.Comments)

	fields := d.Fields
	if d.Err != nil {
		// Failed detail fetch: every enrichment field stays unknown.
		fields = domain.DetailFields{}
	}

	applyDetail(&rec, fields, opts)

	return rec, nil
}

func applyDetail(rec *domain.NormalizedRecord, fields domain.DetailFields, opts Options) {
	rec.Degree = cleanOpt(fields.Degree)
	if rec.Degree.Known {
		if level := DegreeLevel(rec.Degree.Value); level != "" {
			rec.DegreeLevel = domain.Some(level)
		}
	}

	if fields.International.Known {
		if fields.International.Value {
			rec.Residency = domain.ResidencyInternational
		} else {
			rec.Residency = domain.ResidencyAmerican
		}
	}

	rec.GPA = fields.GPA
	rec.GRETotal = fields.GRETotal
	rec.GREVerbal = fields.GREVerbal
	rec.GREWriting = fields.GREWriting

	// Detail-page notes are richer than the listing comment cell.
	if notes := cleanOpt(fields.Notes); notes.Known {
		rec.Comments = notes
	}

	rec.Term = composeTerm(fields, rec.Comments, opts)
}

// composeTerm builds the start-term string from explicit detail fields,
// falling back to inference from comment text when both are absent.
func composeTerm(fields domain.DetailFields, comments domain.Opt[string], opts Options) domain.Opt[string] {
	term := CleanText(fields.StartTerm.Or(""))
	year := CleanText(fields.StartYear.Or(""))

	if term == "" && year == "" && comments.Known {
		if t, y, ok := InferTermYear(opts.TermYearMaxGap, comments.Value); ok {
			term, year = t, y
		}
	}

	switch {
	case term != "" && year != "":
		return domain.Some(term + " " + year)
	case term != "":
		return domain.Some(term)
	case year != "":
		return domain.Some(year)
	default:
		return domain.None[string]()
	}
}

func cleanOpt(o domain.Opt[string]) domain.Opt[string] {
	if !o.Known {
		return domain.None[string]()
	}
	if cleaned := CleanText(o.Value); cleaned != "" {
		return domain.Some(cleaned)
	}
	return domain.None[string]()
}

func parseDate(s string) domain.Opt[time.Time] {
	if s == "" {
		return domain.None[time.Time]()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Some(t)
		}
	}
	return domain.None[time.Time]()
}
