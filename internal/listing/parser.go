package listing

import (
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nziran/gradpipe/internal/domain"
)

// minRowCells is the number of cells a listing row must carry to be a data
// row: university, program, date posted, decision, comments.
const minRowCells = 5

var (
	decisionRe = regexp.MustCompile(`(?i)^(Accepted|Rejected|Wait ?listed|Interview)\s+on\s+(.+)$`)

	// UI filler that leaks into the listing comment cell.
	commentFillerRe = regexp.MustCompile(`(?i)\b(Total comments|Open options|See More|Report)\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParsePage parses one listing page into partial records. Rows that carry
// enough cells but no valid detail reference are counted as parse failures
// and skipped; the page itself never fails on a bad row.
func ParsePage(r io.Reader, sourceURL string, pageIndex int) (*domain.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &domain.ParseError{URL: sourceURL, Detail: "invalid html: " + err.Error()}
	}

	page := &domain.ListingPage{Index: pageIndex}
	scrapedAt := time.Now().UTC()

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minRowCells {
			// Header rows and comment spill-over rows; not data rows.
			return
		}

		page.RawRows++

		rec, ok := parseRow(row, cells, sourceURL, scrapedAt)
		if !ok {
			page.ParseFailures++
			return
		}

		page.Records = append(page.Records, rec)
	})

	return page, nil
}

func parseRow(row, cells *goquery.Selection, sourceURL string, scrapedAt time.Time) (domain.PartialRecord, bool) {
	entryURL := extractEntryURL(row, sourceURL)
	if !ValidResultURL(entryURL) {
		return domain.PartialRecord{}, false
	}

	university := cellText(cells, 0)
	program := cellText(cells, 1)
	datePosted := cellText(cells, 2)
	decisionText := cellText(cells, 3)
	comments := cleanListingComment(cellText(cells, 4))

	status, decisionDate := parseDecision(decisionText)

	rec := domain.PartialRecord{
		Program:      program,
		University:   university,
		DatePosted:   datePosted,
		Status:       status,
		DecisionDate: decisionDate,
		EntryURL:     entryURL,
		SourceURL:    sourceURL,
		ScrapedAt:    scrapedAt,
	}
	if comments != "" {
		rec.Comments = domain.Some(comments)
	}

	return rec, true
}

func cellText(cells *goquery.Selection, i int) string {
	return collapseWhitespace(cells.Eq(i).Text())
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// parseDecision splits a decision cell like "Accepted on 29 Jan" into the
// status enum and the decision date. Text without the "on <date>" shape maps
// to a status only.
func parseDecision(text string) (domain.DecisionStatus, domain.Opt[string]) {
	if text == "" {
		return domain.DecisionUnknown, domain.None[string]()
	}

	m := decisionRe.FindStringSubmatch(text)
	if m == nil {
		return domain.ParseDecisionStatus(text), domain.None[string]()
	}

	status := domain.ParseDecisionStatus(m[1])
	date := strings.TrimSpace(m[2])
	if date == "" {
		return status, domain.None[string]()
	}

	return status, domain.Some(date)
}

// extractEntryURL finds the first /result/ link in the row and
// canonicalizes it.
func extractEntryURL(row *goquery.Selection, sourceURL string) string {
	var found string

	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, "/result/") {
			return true
		}

		found = resolveHref(sourceURL, href)
		return false
	})

	return CanonicalResultURL(found)
}

func resolveHref(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// cleanListingComment strips UI filler from the listing comment cell.
func cleanListingComment(text string) string {
	return collapseWhitespace(commentFillerRe.ReplaceAllString(text, ""))
}
