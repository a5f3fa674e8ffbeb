package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/normalize"
)

var testOpts = normalize.Options{TermYearMaxGap: 40}

func samplePartial() domain.PartialRecord {
	return domain.PartialRecord{
		Program:      " Computer   Science, PhD ",
		University:   "Example University",
		DatePosted:   "January 15, 2025",
		Status:       domain.DecisionAccepted,
		DecisionDate: domain.Some("12 Jan"),
		Comments:     domain.Some("listing comment"),
		EntryURL:     "https://www.thegradcafe.com/result/111",
		SourceURL:    "https://www.thegradcafe.com/survey/?page=1",
		ScrapedAt:    time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC),
	}
}

func TestNormalizeMergesListingAndDetail(t *testing.T) {
	t.Parallel()

	d := domain.DetailResult{
		Ref: "https://www.thegradcafe.com/result/111",
		Fields: domain.DetailFields{
			Degree:        domain.Some("PhD"),
			International: domain.Some(true),
			GPA:           domain.Some(3.8),
			GRETotal:      domain.Some(325.0),
			Notes:         domain.Some("Starting Fall 2025!"),
		},
	}

	rec, err := normalize.Normalize(samplePartial(), d, testOpts)
	require.NoError(t, err)

	assert.Equal(t, "https://www.thegradcafe.com/result/111", rec.URL)
	assert.Equal(t, "Computer Science, PhD", rec.Program, "whitespace collapsed")
	assert.Equal(t, domain.DecisionAccepted, rec.Status)
	assert.Equal(t, "12 Jan", rec.DecisionDate.Or(""))
	assert.Equal(t, domain.ResidencyInternational, rec.Residency)

	require.True(t, rec.DateAdded.Known)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), rec.DateAdded.Value)

	require.True(t, rec.GPA.Known)
	assert.InDelta(t, 3.8, rec.GPA.Value, 0.001)

	assert.Equal(t, "PhD", rec.Degree.Or(""))
	assert.Equal(t, "PhD", rec.DegreeLevel.Or(""))

	// Detail-page notes replace the listing comment cell.
	assert.Equal(t, "Starting Fall 2025!", rec.Comments.Or(""))

	// Term inferred from the notes text.
	assert.Equal(t, "Fall 2025", rec.Term.Or(""))
}

func TestNormalizeDetailFailureKeepsListingFields(t *testing.T) {
	t.Parallel()

	d := domain.DetailResult{
		Ref: "https://www.thegradcafe.com/result/111",
		Fields: domain.DetailFields{
			// Populated fields on a failed result must be ignored.
			GPA: domain.Some(3.9),
		},
		Err: &domain.FetchError{URL: "https://www.thegradcafe.com/result/111", StatusCode: 503},
	}

	rec, err := normalize.Normalize(samplePartial(), d, testOpts)
	require.NoError(t, err)

	assert.False(t, rec.GPA.Known, "enrichment from a failed fetch is discarded")
	assert.False(t, rec.Degree.Known)
	assert.Equal(t, domain.ResidencyUnknown, rec.Residency)
	assert.Equal(t, "listing comment", rec.Comments.Or(""), "listing fields survive")
	assert.Equal(t, domain.DecisionAccepted, rec.Status)
}

func TestNormalizeMissingKeyFails(t *testing.T) {
	t.Parallel()

	p := samplePartial()
	p.EntryURL = ""

	_, err := normalize.Normalize(p, domain.DetailResult{}, testOpts)
	require.Error(t, err)

	var normErr *domain.NormalizationError
	require.True(t, errors.As(err, &normErr))
	assert.Equal(t, "url", normErr.Field)
}

func TestNormalizeResidencyStrictness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		origin domain.Opt[bool]
		want   domain.Residency
	}{
		{"explicit american", domain.Some(false), domain.ResidencyAmerican},
		{"explicit international", domain.Some(true), domain.ResidencyInternational},
		{"absent stays unknown", domain.None[bool](), domain.ResidencyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := domain.DetailResult{Fields: domain.DetailFields{International: tt.origin}}
			rec, err := normalize.Normalize(samplePartial(), d, testOpts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Residency)
		})
	}
}

func TestNormalizeExplicitTermBeatsInference(t *testing.T) {
	t.Parallel()

	d := domain.DetailResult{
		Fields: domain.DetailFields{
			StartTerm: domain.Some("Spring"),
			StartYear: domain.Some("2026"),
			Notes:     domain.Some("I will start Fall 2025"),
		},
	}

	rec, err := normalize.Normalize(samplePartial(), d, testOpts)
	require.NoError(t, err)
	assert.Equal(t, "Spring 2026", rec.Term.Or(""))
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	p := samplePartial()
	d := domain.DetailResult{
		Fields: domain.DetailFields{
			Degree: domain.Some("Masters"),
			GPA:    domain.Some(3.5),
		},
	}

	first, err := normalize.Normalize(p, d, testOpts)
	require.NoError(t, err)

	for range 10 {
		again, err := normalize.Normalize(p, d, testOpts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"<b>bold</b> text", "bold text"},
		{"  spaced \t out \n lines ", "spaced out lines"},
		{"<div><span></span></div>", ""},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := normalize.CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
