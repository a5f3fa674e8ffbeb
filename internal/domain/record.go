// Package domain defines the core types shared across the ingest pipeline.
package domain

import "time"

// Opt is an optional field value. Known distinguishes "looked for, not found"
// from a present value, so every schema field exists even when unpopulated.
type Opt[T any] struct {
	Value T
	Known bool
}

// Some returns a known value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Known: true}
}

// None returns an explicitly-unknown value.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Or returns the value when known, otherwise def.
func (o Opt[T]) Or(def T) T {
	if o.Known {
		return o.Value
	}
	return def
}

// DecisionStatus is the admission decision reported on a listing row.
type DecisionStatus string

const (
	DecisionAccepted   DecisionStatus = "Accepted"
	DecisionRejected   DecisionStatus = "Rejected"
	DecisionWaitlisted DecisionStatus = "Waitlisted"
	DecisionInterview  DecisionStatus = "Interview"
	DecisionOther      DecisionStatus = "Other"
	DecisionUnknown    DecisionStatus = "Unknown"
)

// Residency is the categorical origin classification of an applicant.
type Residency string

const (
	ResidencyInternational Residency = "International"
	ResidencyAmerican      Residency = "American"
	ResidencyUnknown       Residency = "Unknown"
)

// PartialRecord holds the fields captured from a listing row. It is immutable
// once produced; the detail reference (EntryURL) is the natural key candidate.
type PartialRecord struct {
	Program      string
	University   string
	DatePosted   string
	Status       DecisionStatus
	DecisionDate Opt[string]
	Comments     Opt[string]
	EntryURL     string
	SourceURL    string
	ScrapedAt    time.Time
}

// ListingPage is one parsed page of the paginated listing.
type ListingPage struct {
	Index         int
	RawRows       int
	ParseFailures int
	Records       []PartialRecord
}

// DetailFields holds the enrichment fields extracted from a detail page.
// Absence of a field inside a successful fetch is distinct from a fetch
// failure: the former is an unknown Opt, the latter a DetailResult error.
type DetailFields struct {
	Degree        Opt[string]
	International Opt[bool]
	GPA           Opt[float64]
	GRETotal      Opt[float64]
	GREVerbal     Opt[float64]
	GREWriting    Opt[float64]
	Notes         Opt[string]
	StartTerm     Opt[string]
	StartYear     Opt[string]
}

// DetailResult is the outcome of fetching one detail reference. Exactly one
// result is produced per requested reference; Ref re-associates the result
// with its originating record regardless of completion order.
type DetailResult struct {
	Ref    string
	Fields DetailFields
	Err    error
}

// NormalizedRecord is the canonical schema combining listing and detail
// fields. Every schema key exists on every instance; optional fields carry
// an explicit unknown marker instead of being omitted.
type NormalizedRecord struct {
	URL          string
	Program      string
	University   string
	Comments     Opt[string]
	DateAdded    Opt[time.Time]
	Status       DecisionStatus
	DecisionDate Opt[string]
	Term         Opt[string]
	Residency    Residency
	GPA          Opt[float64]
	GRETotal     Opt[float64]
	GREVerbal    Opt[float64]
	GREWriting   Opt[float64]
	Degree       Opt[string]
	DegreeLevel  Opt[string]
	ScrapedAt    time.Time
}

// LoadResult classifies the outcome of loading one record.
type LoadResult string

const (
	LoadInserted         LoadResult = "inserted"
	LoadSkippedDuplicate LoadResult = "skipped-duplicate"
	LoadUpdated          LoadResult = "updated"
	LoadFailed           LoadResult = "failed"
)

// LoadOutcome is the per-record result of the load step.
type LoadOutcome struct {
	URL          string
	Result       LoadResult
	RowsAffected int64
	Err          error
}
