package domain_test

import (
	"testing"

	"github.com/nziran/gradpipe/internal/domain"
)

func TestParseDecisionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want domain.DecisionStatus
	}{
		{"Accepted", domain.DecisionAccepted},
		{"accepted", domain.DecisionAccepted},
		{" REJECTED ", domain.DecisionRejected},
		{"Waitlisted", domain.DecisionWaitlisted},
		{"Wait listed", domain.DecisionWaitlisted},
		{"wait-listed", domain.DecisionWaitlisted},
		{"Interview", domain.DecisionInterview},
		{"Other", domain.DecisionOther},
		{"Something odd", domain.DecisionOther},
		{"", domain.DecisionUnknown},
		{"   ", domain.DecisionUnknown},
	}

	for _, tt := range tests {
		if got := domain.ParseDecisionStatus(tt.in); got != tt.want {
			t.Errorf("ParseDecisionStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpt(t *testing.T) {
	t.Parallel()

	some := domain.Some(3.8)
	if !some.Known || some.Value != 3.8 {
		t.Errorf("Some(3.8) = %+v", some)
	}
	if got := some.Or(0); got != 3.8 {
		t.Errorf("Some(3.8).Or(0) = %v", got)
	}

	none := domain.None[float64]()
	if none.Known {
		t.Errorf("None().Known = true")
	}
	if got := none.Or(2.5); got != 2.5 {
		t.Errorf("None().Or(2.5) = %v", got)
	}
}

func TestFetchErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  domain.FetchError
		want bool
	}{
		{"transport failure", domain.FetchError{URL: "u"}, true},
		{"throttled", domain.FetchError{URL: "u", StatusCode: 429}, true},
		{"server error", domain.FetchError{URL: "u", StatusCode: 503}, true},
		{"not found", domain.FetchError{URL: "u", StatusCode: 404}, false},
		{"ok-but-unexpected", domain.FetchError{URL: "u", StatusCode: 302}, false},
	}

	for _, tt := range tests {
		if got := tt.err.Retryable(); got != tt.want {
			t.Errorf("%s: Retryable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	fatal := &domain.FatalRunError{Err: domain.ErrBusy}
	if !domain.IsFatal(fatal) {
		t.Error("IsFatal(FatalRunError) = false")
	}
	if domain.IsFatal(domain.ErrBusy) {
		t.Error("IsFatal(ErrBusy) = true")
	}
	if domain.IsFatal(nil) {
		t.Error("IsFatal(nil) = true")
	}
}
