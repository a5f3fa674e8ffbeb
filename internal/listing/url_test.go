package listing_test

import (
	"testing"

	"github.com/nziran/gradpipe/internal/listing"
)

func TestCanonicalResultURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "already canonical",
			in:   "https://www.thegradcafe.com/result/12345",
			want: "https://www.thegradcafe.com/result/12345",
		},
		{
			name: "http scheme upgraded",
			in:   "http://www.thegradcafe.com/result/12345",
			want: "https://www.thegradcafe.com/result/12345",
		},
		{
			name: "bare host gets www",
			in:   "https://thegradcafe.com/result/12345",
			want: "https://www.thegradcafe.com/result/12345",
		},
		{
			name: "query stripped",
			in:   "https://www.thegradcafe.com/result/12345?sort=new&tab=1",
			want: "https://www.thegradcafe.com/result/12345",
		},
		{
			name: "fragment stripped",
			in:   "https://www.thegradcafe.com/result/12345#comments",
			want: "https://www.thegradcafe.com/result/12345",
		},
		{
			name: "empty stays empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := listing.CanonicalResultURL(tt.in); got != tt.want {
				t.Errorf("CanonicalResultURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalResultURLCollapsesVariants(t *testing.T) {
	t.Parallel()

	variants := []string{
		"https://www.thegradcafe.com/result/777",
		"http://thegradcafe.com/result/777",
		"https://www.thegradcafe.com/result/777?page=3",
		"http://www.thegradcafe.com/result/777#top",
	}

	want := listing.CanonicalResultURL(variants[0])
	for _, v := range variants {
		if got := listing.CanonicalResultURL(v); got != want {
			t.Errorf("variant %q canonicalized to %q, want %q", v, got, want)
		}
	}
}

func TestValidResultURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://www.thegradcafe.com/result/12345", true},
		{"https://thegradcafe.com/result/9", true},
		{"https://www.thegradcafe.com/survey/", false},
		{"https://evil.example.com/result/12345", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := listing.ValidResultURL(tt.in); got != tt.want {
			t.Errorf("ValidResultURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
