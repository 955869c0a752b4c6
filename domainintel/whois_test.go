package domainintel

import (
	"errors"
	"os"
	"testing"
	"time"

	parser "github.com/likexian/whois-parser"
)

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Example.COM", "example.com"},
		{"www.example.com", "example.com"},
		{"https://www.example.com/login?x=1", "example.com"},
		{"example.com.", "example.com"},
		{"example.com:8443", "example.com"},
		{"user:pass@secure.example.com/a", "secure.example.com"},
		{"bücher.example", "xn--bcher-kva.example"},
		{"[::1]:8080", "::1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHostname(tt.in); got != tt.want {
			t.Errorf("NormalizeHostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := map[string]string{
		"login.paypal.com.example.co.uk": "example.co.uk",
		"a.b.example.com":                "example.com",
		"example.com":                    "example.com",
		"co.uk":                          "co.uk",
	}
	for in, want := range tests {
		if got := RegistrableDomain(in); got != want {
			t.Errorf("RegistrableDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2021-03-04",
		"2021-03-04T00:00:00Z",
		"2021-03-04 00:00:00",
		"04-Mar-2021",
		"2021.03.04",
		" 2021/03/04 ",
	} {
		if got := parseDate(s); !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseDate("sometime last spring"); !got.IsZero() {
		t.Errorf("unparseable date gave %v, want zero", got)
	}
}

func TestParseRegistration(t *testing.T) {
	raw, err := os.ReadFile("testdata/example.com.txt")
	if err != nil {
		t.Fatal(err)
	}

	reg, err := ParseRegistration(string(raw))
	if err != nil {
		t.Fatalf("ParseRegistration: %v", err)
	}
	if want := time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC); !reg.CreatedAt.Equal(want) {
		t.Errorf("created = %v, want %v", reg.CreatedAt, want)
	}
	if want := time.Date(2026, 8, 13, 4, 0, 0, 0, time.UTC); !reg.ExpiresAt.Equal(want) {
		t.Errorf("expires = %v, want %v", reg.ExpiresAt, want)
	}
}

func TestParseRegistrationNotFound(t *testing.T) {
	raw, err := os.ReadFile("testdata/notfound.txt")
	if err != nil {
		t.Fatal(err)
	}

	_, err = ParseRegistration(string(raw))
	if !errors.Is(err, parser.ErrNotFoundDomain) {
		t.Fatalf("err = %v, want ErrNotFoundDomain", err)
	}
	if got := Classify(err); got != StatusNotFound {
		t.Errorf("Classify = %s, want not_found", got)
	}
}
