// internal/rule/model_test.go
//
// Unit-tests for rule invariants and URL-variant normalization.
//
// Run: go test ./internal/rule -v

package rule

import (
	"reflect"
	"testing"
)

func strptr(s string) *string { return &s }
func u64ptr(n uint64) *uint64 { return &n }

func TestValidate_TargetsMutuallyExclusive(t *testing.T) {
	r := &Rule{
		SiteID:       1,
		SourceURL:    "/both/",
		TargetURL:    strptr("/a/"),
		TargetPageID: u64ptr(9),
	}
	if err := r.Validate(); err != ErrBothTargets {
		t.Fatalf("err = %v, want ErrBothTargets", err)
	}
}

func TestValidate_BothTargetsEmptyIsValid(t *testing.T) {
	// A recorded miss has no destination until triaged.
	r := &Rule{SiteID: 1, SourceURL: "/miss/"}
	if err := r.Validate(); err != nil {
		t.Fatalf("empty targets should validate: %v", err)
	}
}

func TestValidate_RequiresSiteAndSource(t *testing.T) {
	if err := (&Rule{SourceURL: "/x/"}).Validate(); err == nil {
		t.Fatal("missing site_id should fail validation")
	}
	if err := (&Rule{SiteID: 1}).Validate(); err == nil {
		t.Fatal("missing source_url should fail validation")
	}
}

func TestURLVariants(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		appendSlash bool
		want        []string
	}{
		{"policy off", "/foo/", false, []string{"/foo/"}},
		{"slashed input", "/foo/", true, []string{"/foo/", "/foo"}},
		{"bare input", "/foo", true, []string{"/foo", "/foo/"}},
		{"whitespace trimmed", " /foo ", true, []string{"/foo", "/foo/"}},
		{"root slash only", "/", true, []string{"/"}},
		{"double trailing slash", "/foo//", true, []string{"/foo//", "/foo", "/foo/"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := URLVariants(tc.url, tc.appendSlash)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("URLVariants(%q, %v) = %#v, want %#v", tc.url, tc.appendSlash, got, tc.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	lit := Rule{SiteID: 1, SourceURL: "/a/"}
	reg := Rule{SiteID: 1, SourceURL: "/a/(.*)", IsRegex: true}

	if lit.Kind() != KindLiteral || lit.Kind().String() != "literal" {
		t.Fatalf("literal kind mismatch: %v", lit.Kind())
	}
	if reg.Kind() != KindRegex || reg.Kind().String() != "regex" {
		t.Fatalf("regex kind mismatch: %v", reg.Kind())
	}
}

func TestHasTarget(t *testing.T) {
	if (&Rule{TargetURL: strptr("")}).HasTarget() {
		t.Fatal("empty target URL is not a target")
	}
	if !(&Rule{TargetURL: strptr("/x/")}).HasTarget() {
		t.Fatal("target URL should count")
	}
	if !(&Rule{TargetPageID: u64ptr(3)}).HasTarget() {
		t.Fatal("page reference should count")
	}
}
