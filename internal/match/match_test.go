// internal/match/match_test.go
//
// Unit-tests for the pure matcher: literal precedence, slash variants,
// regex capture substitution, fallback ordering, and idempotence.
//
// Run: go test ./internal/match -v

package match

import (
	"testing"

	"github.com/yanizio/rebound/internal/rule"
)

func strptr(s string) *string { return &s }

func literal(id uint64, src, target string) rule.Rule {
	return rule.Rule{ID: id, SiteID: 1, SourceURL: src, TargetURL: strptr(target), IsActive: true}
}

func regex(id uint64, src, target string) rule.Rule {
	r := literal(id, src, target)
	r.IsRegex = true
	return r
}

func TestResolve_LiteralMatch(t *testing.T) {
	lits := []rule.Rule{literal(1, "/initial/", "/new_target/")}

	res := Resolve("/initial/", "", lits, nil, true)
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want Matched", res.Outcome)
	}
	if res.Target != "/new_target/" {
		t.Fatalf("target = %q, want /new_target/", res.Target)
	}
	if res.Rule.ID != 1 {
		t.Fatalf("rule id = %d, want 1", res.Rule.ID)
	}
}

func TestResolve_LiteralIsCaseSensitive(t *testing.T) {
	lits := []rule.Rule{literal(1, "/Initial/", "/new_target/")}

	if res := Resolve("/initial/", "", lits, nil, true); res.Outcome != NoMatch {
		t.Fatalf("outcome = %v, want NoMatch", res.Outcome)
	}
}

func TestResolve_AppendSlashVariant(t *testing.T) {
	lits := []rule.Rule{literal(1, "/foo/", "/bar/")}

	if res := Resolve("/foo", "", lits, nil, true); res.Outcome != Matched {
		t.Fatalf("append-slash on: outcome = %v, want Matched", res.Outcome)
	}
	if res := Resolve("/foo", "", lits, nil, false); res.Outcome != NoMatch {
		t.Fatalf("append-slash off: outcome = %v, want NoMatch", res.Outcome)
	}
}

func TestResolve_LiteralIgnoresQueryUnlessRuleEncodesIt(t *testing.T) {
	lits := []rule.Rule{
		literal(1, "/plain/", "/a/"),
		literal(2, "/search/?q=old", "/b/"),
	}

	res := Resolve("/plain/", "utm=x", lits, nil, true)
	if res.Outcome != Matched || res.Rule.ID != 1 {
		t.Fatalf("query should not defeat plain literal: %+v", res)
	}

	res = Resolve("/search/", "q=old", lits, nil, true)
	if res.Outcome != Matched || res.Rule.ID != 2 {
		t.Fatalf("query-encoding rule should match full path: %+v", res)
	}
}

func TestResolve_RegexCaptureSubstitution(t *testing.T) {
	regs := []rule.Rule{regex(1, "/news01/index/(.*)/", "/news02/boo/$1/")}

	res := Resolve("/news01/index/b/", "", nil, regs, true)
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want Matched", res.Outcome)
	}
	if res.Target != "/news02/boo/b/" {
		t.Fatalf("target = %q, want /news02/boo/b/", res.Target)
	}
}

func TestResolve_RegexIsCaseInsensitive(t *testing.T) {
	regs := []rule.Rule{regex(1, "/docs/(.*)", "/manual/$1")}

	res := Resolve("/Docs/intro", "", nil, regs, true)
	if res.Outcome != Matched || res.Target != "/manual/intro" {
		t.Fatalf("case-insensitive regex failed: %+v", res)
	}
}

func TestResolve_RegexMatchesFromStartOnly(t *testing.T) {
	regs := []rule.Rule{regex(1, "/inner/", "/x/")}

	if res := Resolve("/outer/inner/", "", nil, regs, true); res.Outcome != NoMatch {
		t.Fatalf("mid-path regex match should not count: %+v", res)
	}
}

func TestResolve_RegexSeesQueryString(t *testing.T) {
	regs := []rule.Rule{regex(1, `/article\.php\?id=(\d+)$`, "/articles/$1/")}

	res := Resolve("/article.php", "id=42", nil, regs, true)
	if res.Outcome != Matched || res.Target != "/articles/42/" {
		t.Fatalf("regex should match the full path with query: %+v", res)
	}
}

func TestResolve_MalformedPatternSkipped(t *testing.T) {
	regs := []rule.Rule{
		regex(1, "/broken/(", "/nowhere/"),
		regex(2, "/ok/(.*)/", "/fine/$1/"),
	}

	res := Resolve("/ok/yes/", "", nil, regs, true)
	if res.Outcome != Matched || res.Rule.ID != 2 {
		t.Fatalf("malformed pattern should be skipped: %+v", res)
	}
}

func TestResolve_LiteralBeatsRegex(t *testing.T) {
	lits := []rule.Rule{literal(1, "/page/", "/literal-target/")}
	regs := []rule.Rule{regex(2, "/page/", "/regex-target/")}

	res := Resolve("/page/", "", lits, regs, true)
	if res.Rule.ID != 1 {
		t.Fatalf("literal must win over regex: matched rule %d", res.Rule.ID)
	}
}

func TestResolve_FallbackLastOrdering(t *testing.T) {
	// The store sorts fallback rules last; the matcher honors list order.
	regs := []rule.Rule{
		regex(1, "/project/foo/(.*)/", "/my/project/foo/$1/"),
		regex(2, "/project/bar/(.*)/", "/my/project/bar/$1/"),
		func() rule.Rule {
			r := regex(3, "/project/(.*)/", "/projects/")
			r.IsFallback = true
			return r
		}(),
	}
	lits := []rule.Rule{
		literal(4, "/project/foo/", "/my/project/foo/"),
		literal(5, "/project/bar/", "/my/project/bar/"),
	}

	cases := []struct {
		path string
		want string
	}{
		{"/project/foo/", "/my/project/foo/"},
		{"/project/bar/", "/my/project/bar/"},
		{"/project/bar/details/", "/my/project/bar/details/"},
		{"/project/foobar/", "/projects/"},
		{"/project/foo/details/", "/my/project/foo/details/"},
	}
	for _, tc := range cases {
		res := Resolve(tc.path, "", lits, regs, true)
		if res.Outcome != Matched {
			t.Fatalf("%s: outcome = %v, want Matched", tc.path, res.Outcome)
		}
		if res.Target != tc.want {
			t.Fatalf("%s: target = %q, want %q", tc.path, res.Target, tc.want)
		}
	}
}

func TestResolve_MatchedButNoTarget(t *testing.T) {
	miss := rule.Rule{ID: 1, SiteID: 1, SourceURL: "/recorded/", IsActive: true}

	res := Resolve("/recorded/", "", []rule.Rule{miss}, nil, true)
	if res.Outcome != MatchedNoTarget {
		t.Fatalf("outcome = %v, want MatchedNoTarget", res.Outcome)
	}
	if res.Rule == nil || res.Rule.ID != 1 {
		t.Fatal("matched rule must still be reported for hit counting")
	}
}

func TestResolve_PageTargetReportedForCaller(t *testing.T) {
	page := uint64(7)
	r := rule.Rule{ID: 1, SiteID: 1, SourceURL: "/to-page/", TargetPageID: &page, IsActive: true}

	res := Resolve("/to-page/", "", []rule.Rule{r}, nil, true)
	if res.Outcome != Matched || res.Target != "" {
		t.Fatalf("page-target match should defer target resolution: %+v", res)
	}
}

func TestExpandTarget_UnknownGroupStaysLiteral(t *testing.T) {
	regs := []rule.Rule{regex(1, "/old/(.*)/", "/new/$1/$5/")}

	res := Resolve("/old/x/", "", nil, regs, true)
	if res.Target != "/new/x/$5/" {
		t.Fatalf("unknown group must pass through literally: %q", res.Target)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	lits := []rule.Rule{literal(1, "/a/", "/b/")}
	regs := []rule.Rule{regex(2, "/c/(.*)/", "/d/$1/")}

	first := Resolve("/c/z/", "", lits, regs, true)
	second := Resolve("/c/z/", "", lits, regs, true)
	if first.Outcome != second.Outcome || first.Target != second.Target {
		t.Fatalf("matcher is not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	if res := Resolve("/unknown/", "", nil, nil, true); res.Outcome != NoMatch {
		t.Fatalf("outcome = %v, want NoMatch", res.Outcome)
	}
}
