// internal/match/match.go
//
// Pure redirect matching over cached rule snapshots.
//
// Context
// -------
// Resolve is a function of its inputs only: the request path and query,
// the two ordered rule lists from the cache, and the append-slash
// policy.  It holds no mutable state, so identical inputs always give
// identical outcomes and many requests may resolve concurrently against
// the same cached lists.
//
// Algorithm
// ---------
//  1. Literal rules are tried first, in cache order, against the path
//     (plus the full path when the rule source encodes a query) and,
//     under append-slash, the slash-appended variants.  Equality is
//     case-sensitive.
//  2. Regex rules follow, in cache order, compiled case-insensitive and
//     required to match at the start of the full path (the pattern
//     supplies its own end anchor if it wants one).  Uncompilable
//     patterns are skipped without aborting the scan.
//  3. Fallback rules were already sorted last *within* each kind by the
//     store; the kind boundary itself is fixed, so a regex fallback can
//     never out-rank a literal rule.
//
// Capture substitution expands `$1`, `$2`, … in the target against the
// groups of the pattern that actually matched; a reference to a group
// the pattern does not have passes through as literal text.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package match

import (
	"regexp"
	"strings"

	"github.com/yanizio/rebound/internal/rule"
)

//
// Outcome
//

// Outcome classifies a resolution attempt.
type Outcome int

const (
	// NoMatch: no rule matched; the caller records the miss and serves
	// the original 404.
	NoMatch Outcome = iota

	// Matched: a rule matched and names a destination (URL or page).
	Matched

	// MatchedNoTarget: a rule matched but resolves to nothing usable;
	// the caller still counts the hit yet serves the original 404.
	MatchedNoTarget
)

// Result carries the matched rule plus the substituted target.  When the
// rule names a page reference instead of a URL, Target is empty and the
// caller resolves the page, optionally re-expanding captures with
// ExpandTarget so `$1` placeholders in page URLs line up with the same
// pattern that matched.
type Result struct {
	Outcome Outcome
	Rule    *rule.Rule
	Target  string

	groups []string // captured groups; groups[0] is the whole match
	tail   string   // unmatched remainder of the full path
}

//
// Resolution
//

// Resolve evaluates the request against both rule lists.  path is the
// URL path; rawQuery the query string without "?".
func Resolve(path, rawQuery string, literals, regexes []rule.Rule, appendSlash bool) Result {
	fullPath := path
	if rawQuery != "" {
		fullPath += "?" + rawQuery
	}

	// 1. Literal scan over the computed variant set.  Equality is defined
	// against the path without its query; a rule whose own source encodes
	// a query string still matches the full path.  The slash variant
	// appends to the path segment only, never inside the query.
	variants := []string{path}
	if rawQuery != "" {
		variants = append(variants, fullPath)
	}
	if appendSlash && !strings.HasSuffix(path, "/") {
		variants = append(variants, path+"/")
		if rawQuery != "" {
			variants = append(variants, path+"/?"+rawQuery)
		}
	}

	for i := range literals {
		r := &literals[i]
		for _, cand := range variants {
			if r.SourceURL == cand {
				return finish(r, nil, "")
			}
		}
	}

	// 2. Regex scan against the full path including the query string.
	for i := range regexes {
		r := &regexes[i]
		re, err := regexp.Compile("(?i)" + r.SourceURL)
		if err != nil {
			continue // malformed pattern, skip without aborting
		}
		loc := re.FindStringSubmatchIndex(fullPath)
		if loc == nil || loc[0] != 0 {
			continue // patterns match from the start of the path
		}

		groups := make([]string, 0, re.NumSubexp()+1)
		for g := 0; g <= re.NumSubexp(); g++ {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, fullPath[start:end])
		}
		return finish(r, groups, fullPath[loc[1]:])
	}

	return Result{Outcome: NoMatch}
}

// finish classifies a matched rule and pre-expands its URL target.
func finish(r *rule.Rule, groups []string, tail string) Result {
	res := Result{Rule: r, groups: groups, tail: tail}
	switch {
	case r.Target() != "":
		res.Outcome = Matched
		res.Target = res.ExpandTarget(r.Target())
	case r.TargetPageID != nil:
		res.Outcome = Matched // caller resolves the page reference
	default:
		res.Outcome = MatchedNoTarget
	}
	return res
}

//
// Capture substitution
//

// ExpandTarget substitutes `$N` placeholders in target with the captured
// groups of this result's match.  Literal matches have no groups, so the
// target passes through unchanged; so do references to groups the
// pattern never defined.
func (res Result) ExpandTarget(target string) string {
	if len(res.groups) == 0 {
		return target
	}

	var b strings.Builder
	b.Grow(len(target) + len(res.tail))
	for i := 0; i < len(target); {
		c := target[i]
		if c != '$' || i+1 >= len(target) || !isDigit(target[i+1]) {
			b.WriteByte(c)
			i++
			continue
		}

		j := i + 1
		for j < len(target) && isDigit(target[j]) {
			j++
		}
		n := 0
		for _, d := range target[i+1 : j] {
			n = n*10 + int(d-'0')
		}
		if n >= len(res.groups) {
			// Unknown group: the dollar-digit sequence stays literal.
			b.WriteString(target[i:j])
		} else {
			b.WriteString(res.groups[n])
		}
		i = j
	}
	b.WriteString(res.tail)
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
