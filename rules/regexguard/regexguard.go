/*
Package regexguard implements the Safe-Regex Guard (§4.10): static
ReDoS-risk rejection plus bounded, wall-clock-observed execution for the
rules DSL's string.matches(regex) method.

No repo in the retrieval pack implements a ReDoS guard; this is built
directly from §4.10's rule list in the teacher's validate-then-act idiom
(generic/policy.go's Validate() methods: walk the structure, collect
violations, decide before any side effect runs). Go's regexp package is
RE2-based and cannot itself backtrack catastrophically, but the guard still
enforces the spec's syntactic limits and wall-clock warning independent of
that fact, since a future substitution of the execution engine must not
silently drop the safety contract.
*/
package regexguard

import (
	"log"
	"regexp"
	"strings"
	"time"
)

// Limits (§4.10).
const (
	MaxPatternLength = 1000
	MaxQuantifiers   = 100
	MaxGroups        = 20
	MaxClassSize     = 100
	MaxInputLength   = 10000

	// DefaultSlowThreshold is the default wall-clock warning threshold
	// (§4.10: "log a warning if they exceed a configurable threshold
	// (default 100 ms)").
	DefaultSlowThreshold = 100 * time.Millisecond
)

// Guard validates and executes regex patterns under the limits of §4.10.
// The zero Guard uses DefaultSlowThreshold; construct with New to override.
type Guard struct {
	SlowThreshold time.Duration
	Logger        *log.Logger
}

// New creates a Guard with the given slow-execution warning threshold.
func New(slowThreshold time.Duration) *Guard {
	return &Guard{SlowThreshold: slowThreshold}
}

func (g *Guard) threshold() time.Duration {
	if g.SlowThreshold <= 0 {
		return DefaultSlowThreshold
	}
	return g.SlowThreshold
}

func (g *Guard) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Rejection describes why a pattern was refused.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "regexguard: rejected for safety: " + r.Reason }

// Validate runs every static check of §4.10 against pattern, returning a
// *Rejection if any fires, else nil.
func Validate(pattern string) error {
	if len(pattern) > MaxPatternLength {
		return &Rejection{Reason: "pattern exceeds maximum length"}
	}
	if n := countQuantifiers(pattern); n > MaxQuantifiers {
		return &Rejection{Reason: "pattern has too many quantifiers"}
	}
	if n := countGroups(pattern); n > MaxGroups {
		return &Rejection{Reason: "pattern has too many groups"}
	}
	if n := maxClassSize(pattern); n > MaxClassSize {
		return &Rejection{Reason: "character class too large"}
	}
	if hasNestedQuantifiers(pattern) {
		return &Rejection{Reason: "nested quantifiers (catastrophic backtracking risk)"}
	}
	if hasOverlappingAlternationUnderQuantifier(pattern) {
		return &Rejection{Reason: "quantified alternation with overlapping branches"}
	}
	if hasAdjacentGreedyDots(pattern) {
		return &Rejection{Reason: "adjacent unbounded wildcard quantifiers"}
	}
	if hasGreedyDotInsideQuantifiedGroup(pattern) {
		return &Rejection{Reason: "unbounded wildcard inside a quantified group"}
	}
	if hasQuantifiedLookaround(pattern) {
		return &Rejection{Reason: "lookaround containing a quantifier"}
	}
	return nil
}

// Match validates pattern and, if it passes, runs it against input under
// the input-length cap, reporting a *Rejection for an oversized input and
// logging a warning if execution is slower than the threshold.
func (g *Guard) Match(pattern, input string) (bool, error) {
	if err := Validate(pattern); err != nil {
		return false, err
	}
	if len(input) > MaxInputLength {
		return false, &Rejection{Reason: "input exceeds maximum length"}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}

	start := time.Now()
	matched := re.MatchString(input)
	elapsed := time.Since(start)
	if elapsed > g.threshold() {
		g.logf("[regexguard] slow match: pattern=%q input_len=%d elapsed=%s", pattern, len(input), elapsed)
	}
	return matched, nil
}

// EscapeRegex escapes the standard metacharacters (§4.10: "escapeRegex
// escapes the standard metacharacters . * + ? ^ $ { } ( ) | [ ] \").
func EscapeRegex(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '+', '?', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ---- static structural checks ----

// countQuantifiers counts unescaped *, +, ?, and {m,n} repetition operators.
func countQuantifiers(p string) int {
	n := 0
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		switch runes[i] {
		case '*', '+', '?':
			n++
		case '{':
			if j := closingBrace(runes, i); j > i {
				n++
				i = j
			}
		}
	}
	return n
}

func closingBrace(runes []rune, open int) int {
	for j := open + 1; j < len(runes); j++ {
		if runes[j] == '}' {
			return j
		}
		if runes[j] < '0' || runes[j] > '9' {
			if runes[j] != ',' {
				return -1
			}
		}
	}
	return -1
}

// countGroups counts unescaped opening parens that form a capturing or
// non-capturing group.
func countGroups(p string) int {
	n := 0
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == '(' {
			n++
		}
	}
	return n
}

// maxClassSize returns the size of the largest unescaped [...] character
// class (counting ranges as their literal span for a conservative bound).
func maxClassSize(p string) int {
	runes := []rune(p)
	max := 0
	i := 0
	for i < len(runes) {
		if runes[i] == '\\' {
			i += 2
			continue
		}
		if runes[i] == '[' {
			j := i + 1
			size := 0
			for j < len(runes) && runes[j] != ']' {
				if runes[j] == '\\' {
					j += 2
					size++
					continue
				}
				if j+2 < len(runes) && runes[j+1] == '-' && runes[j+2] != ']' {
					size += int(runes[j+2]-runes[j]) + 1
					j += 3
					continue
				}
				size++
				j++
			}
			if size > max {
				max = size
			}
			i = j + 1
			continue
		}
		i++
	}
	return max
}

// hasNestedQuantifiers flags a quantified group immediately followed by
// another quantifier, e.g. (a+)+ or (a*)*, the classic catastrophic
// backtracking shape.
func hasNestedQuantifiers(p string) bool {
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '(' {
			continue
		}
		depth := 1
		j := i + 1
		innerHasQuant := false
		for j < len(runes) && depth > 0 {
			switch runes[j] {
			case '(':
				depth++
			case ')':
				depth--
			case '*', '+':
				if depth == 1 {
					innerHasQuant = true
				}
			}
			j++
		}
		if depth != 0 || !innerHasQuant {
			continue
		}
		if j < len(runes) && (runes[j] == '*' || runes[j] == '+' || (runes[j] == '{' && closingBrace(runes, j) > j)) {
			return true
		}
	}
	return false
}

// hasOverlappingAlternationUnderQuantifier flags a quantified group whose
// top-level alternation branches share a common, also-quantified prefix
// character class, e.g. (a+|a+)+ or (a|ab)+.
func hasOverlappingAlternationUnderQuantifier(p string) bool {
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '(' {
			continue
		}
		depth := 1
		j := i + 1
		hasAlt := false
		branches := []string{}
		var cur strings.Builder
		for j < len(runes) && depth > 0 {
			switch runes[j] {
			case '(':
				depth++
				cur.WriteRune(runes[j])
			case ')':
				depth--
				if depth > 0 {
					cur.WriteRune(runes[j])
				}
			case '|':
				if depth == 1 {
					hasAlt = true
					branches = append(branches, cur.String())
					cur.Reset()
				} else {
					cur.WriteRune(runes[j])
				}
			default:
				cur.WriteRune(runes[j])
			}
			j++
		}
		branches = append(branches, cur.String())
		if !hasAlt || depth != 0 {
			continue
		}
		quantified := j < len(runes) && (runes[j] == '*' || runes[j] == '+' ||
			(runes[j] == '{' && closingBrace(runes, j) > j))
		if !quantified {
			continue
		}
		if branchesOverlap(branches) {
			return true
		}
	}
	return false
}

// branchesOverlap is a conservative check: two branches overlap if one is a
// literal-character prefix of the other, or they're identical once
// quantifier suffixes are stripped.
func branchesOverlap(branches []string) bool {
	for i := 0; i < len(branches); i++ {
		for k := i + 1; k < len(branches); k++ {
			a, b := strings.TrimRight(branches[i], "*+?"), strings.TrimRight(branches[k], "*+?")
			if a == "" || b == "" {
				continue
			}
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				return true
			}
		}
	}
	return false
}

// hasAdjacentGreedyDots flags two adjacent unbounded-wildcard quantifiers
// at the same nesting level, e.g. ".*.* " or ".+.+".
func hasAdjacentGreedyDots(p string) bool {
	return strings.Contains(p, ".*.*") || strings.Contains(p, ".+.+") ||
		strings.Contains(p, ".*.+") || strings.Contains(p, ".+.*")
}

// hasGreedyDotInsideQuantifiedGroup flags an unbounded wildcard nested
// inside a group that is itself quantified, e.g. (a.*)+ or (x.+)*.
func hasGreedyDotInsideQuantifiedGroup(p string) bool {
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '(' {
			continue
		}
		depth := 1
		j := i + 1
		innerHasGreedyDot := false
		for j < len(runes) && depth > 0 {
			switch runes[j] {
			case '(':
				depth++
			case ')':
				depth--
			case '*', '+':
				if depth == 1 && j > 0 && runes[j-1] == '.' {
					innerHasGreedyDot = true
				}
			}
			j++
		}
		if depth != 0 || !innerHasGreedyDot {
			continue
		}
		if j < len(runes) && (runes[j] == '*' || runes[j] == '+' || (runes[j] == '{' && closingBrace(runes, j) > j)) {
			return true
		}
	}
	return false
}

// hasQuantifiedLookaround flags a (?=...)/(?!...) construct containing a
// quantifier. Go's RE2 doesn't support lookaround at all, but the guard
// still rejects it at the syntax level per §4.10 rather than relying on
// the underlying engine's compile error.
func hasQuantifiedLookaround(p string) bool {
	idx := 0
	for {
		rel := strings.Index(p[idx:], "(?")
		if rel < 0 {
			return false
		}
		start := idx + rel
		if start+2 >= len(p) || (p[start+2] != '=' && p[start+2] != '!') {
			idx = start + 2
			continue
		}
		runes := []rune(p[start:])
		depth := 1
		j := 2
		for j < len(runes) && depth > 0 {
			switch runes[j] {
			case '(':
				depth++
			case ')':
				depth--
			case '*', '+':
				if depth >= 1 {
					return true
				}
			}
			j++
		}
		idx = start + 2
	}
}
