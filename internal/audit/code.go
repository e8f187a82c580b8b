package audit

import (
	"regexp"
	"sort"
	"strings"
)

// CourseCode is a canonical "SUBJECT NUMBER[SUFFIX]" code such as "CMPSC 121".
// The zero value is the invalid marker.
type CourseCode string

// InvalidCode is what Canon returns for tokens that are not course codes.
const InvalidCode CourseCode = ""

// Suffixes recognised as sections of the same course.
const (
	SuffixWriting = "W"
	SuffixHonors  = "H"
)

var (
	codeSeparatorRe = regexp.MustCompile(`[-/]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	codeRe          = regexp.MustCompile(`^([A-Z]{2,6}) ?(\d{1,3})([A-Z]?)$`)
)

// Canon canonicalizes a raw course-code token. Hyphens and slashes are
// treated as separators, case and spacing are normalized.
func Canon(raw string) CourseCode {
	s := codeSeparatorRe.ReplaceAllString(raw, " ")
	s = strings.ToUpper(strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " ")))
	m := codeRe.FindStringSubmatch(s)
	if m == nil {
		return InvalidCode
	}
	return CourseCode(m[1] + " " + m[2] + m[3])
}

// Valid reports whether c is a canonical course code.
func (c CourseCode) Valid() bool {
	return c != InvalidCode && codeRe.MatchString(string(c))
}

func (c CourseCode) parts() (subject, number, suffix string) {
	m := codeRe.FindStringSubmatch(string(c))
	if m == nil {
		return "", "", ""
	}
	return m[1], m[2], m[3]
}

// Subject returns the subject prefix, e.g. "CMPSC".
func (c CourseCode) Subject() string {
	s, _, _ := c.parts()
	return s
}

// Number returns the numeric part without suffix, e.g. "121".
func (c CourseCode) Number() string {
	_, n, _ := c.parts()
	return n
}

// Suffix returns the trailing section letter, or "".
func (c CourseCode) Suffix() string {
	_, _, x := c.parts()
	return x
}

// Base strips the suffix letter.
func (c CourseCode) Base() CourseCode {
	s, n, _ := c.parts()
	if s == "" {
		return InvalidCode
	}
	return CourseCode(s + " " + n)
}

func (c CourseCode) String() string { return string(c) }

// VariantForms returns the codes that name the same course under the
// writing-intensive and honors suffixes. Suffixed codes only map to themselves.
func VariantForms(c CourseCode) []CourseCode {
	if !c.Valid() {
		return nil
	}
	if c.Suffix() != "" {
		return []CourseCode{c}
	}
	return []CourseCode{c, c + SuffixWriting, c + SuffixHonors}
}

// CodeSet is an unordered set of course codes.
type CodeSet map[CourseCode]struct{}

// NewCodeSet builds a set from the valid codes given.
func NewCodeSet(codes ...CourseCode) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add inserts c unless it is invalid.
func (s CodeSet) Add(c CourseCode) {
	if c.Valid() {
		s[c] = struct{}{}
	}
}

// Merge adds every member of o.
func (s CodeSet) Merge(o CodeSet) {
	for c := range o {
		s[c] = struct{}{}
	}
}

func (s CodeSet) Has(c CourseCode) bool {
	_, ok := s[c]
	return ok
}

func (s CodeSet) Len() int { return len(s) }

// Intersects reports whether s and o share at least one code.
func (s CodeSet) Intersects(o CodeSet) bool {
	a, b := s, o
	if len(b) < len(a) {
		a, b = b, a
	}
	for c := range a {
		if b.Has(c) {
			return true
		}
	}
	return false
}

// Sorted returns the members in lexical order.
func (s CodeSet) Sorted() []CourseCode {
	out := make([]CourseCode, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
