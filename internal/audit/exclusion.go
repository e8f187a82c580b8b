package audit

import (
	"regexp"
	"sort"
	"strings"
)

// ExcludedCourse is a course the report lists as not used toward the degree.
type ExcludedCourse struct {
	Code  CourseCode `json:"code"`
	Term  Term       `json:"term"`
	Title string     `json:"title,omitempty"`
	Units float64    `json:"units"`
	Grade string     `json:"grade"`
}

var lineStartTermRe = regexp.MustCompile(`^` + TermPattern + `\b`)

// ReflowWrappedLines joins lines that do not begin with a term token onto the
// line before them, undoing PDF wrapping of long course titles.
func ReflowWrappedLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(out) == 0 || lineStartTermRe.MatchString(line) {
			out = append(out, line)
			continue
		}
		out[len(out)-1] += " " + line
	}
	return strings.Join(out, "\n")
}

// ExclusionBlock bounds the "not used" section of a report.
type ExclusionBlock struct {
	heading *regexp.Regexp
	stops   []*regexp.Regexp
	stages  []TextStage
}

func NewExclusionBlock(heading string, stops []string, stages []TextStage) *ExclusionBlock {
	b := &ExclusionBlock{heading: phraseRe(heading), stages: stages}
	for _, s := range stops {
		if strings.TrimSpace(s) == "" {
			continue
		}
		b.stops = append(b.stops, lineStartRe(s))
	}
	return b
}

// Slice returns the text between the heading and the next line that starts
// with a stop phrase, and false when the heading is absent.
func (b *ExclusionBlock) Slice(text string) (string, bool) {
	loc := b.heading.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	end := len(rest)
	for _, stop := range b.stops {
		if s := stop.FindStringIndex(rest); s != nil && s[0] < end {
			end = s[0]
		}
	}
	block := rest[:end]
	for _, stage := range b.stages {
		block = stage(block)
	}
	return block, true
}

type exclusionKey struct {
	code  CourseCode
	term  Term
	units float64
}

// ExtractExclusions returns the rows of the "not used" section ordered by
// term, deduplicated by (code, term, units). A missing section yields nil.
func ExtractExclusions(m *RowMatcher, b *ExclusionBlock, text string) []ExcludedCourse {
	block, ok := b.Slice(text)
	if !ok {
		return nil
	}
	rows, _ := m.Rows(block)

	seen := make(map[exclusionKey]struct{}, len(rows))
	var out []ExcludedCourse
	for _, r := range rows {
		k := exclusionKey{code: r.Code, term: r.Term, units: r.Units}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ExcludedCourse{
			Code:  r.Code,
			Term:  r.Term,
			Title: r.Title,
			Units: r.Units,
			Grade: r.Grade,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Term.Compare(out[j].Term); c != 0 {
			return c < 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// excludedCodes is the set of codes listed in the exclusion block.
func excludedCodes(ex []ExcludedCourse) CodeSet {
	s := NewCodeSet()
	for _, e := range ex {
		s.Add(e.Code)
	}
	return s
}
