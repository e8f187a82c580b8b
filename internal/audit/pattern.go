package audit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Row is one course-history line matched in the report.
type Row struct {
	Term  Term
	Code  CourseCode
	Title string
	Units float64
	Grade string
}

var termTokenRe = regexp.MustCompile(`\b` + TermPattern + `\b`)

// RowMatcher finds "<term> <subject> <number> <title> <units> <grade>" rows.
// The title gap is lazy and bounded so a match cannot run across rows.
type RowMatcher struct {
	re       *regexp.Regexp
	maxUnits float64
}

// NewRowMatcher builds a matcher whose title gap spans at most titleWindow bytes.
func NewRowMatcher(titleWindow int, maxUnits float64) *RowMatcher {
	pattern := fmt.Sprintf(
		`(?s)\b%s\s+([A-Z]{2,6})\s+(\d{1,3}[A-Z]?)\b(.{0,%d}?)\s+(\d{1,2}(?:\.\d{1,3})?)\s+(IP|IN PROGRESS|In Progress|[A-Z]{1,3}[+-]?)(?:\s|$)`,
		TermPattern, titleWindow,
	)
	return &RowMatcher{
		re:       regexp.MustCompile(pattern),
		maxUnits: maxUnits,
	}
}

// Rows scans text and returns every well-formed row in document order along
// with the number of candidates rejected by a secondary constraint.
func (m *RowMatcher) Rows(text string) ([]Row, int) {
	var (
		rows    []Row
		skipped int
		pos     int
	)
	for pos < len(text) {
		loc := m.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		base := pos
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return text[base+loc[2*i] : base+loc[2*i+1]]
		}

		title := group(5)
		if termTokenRe.MatchString(title) {
			// The gap swallowed the start of another row; resume inside this one.
			skipped++
			pos += loc[0] + 2
			continue
		}
		grade := group(7)
		if _, isSession := sessionCodes[grade]; isSession {
			// A missing grade let the next row's term stand in for it.
			skipped++
			pos += loc[14]
			continue
		}
		row, ok := m.build(group(1)+" "+group(2), group(3)+" "+group(4), title, group(6), grade)
		pos += loc[1]
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

func (m *RowMatcher) build(rawTerm, rawCode, title, rawUnits, grade string) (Row, bool) {
	term, err := ParseTerm(rawTerm)
	if err != nil {
		return Row{}, false
	}
	code := Canon(rawCode)
	if !code.Valid() {
		return Row{}, false
	}
	units, err := strconv.ParseFloat(rawUnits, 64)
	if err != nil || units <= 0 || units > m.maxUnits {
		return Row{}, false
	}
	return Row{
		Term:  term,
		Code:  code,
		Title: strings.Join(strings.Fields(title), " "),
		Units: units,
		Grade: strings.ToUpper(strings.Join(strings.Fields(grade), " ")),
	}, true
}

// phraseRe compiles a case-insensitive matcher for a heading phrase that
// tolerates any run of whitespace (including line breaks) between words.
func phraseRe(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + phrasePattern(phrase))
}

// lineStartRe is phraseRe held to the start of a line and to whole words, so
// a phrase inside a course title does not match.
func lineStartRe(phrase string) *regexp.Regexp {
	p := `(?im)^[ \t]*` + phrasePattern(phrase)
	if r, _ := utf8.DecodeLastRuneInString(strings.TrimSpace(phrase)); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
		p += `\b`
	}
	return regexp.MustCompile(p)
}

func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}
