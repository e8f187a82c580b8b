package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Session is a teaching period within a calendar year.
type Session int

const (
	SessionUnknown Session = iota
	Spring
	Summer
	Fall
)

var sessionCodes = map[string]Session{
	"SP": Spring,
	"SU": Summer,
	"FA": Fall,
}

func (s Session) Code() string {
	switch s {
	case Spring:
		return "SP"
	case Summer:
		return "SU"
	case Fall:
		return "FA"
	default:
		return "??"
	}
}

// TermPattern matches a term token such as "FA 21", "SP 2022" or "SU2023".
const TermPattern = `(FA|SP|SU)\s?(\d{4}|\d{2})`

var termRe = regexp.MustCompile(`^` + TermPattern + `$`)

// Term orders by (year, session) with Spring < Summer < Fall.
type Term struct {
	Year    int
	Session Session
}

// ParseTerm parses a term token. Two-digit years are placed in the 2000s.
func ParseTerm(raw string) (Term, error) {
	m := termRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return Term{}, fmt.Errorf("invalid term %q", raw)
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return Term{}, fmt.Errorf("invalid term year %q: %w", m[2], err)
	}
	if len(m[2]) == 2 {
		year += 2000
	}
	return Term{Year: year, Session: sessionCodes[m[1]]}, nil
}

func (t Term) IsZero() bool { return t.Year == 0 && t.Session == SessionUnknown }

// Compare returns -1, 0 or +1.
func (t Term) Compare(o Term) int {
	switch {
	case t.Year != o.Year:
		if t.Year < o.Year {
			return -1
		}
		return 1
	case t.Session != o.Session:
		if t.Session < o.Session {
			return -1
		}
		return 1
	}
	return 0
}

func (t Term) Less(o Term) bool { return t.Compare(o) < 0 }

func (t Term) String() string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", t.Session.Code(), t.Year)
}

// academicStart is the calendar year the term's academic year began in.
func (t Term) academicStart() int {
	if t.Session == Fall {
		return t.Year
	}
	return t.Year - 1
}

// AcademicYear is the 1-based year of study of t counted from first.
func (t Term) AcademicYear(first Term) int {
	if t.IsZero() || first.IsZero() {
		return 0
	}
	n := t.academicStart() - first.academicStart() + 1
	if n < 1 {
		return 1
	}
	return n
}

func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Term) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Term{}
		return nil
	}
	parsed, err := ParseTerm(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
