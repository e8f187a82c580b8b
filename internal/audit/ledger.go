package audit

import (
	"sort"
	"strings"
)

// Status of a ledger entry.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusInProgress Status = "In Progress"
)

// ClassifyGrade maps a report grade to a status.
func ClassifyGrade(grade string) Status {
	g := strings.ToUpper(grade)
	if strings.Contains(g, "IP") || strings.Contains(g, "PROGRESS") {
		return StatusInProgress
	}
	return StatusCompleted
}

// LedgerEntry is the latest known record of one course.
type LedgerEntry struct {
	Code   CourseCode `json:"code"`
	Term   Term       `json:"term"`
	Title  string     `json:"title,omitempty"`
	Units  float64    `json:"units"`
	Grade  string     `json:"grade"`
	Status Status     `json:"status"`
}

// Ledger holds one entry per distinct course code.
type Ledger map[CourseCode]LedgerEntry

// ExtractLedger scans the full report for course-history rows. When a code
// repeats, the row with the later term wins; equal terms keep the later row.
func ExtractLedger(m *RowMatcher, text string) Ledger {
	rows, _ := m.Rows(text)
	ledger := make(Ledger, len(rows))
	for _, r := range rows {
		if prev, ok := ledger[r.Code]; ok && r.Term.Less(prev.Term) {
			continue
		}
		ledger[r.Code] = LedgerEntry{
			Code:   r.Code,
			Term:   r.Term,
			Title:  r.Title,
			Units:  r.Units,
			Grade:  r.Grade,
			Status: ClassifyGrade(r.Grade),
		}
	}
	return ledger
}

// Codes returns the set of codes in the ledger.
func (l Ledger) Codes() CodeSet {
	s := make(CodeSet, len(l))
	for c := range l {
		s.Add(c)
	}
	return s
}

// Without returns a copy of l minus the given codes.
func (l Ledger) Without(codes CodeSet) Ledger {
	out := make(Ledger, len(l))
	for c, e := range l {
		if !codes.Has(c) {
			out[c] = e
		}
	}
	return out
}

// Entries returns entries with the given status ordered by term, then code.
func (l Ledger) Entries(status Status) []LedgerEntry {
	var out []LedgerEntry
	for _, e := range l {
		if e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Term.Compare(out[j].Term); c != 0 {
			return c < 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Units sums the units of entries with the given status.
func (l Ledger) Units(status Status) float64 {
	var sum float64
	for _, e := range l {
		if e.Status == status {
			sum += e.Units
		}
	}
	return round(sum, 2)
}

// EarliestTerm is the first term on record, or the zero Term.
func (l Ledger) EarliestTerm() Term {
	var first Term
	for _, e := range l {
		if first.IsZero() || e.Term.Less(first) {
			first = e.Term
		}
	}
	return first
}
