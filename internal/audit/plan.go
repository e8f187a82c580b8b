package audit

import (
	"fmt"
	"strings"
)

// PlanCourse is one course placed in a study plan.
type PlanCourse struct {
	Code   CourseCode `json:"code"`
	Title  string     `json:"title,omitempty"`
	Term   string     `json:"term,omitempty"`
	Units  float64    `json:"units"`
	Status string     `json:"status"`
}

// PlanYear is one year of a study plan.
type PlanYear struct {
	Label   string       `json:"label"`
	Credits float64      `json:"credits"`
	Courses []PlanCourse `json:"courses"`
}

// Plan lays the audit out year by year.
type Plan struct {
	Years []PlanYear `json:"years"`
}

const statusRemaining = "Remaining"

// BuildPlan groups taken and in-progress courses by year of study, then fills
// under-loaded years with remaining courses. A year is left alone when it
// already carries creditsPerYear, when a later year has courses, or when it
// has in-progress work in both fall and spring. Leftovers go to an extra year.
func BuildPlan(res *Result, years int, creditsPerYear, remainingUnits float64) Plan {
	if years <= 0 {
		years = 4
	}
	buckets := make([][]PlanCourse, years)
	placed := NewCodeSet()
	activeSessions := make([]map[Session]bool, years)

	add := func(c Course) {
		idx := 0
		var n int
		if _, err := fmt.Sscanf(c.Year, "Year %d", &n); err == nil && n > 0 {
			idx = n - 1
		}
		for idx >= len(buckets) {
			buckets = append(buckets, nil)
			activeSessions = append(activeSessions, nil)
		}
		buckets[idx] = append(buckets[idx], PlanCourse{
			Code:   c.Code,
			Title:  c.Title,
			Term:   c.Term.String(),
			Units:  c.Units,
			Status: c.Status,
		})
		placed.Add(c.Code)
		if c.Status == string(StatusInProgress) {
			if activeSessions[idx] == nil {
				activeSessions[idx] = make(map[Session]bool)
			}
			activeSessions[idx][c.Term.Session] = true
		}
	}
	for _, c := range res.Courses.Taken {
		add(c)
	}
	for _, c := range res.Courses.InProgress {
		add(c)
	}

	var pool []CourseCode
	for _, c := range res.Courses.Remaining {
		if !placed.Has(c) {
			pool = append(pool, c)
		}
	}

	for i := 0; i < years && len(pool) > 0; i++ {
		current := creditsOf(buckets[i])
		if current >= creditsPerYear {
			continue
		}
		if i+1 < len(buckets) && len(buckets[i+1]) > 0 {
			continue
		}
		if activeSessions[i][Fall] && activeSessions[i][Spring] {
			continue
		}
		var acc float64
		for len(pool) > 0 && acc < creditsPerYear-current {
			buckets[i] = append(buckets[i], PlanCourse{Code: pool[0], Units: remainingUnits, Status: statusRemaining})
			acc += remainingUnits
			pool = pool[1:]
		}
	}

	for _, c := range pool {
		last := len(buckets)
		if last == years {
			buckets = append(buckets, nil)
			last++
		}
		buckets[last-1] = append(buckets[last-1], PlanCourse{Code: c, Units: remainingUnits, Status: statusRemaining})
	}

	plan := Plan{Years: make([]PlanYear, 0, len(buckets))}
	for i, b := range buckets {
		if b == nil {
			b = []PlanCourse{}
		}
		plan.Years = append(plan.Years, PlanYear{
			Label:   yearLabel(i + 1),
			Credits: creditsOf(b),
			Courses: b,
		})
	}
	return plan
}

func creditsOf(courses []PlanCourse) float64 {
	var sum float64
	for _, c := range courses {
		sum += c.Units
	}
	return round(sum, 2)
}

// Summary renders a short plain-text digest of the result.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Major/Program: %s\n", r.Major)
	fmt.Fprintf(&b, "Semester: %s\n", r.Semester)
	fmt.Fprintf(&b, "Cumulative GPA: %s\n", r.GPA)
	if r.Option != OptionNone {
		fmt.Fprintf(&b, "Option: %s\n", r.Option)
	}
	fmt.Fprintf(&b, "\nTaken (%d): %s\n", len(r.Courses.Taken), preview(codesOfCourses(r.Courses.Taken)))
	fmt.Fprintf(&b, "In Progress (%d): %s\n", len(r.Courses.InProgress), preview(codesOfCourses(r.Courses.InProgress)))
	fmt.Fprintf(&b, "Remaining (%d): %s\n", len(r.Courses.Remaining), preview(r.Courses.Remaining))
	fmt.Fprintf(&b, "\nCredits: %.1f used of %.1f required (%.1f%%), %.1f needed",
		r.Credits.Used, r.Credits.TotalRequired, r.Credits.ProgressPercent, r.Credits.Remaining)
	return b.String()
}

func codesOfCourses(cs []Course) []CourseCode {
	out := make([]CourseCode, len(cs))
	for i, c := range cs {
		out[i] = c.Code
	}
	return out
}

func preview(codes []CourseCode) string {
	const limit = 10
	parts := make([]string, 0, limit)
	for i, c := range codes {
		if i == limit {
			return strings.Join(parts, ", ") + ", ..."
		}
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}
