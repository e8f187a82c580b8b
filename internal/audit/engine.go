package audit

import (
	"fmt"
	"math"
	"strings"
)

// CreditSource says where the used/needed figures came from.
type CreditSource string

const (
	CreditsFromReport  CreditSource = "report"
	CreditsFromDegree  CreditSource = "degree"
	CreditsFromDefault CreditSource = "default"
)

// Course is a ledger entry as shown in the result.
type Course struct {
	Code   CourseCode `json:"code"`
	Title  string     `json:"title,omitempty"`
	Term   Term       `json:"term"`
	Units  float64    `json:"units"`
	Grade  string     `json:"grade,omitempty"`
	Status string     `json:"status"`
	Year   string     `json:"year,omitempty"`
}

// Courses groups the course lists of an audit.
type Courses struct {
	Taken      []Course     `json:"taken"`
	InProgress []Course     `json:"in_progress"`
	NotUsed    []Course     `json:"not_used"`
	Remaining  []CourseCode `json:"remaining"`
}

// Credits is the credit summary of an audit.
type Credits struct {
	Completed       float64      `json:"completed"`
	InProgress      float64      `json:"in_progress"`
	NotUsed         float64      `json:"not_used"`
	Used            float64      `json:"used"`
	Remaining       float64      `json:"remaining"`
	TotalRequired   float64      `json:"total_required"`
	ProgressPercent float64      `json:"progress_percent"`
	Source          CreditSource `json:"source"`
}

// Degree identifies the requirement set an audit was checked against.
type Degree struct {
	Key    string       `json:"key"`
	Name   string       `json:"name,omitempty"`
	Status DegreeStatus `json:"status"`
}

// Result is the structured outcome of one audit.
type Result struct {
	Metadata
	Degree       Degree        `json:"degree"`
	Courses      Courses       `json:"courses"`
	Requirements []GroupResult `json:"requirements"`
	Credits      Credits       `json:"credits"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// Engine runs audits. It holds only immutable configuration and is safe for
// concurrent use.
type Engine struct {
	cfg       Config
	rows      *RowMatcher
	exclusion *ExclusionBlock
	totals    *TotalsResolver
	expander  *Expander
	resolver  DegreeResolver
}

// NewEngine validates cfg and compiles its patterns.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audit config: %w", err)
	}
	return &Engine{
		cfg:       cfg,
		rows:      NewRowMatcher(cfg.TitleWindow, cfg.MaxUnits),
		exclusion: NewExclusionBlock(cfg.ExclusionHeading, cfg.ExclusionStopPhrases, cfg.ExclusionStages),
		totals:    NewTotalsResolver(cfg.TotalsAnchor, cfg.TotalsWindow, cfg.MinRequiredCredits, cfg.MaxRequiredCredits),
		expander:  NewExpander(cfg.Equivalences),
		resolver:  DegreeResolver{Rules: cfg.DispatchRules, FallbackKey: cfg.FallbackDegreeKey},
	}, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Expander returns the equivalency expander.
func (e *Engine) Expander() *Expander { return e.expander }

// Run audits text against the degree detected from the report's major.
func (e *Engine) Run(text string, table RequirementTable) *Result {
	return e.run(text, table, "")
}

// RunFor audits text against an explicitly chosen degree key.
func (e *Engine) RunFor(text string, table RequirementTable, degreeKey string) *Result {
	return e.run(text, table, degreeKey)
}

func (e *Engine) run(text string, table RequirementTable, degreeKey string) *Result {
	res := &Result{Metadata: ExtractMetadata(text)}

	ledger := ExtractLedger(e.rows, text)
	excluded := ExtractExclusions(e.rows, e.exclusion, text)
	counted := ledger.Without(excludedCodes(excluded))

	degree := e.selectDegree(res, table, degreeKey)

	first := ledger.EarliestTerm()
	res.Courses.Taken = coursesOf(counted.Entries(StatusCompleted), first)
	res.Courses.InProgress = coursesOf(counted.Entries(StatusInProgress), first)
	res.Courses.NotUsed = notUsedOf(excluded, first)

	if res.Degree.Status != DegreeUnknown {
		res.Requirements = Evaluate(counted.Codes(), degree.Groups(res.Option), e.expander)
	} else {
		res.Requirements = []GroupResult{}
	}
	res.Courses.Remaining = Remaining(res.Requirements)

	res.Credits = e.credits(text, counted, excluded, degree, res)
	return res
}

func (e *Engine) selectDegree(res *Result, table RequirementTable, degreeKey string) DegreeRequirement {
	var (
		degree DegreeRequirement
		status DegreeStatus
	)
	if degreeKey != "" {
		d, ok := table[degreeKey]
		degree, status = d, DegreeExplicit
		if !ok {
			degree, status = DegreeRequirement{Key: degreeKey}, DegreeUnknown
		}
	} else {
		degree, status = e.resolver.Resolve(res.Major, table)
	}

	res.Degree = Degree{Key: degree.Key, Name: degree.MajorName, Status: status}
	if status == DegreeUnknown {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("degree %q is not in the requirement table; remaining courses were not computed", degree.Key))
	}
	return degree
}

func (e *Engine) credits(text string, counted Ledger, excluded []ExcludedCourse, degree DegreeRequirement, res *Result) Credits {
	c := Credits{
		Completed:  counted.Units(StatusCompleted),
		InProgress: counted.Units(StatusInProgress),
	}
	for _, x := range excluded {
		c.NotUsed += x.Units
	}
	c.NotUsed = round(c.NotUsed, 2)

	if t, ok := e.totals.Resolve(text); ok {
		c.TotalRequired, c.Used, c.Remaining = t.Required, t.Used, t.Needed
		c.Source = CreditsFromReport
	} else {
		res.Warnings = append(res.Warnings, "totals line not found; credits estimated from course history")
		c.Used = round(c.Completed+c.InProgress, 2)
		c.TotalRequired, c.Source = e.defaultTotal(degree, res)
		c.Remaining = math.Max(round(c.TotalRequired-c.Used, 2), 0)
	}
	c.ProgressPercent = Progress(c.Used, c.TotalRequired)
	return c
}

func (e *Engine) defaultTotal(degree DegreeRequirement, res *Result) (float64, CreditSource) {
	if res.Degree.Status != DegreeUnknown && degree.TotalCredits > 0 {
		return float64(degree.TotalCredits), CreditsFromDegree
	}
	major := strings.ToLower(res.Major)
	for _, r := range e.cfg.DefaultTotalRules {
		if r.Keyword != "" && strings.Contains(major, strings.ToLower(r.Keyword)) {
			return r.Total, CreditsFromDefault
		}
	}
	return e.cfg.DefaultTotal, CreditsFromDefault
}

// Progress is used/required as a percentage rounded to one decimal, clamped
// to [0, 100]. It is 0 when required is 0.
func Progress(used, required float64) float64 {
	if required <= 0 {
		return 0
	}
	p := round(used/required*100, 1)
	return math.Min(math.Max(p, 0), 100)
}

func coursesOf(entries []LedgerEntry, first Term) []Course {
	out := make([]Course, 0, len(entries))
	for _, e := range entries {
		out = append(out, Course{
			Code:   e.Code,
			Title:  e.Title,
			Term:   e.Term,
			Units:  e.Units,
			Grade:  e.Grade,
			Status: string(e.Status),
			Year:   yearLabel(e.Term.AcademicYear(first)),
		})
	}
	return out
}

func notUsedOf(excluded []ExcludedCourse, first Term) []Course {
	out := make([]Course, 0, len(excluded))
	for _, x := range excluded {
		out = append(out, Course{
			Code:   x.Code,
			Title:  x.Title,
			Term:   x.Term,
			Units:  x.Units,
			Grade:  x.Grade,
			Status: "Not Used",
			Year:   yearLabel(x.Term.AcademicYear(first)),
		})
	}
	return out
}

func yearLabel(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("Year %d", n)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
