package audit

import (
	"regexp"
	"strings"
)

// Option is the degree option detected on the report.
type Option string

const (
	OptionNone        Option = ""
	OptionGeneral     Option = "General"
	OptionDataScience Option = "Data Science"
)

// RequirementGroup is one requirement slot, satisfied by any alternative.
type RequirementGroup struct {
	Raw          string         `json:"raw"`
	Alternatives [][]CourseCode `json:"alternatives"`
}

var (
	orSplitRe    = regexp.MustCompile(`(?i)\s+or\s+|\s*\|\s*`)
	codeSplitRe  = regexp.MustCompile(`[,/]`)
	listSplitRe  = regexp.MustCompile(`[,;]`)
	bareNumberRe = regexp.MustCompile(`^\d{1,3}[A-Za-z]?$`)
)

// ParseGroup parses "CMPSC 465 or CMPSC 475" style requirement text. Within
// an alternative, codes are separated by commas or slashes and a bare number
// reuses the preceding subject ("CMPSC 465/475").
func ParseGroup(raw string) RequirementGroup {
	g := RequirementGroup{Raw: strings.TrimSpace(raw)}
	for _, alt := range orSplitRe.Split(g.Raw, -1) {
		var (
			codes   []CourseCode
			subject string
		)
		for _, tok := range codeSplitRe.Split(alt, -1) {
			tok = strings.TrimSpace(tok)
			if subject != "" && bareNumberRe.MatchString(tok) {
				tok = subject + " " + tok
			}
			c := Canon(tok)
			if !c.Valid() {
				continue
			}
			codes = append(codes, c)
			subject = c.Subject()
		}
		if len(codes) > 0 {
			g.Alternatives = append(g.Alternatives, codes)
		}
	}
	return g
}

// ParseGroupList parses a table cell of comma- or semicolon-separated groups.
// Groups that contain no valid code are dropped.
func ParseGroupList(raw string) []RequirementGroup {
	var out []RequirementGroup
	for _, part := range listSplitRe.Split(raw, -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if g := ParseGroup(part); len(g.Alternatives) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Codes lists every code across all alternatives, in order.
func (g RequirementGroup) Codes() []CourseCode {
	var out []CourseCode
	for _, alt := range g.Alternatives {
		out = append(out, alt...)
	}
	return out
}

// DegreeRequirement is one row of the requirement table.
type DegreeRequirement struct {
	Key               string             `json:"key"`
	MajorName         string             `json:"major_name"`
	TotalCredits      int                `json:"total_credits"`
	MajorCredits      int                `json:"major_credits"`
	GenEdCredits      int                `json:"gen_ed_credits"`
	Prescribed        []RequirementGroup `json:"prescribed"`
	Additional        []RequirementGroup `json:"additional"`
	OptionsLabel      string             `json:"options_label,omitempty"`
	GeneralOption     []RequirementGroup `json:"general_option,omitempty"`
	DataScienceOption []RequirementGroup `json:"data_science_option,omitempty"`
}

// Groups returns the requirement groups that apply under option.
func (d DegreeRequirement) Groups(option Option) []RequirementGroup {
	out := make([]RequirementGroup, 0, len(d.Prescribed)+len(d.Additional))
	out = append(out, d.Prescribed...)
	out = append(out, d.Additional...)
	switch option {
	case OptionGeneral:
		out = append(out, d.GeneralOption...)
	case OptionDataScience:
		out = append(out, d.DataScienceOption...)
	}
	return out
}

// RequirementTable maps degree keys to requirements. It is never mutated
// after loading.
type RequirementTable map[string]DegreeRequirement

// DegreeStatus records how the degree for an audit was chosen.
type DegreeStatus string

const (
	DegreeMatched  DegreeStatus = "matched"
	DegreeFallback DegreeStatus = "fallback"
	DegreeExplicit DegreeStatus = "explicit"
	DegreeUnknown  DegreeStatus = "unknown"
)

// DegreeResolver selects a degree key from the detected major name.
type DegreeResolver struct {
	Rules       []DispatchRule
	FallbackKey string
}

// Resolve returns the requirement for major. A keyword rule wins over the
// fallback key; if the chosen key is not in the table the status is
// DegreeUnknown and the returned requirement is empty.
func (r DegreeResolver) Resolve(major string, table RequirementTable) (DegreeRequirement, DegreeStatus) {
	key, status := r.FallbackKey, DegreeFallback
	lower := strings.ToLower(major)
	for _, rule := range r.Rules {
		if rule.Keyword != "" && strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			key, status = rule.DegreeKey, DegreeMatched
			break
		}
	}
	if d, ok := table[key]; ok && key != "" {
		return d, status
	}
	return DegreeRequirement{Key: key}, DegreeUnknown
}
