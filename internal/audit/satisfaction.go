package audit

// GroupResult is the outcome of checking one requirement group.
type GroupResult struct {
	Requirement string       `json:"requirement"`
	Satisfied   bool         `json:"satisfied"`
	SatisfiedBy []CourseCode `json:"satisfied_by,omitempty"`
	Options     []CourseCode `json:"options,omitempty"`
}

// Evaluate checks each group against the codes the student holds. Both sides
// are expanded through exp; a group is satisfied when any alternative's
// expansion meets the student's expansion.
func Evaluate(taken CodeSet, groups []RequirementGroup, exp *Expander) []GroupResult {
	have := exp.ExpandSet(taken)
	out := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		res := GroupResult{Requirement: g.Raw}
		for _, alt := range g.Alternatives {
			expanded := exp.Expand(alt...)
			if !expanded.Intersects(have) {
				continue
			}
			res.Satisfied = true
			res.SatisfiedBy = satisfiers(taken, expanded, exp)
			break
		}
		if !res.Satisfied {
			res.Options = NewCodeSet(g.Codes()...).Sorted()
		}
		out = append(out, res)
	}
	return out
}

// satisfiers returns the student's own codes that account for a match.
func satisfiers(taken, expanded CodeSet, exp *Expander) []CourseCode {
	by := NewCodeSet()
	for c := range taken {
		if exp.Expand(c).Intersects(expanded) {
			by.Add(c)
		}
	}
	return by.Sorted()
}

// Remaining lists every code of every unsatisfied group, sorted and
// deduplicated, so the student sees all the alternatives still open.
func Remaining(results []GroupResult) []CourseCode {
	s := NewCodeSet()
	for _, r := range results {
		if r.Satisfied {
			continue
		}
		for _, c := range r.Options {
			s.Add(c)
		}
	}
	return s.Sorted()
}
