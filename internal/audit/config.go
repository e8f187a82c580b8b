package audit

import (
	"errors"
	"fmt"
)

// TextStage rewrites a block of report text before rows are matched.
type TextStage func(string) string

// DispatchRule maps a keyword found in the detected major to a degree key.
type DispatchRule struct {
	Keyword   string
	DegreeKey string
}

// DefaultTotalRule picks the fallback credit total for a major family.
type DefaultTotalRule struct {
	Keyword string
	Total   float64
}

// Config is the immutable vocabulary the engine is built with.
type Config struct {
	Equivalences Equivalences

	// Row matching.
	TitleWindow int
	MaxUnits    float64

	// Exclusion block.
	ExclusionHeading     string
	ExclusionStopPhrases []string
	ExclusionStages      []TextStage

	// Totals line.
	TotalsAnchor       string
	TotalsWindow       int
	MinRequiredCredits float64
	MaxRequiredCredits float64

	// Degree selection and fallback totals.
	DispatchRules     []DispatchRule
	FallbackDegreeKey string
	DefaultTotalRules []DefaultTotalRule
	DefaultTotal      float64

	// Planning.
	RemainingCourseUnits float64
	PlanCreditsPerYear   float64
	PlanYears            int
}

// DefaultConfig returns the vocabulary for the LionPath "What-If" report.
func DefaultConfig() Config {
	return Config{
		Equivalences: Equivalences{
			"CMPSC 121": {"CMPSC 131"},
			"CMPSC 131": {"CMPSC 121"},
			"CMPSC 122": {"CMPSC 132"},
			"CMPSC 132": {"CMPSC 122"},
		},
		TitleWindow:      120,
		MaxUnits:         6,
		ExclusionHeading: "courses not used to satisfy degree requirements",
		ExclusionStopPhrases: []string{
			"in-progress courses",
			"courses in progress",
			"planned courses",
			"course history",
			"total units required for the degree",
			"legend",
			"end of report",
		},
		ExclusionStages:    []TextStage{ReflowWrappedLines},
		TotalsAnchor:       "total units required for the degree",
		TotalsWindow:       400,
		MinRequiredCredits: 60,
		MaxRequiredCredits: 180,
		DispatchRules: []DispatchRule{
			{Keyword: "computer science", DegreeKey: "CMPSC_BS"},
		},
		FallbackDegreeKey: "DS_BS",
		DefaultTotalRules: []DefaultTotalRule{
			{Keyword: "computer science", Total: 120},
		},
		DefaultTotal:         124,
		RemainingCourseUnits: 3,
		PlanCreditsPerYear:   30,
		PlanYears:            4,
	}
}

// Validate checks the numeric bounds and required phrases.
func (c Config) Validate() error {
	var errs []error
	if c.TitleWindow <= 0 {
		errs = append(errs, fmt.Errorf("title window must be positive, got %d", c.TitleWindow))
	}
	if c.MaxUnits <= 0 {
		errs = append(errs, fmt.Errorf("max units must be positive, got %v", c.MaxUnits))
	}
	if c.ExclusionHeading == "" {
		errs = append(errs, errors.New("exclusion heading is required"))
	}
	if c.TotalsAnchor == "" {
		errs = append(errs, errors.New("totals anchor is required"))
	}
	if c.TotalsWindow <= 0 {
		errs = append(errs, fmt.Errorf("totals window must be positive, got %d", c.TotalsWindow))
	}
	if c.MinRequiredCredits <= 0 || c.MinRequiredCredits > c.MaxRequiredCredits {
		errs = append(errs, fmt.Errorf("invalid required credit bounds [%v, %v]",
			c.MinRequiredCredits, c.MaxRequiredCredits))
	}
	if c.DefaultTotal < 0 {
		errs = append(errs, fmt.Errorf("default total must not be negative, got %v", c.DefaultTotal))
	}
	if c.PlanCreditsPerYear <= 0 {
		errs = append(errs, fmt.Errorf("plan credits per year must be positive, got %v", c.PlanCreditsPerYear))
	}
	return errors.Join(errs...)
}
