package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/degree-audit-backend/internal/audit"
)

// AuditFile is the YAML form of the engine vocabulary.
type AuditFile struct {
	Equivalences map[string][]string `yaml:"equivalences"`
	Rows         RowsSection         `yaml:"rows"`
	Exclusion    ExclusionSection    `yaml:"exclusion"`
	Totals       TotalsSection       `yaml:"totals"`
	Degrees      DegreesSection      `yaml:"degrees"`
	Plan         PlanSection         `yaml:"plan"`
}

type RowsSection struct {
	TitleWindow int     `yaml:"title_window"`
	MaxUnits    float64 `yaml:"max_units"`
}

type ExclusionSection struct {
	Heading            string   `yaml:"heading"`
	StopPhrases        []string `yaml:"stop_phrases"`
	ReflowWrappedLines bool     `yaml:"reflow_wrapped_lines"`
}

type TotalsSection struct {
	Anchor      string  `yaml:"anchor"`
	Window      int     `yaml:"window"`
	MinRequired float64 `yaml:"min_required"`
	MaxRequired float64 `yaml:"max_required"`
}

type DegreesSection struct {
	Dispatch      []DispatchEntry     `yaml:"dispatch"`
	FallbackKey   string              `yaml:"fallback_key"`
	DefaultTotals []DefaultTotalEntry `yaml:"default_totals"`
	DefaultTotal  float64             `yaml:"default_total"`
}

type DispatchEntry struct {
	Keyword string `yaml:"keyword"`
	Key     string `yaml:"key"`
}

type DefaultTotalEntry struct {
	Keyword string  `yaml:"keyword"`
	Total   float64 `yaml:"total"`
}

type PlanSection struct {
	RemainingCourseUnits float64 `yaml:"remaining_course_units"`
	CreditsPerYear       float64 `yaml:"credits_per_year"`
	Years                int     `yaml:"years"`
}

// DefaultAuditFile mirrors audit.DefaultConfig.
func DefaultAuditFile() *AuditFile {
	d := audit.DefaultConfig()

	f := &AuditFile{
		Equivalences: make(map[string][]string, len(d.Equivalences)),
		Rows:         RowsSection{TitleWindow: d.TitleWindow, MaxUnits: d.MaxUnits},
		Exclusion: ExclusionSection{
			Heading:            d.ExclusionHeading,
			StopPhrases:        append([]string(nil), d.ExclusionStopPhrases...),
			ReflowWrappedLines: len(d.ExclusionStages) > 0,
		},
		Totals: TotalsSection{
			Anchor:      d.TotalsAnchor,
			Window:      d.TotalsWindow,
			MinRequired: d.MinRequiredCredits,
			MaxRequired: d.MaxRequiredCredits,
		},
		Degrees: DegreesSection{
			FallbackKey:  d.FallbackDegreeKey,
			DefaultTotal: d.DefaultTotal,
		},
		Plan: PlanSection{
			RemainingCourseUnits: d.RemainingCourseUnits,
			CreditsPerYear:       d.PlanCreditsPerYear,
			Years:                d.PlanYears,
		},
	}
	for k, v := range d.Equivalences {
		f.Equivalences[k] = append([]string(nil), v...)
	}
	for _, r := range d.DispatchRules {
		f.Degrees.Dispatch = append(f.Degrees.Dispatch, DispatchEntry{Keyword: r.Keyword, Key: r.DegreeKey})
	}
	for _, r := range d.DefaultTotalRules {
		f.Degrees.DefaultTotals = append(f.Degrees.DefaultTotals, DefaultTotalEntry{Keyword: r.Keyword, Total: r.Total})
	}
	return f
}

// LoadAuditConfig reads the YAML at path over the defaults. An empty path or
// a missing file yields the defaults. Equivalence entries in the file are
// added to the default table; lists replace their defaults.
func LoadAuditConfig(path string) (audit.Config, error) {
	f := DefaultAuditFile()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return audit.Config{}, fmt.Errorf("failed to read audit config: %w", err)
		default:
			if err := yaml.Unmarshal(data, f); err != nil {
				return audit.Config{}, fmt.Errorf("failed to parse audit config: %w", err)
			}
		}
	}

	cfg := f.Engine()
	if err := cfg.Validate(); err != nil {
		return audit.Config{}, fmt.Errorf("invalid audit config %q: %w", path, err)
	}
	return cfg, nil
}

// Engine converts the file form into the engine configuration.
func (f *AuditFile) Engine() audit.Config {
	cfg := audit.Config{
		Equivalences:         audit.Equivalences(f.Equivalences),
		TitleWindow:          f.Rows.TitleWindow,
		MaxUnits:             f.Rows.MaxUnits,
		ExclusionHeading:     f.Exclusion.Heading,
		ExclusionStopPhrases: f.Exclusion.StopPhrases,
		TotalsAnchor:         f.Totals.Anchor,
		TotalsWindow:         f.Totals.Window,
		MinRequiredCredits:   f.Totals.MinRequired,
		MaxRequiredCredits:   f.Totals.MaxRequired,
		FallbackDegreeKey:    f.Degrees.FallbackKey,
		DefaultTotal:         f.Degrees.DefaultTotal,
		RemainingCourseUnits: f.Plan.RemainingCourseUnits,
		PlanCreditsPerYear:   f.Plan.CreditsPerYear,
		PlanYears:            f.Plan.Years,
	}
	if f.Exclusion.ReflowWrappedLines {
		cfg.ExclusionStages = []audit.TextStage{audit.ReflowWrappedLines}
	}
	for _, d := range f.Degrees.Dispatch {
		cfg.DispatchRules = append(cfg.DispatchRules, audit.DispatchRule{Keyword: d.Keyword, DegreeKey: d.Key})
	}
	for _, d := range f.Degrees.DefaultTotals {
		cfg.DefaultTotalRules = append(cfg.DefaultTotalRules, audit.DefaultTotalRule{Keyword: d.Keyword, Total: d.Total})
	}
	return cfg
}
