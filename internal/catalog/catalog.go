// Package catalog loads requirement tables from spreadsheets and database
// rows into an audit.RequirementTable.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stemsi/degree-audit-backend/internal/audit"
)

// Column names of a requirement sheet. Headers are matched case-insensitively
// with spaces treated as underscores.
const (
	ColDegreeKey         = "degree_key"
	ColMajorName         = "major_name"
	ColTotalCredits      = "total_credits"
	ColMajorCredits      = "major_credits"
	ColGenEdCredits      = "gen_ed_credits"
	ColPrescribed        = "prescribed_courses"
	ColAdditional        = "additional_courses"
	ColOptionsLabel      = "options_label"
	ColGeneralOption     = "general_option_courses"
	ColDataScienceOption = "data_science_option_courses"
)

var (
	ErrMissingKeyColumn = errors.New("requirement sheet has no degree_key column")
	ErrUnsupportedFile  = errors.New("unsupported requirement file type")
)

// Record is one raw requirement row, course lists still unparsed.
type Record struct {
	Key               string
	MajorName         string
	TotalCredits      int
	MajorCredits      int
	GenEdCredits      int
	Prescribed        string
	Additional        string
	OptionsLabel      string
	GeneralOption     string
	DataScienceOption string
}

// Requirement parses the record's course lists.
func (r Record) Requirement() audit.DegreeRequirement {
	return audit.DegreeRequirement{
		Key:               r.Key,
		MajorName:         r.MajorName,
		TotalCredits:      r.TotalCredits,
		MajorCredits:      r.MajorCredits,
		GenEdCredits:      r.GenEdCredits,
		Prescribed:        audit.ParseGroupList(r.Prescribed),
		Additional:        audit.ParseGroupList(r.Additional),
		OptionsLabel:      r.OptionsLabel,
		GeneralOption:     audit.ParseGroupList(r.GeneralOption),
		DataScienceOption: audit.ParseGroupList(r.DataScienceOption),
	}
}

// Build converts records into a requirement table. Duplicate keys are an
// error; rows with a blank key are skipped.
func Build(records []Record) (audit.RequirementTable, error) {
	table := make(audit.RequirementTable, len(records))
	for _, r := range records {
		if r.Key == "" {
			continue
		}
		if _, dup := table[r.Key]; dup {
			return nil, fmt.Errorf("duplicate degree key %q", r.Key)
		}
		table[r.Key] = r.Requirement()
	}
	return table, nil
}

// LoadFile reads a .csv or .xlsx requirement file.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open requirement file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
}

// fromRows maps a header row plus data rows onto records.
func fromRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.ToLower(strings.Join(strings.Fields(h), "_"))
		index[name] = i
	}
	if _, ok := index[ColDegreeKey]; !ok {
		return nil, ErrMissingKeyColumn
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(row []string, col string, line int) (int, error) {
		v := cell(row, col)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: %s %q: %w", line, col, v, err)
		}
		return int(f), nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		rec := Record{
			Key:               cell(row, ColDegreeKey),
			MajorName:         cell(row, ColMajorName),
			Prescribed:        cell(row, ColPrescribed),
			Additional:        cell(row, ColAdditional),
			OptionsLabel:      cell(row, ColOptionsLabel),
			GeneralOption:     cell(row, ColGeneralOption),
			DataScienceOption: cell(row, ColDataScienceOption),
		}
		if rec.Key == "" {
			continue
		}

		var err error
		if rec.TotalCredits, err = number(row, ColTotalCredits, line); err != nil {
			return nil, err
		}
		if rec.MajorCredits, err = number(row, ColMajorCredits, line); err != nil {
			return nil, err
		}
		if rec.GenEdCredits, err = number(row, ColGenEdCredits, line); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
