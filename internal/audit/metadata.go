package audit

import (
	"regexp"
	"strings"
)

// NotFound is reported for metadata the document does not state.
const NotFound = "Not Found"

var (
	gpaRe      = regexp.MustCompile(`Cum GPA:\s*([\d.]+)`)
	semesterRe = regexp.MustCompile(`Level:\s*(\d+[^\n]*?Sem)`)
	majorRe    = regexp.MustCompile(`([A-Za-z \t()]+?)\s+Major\s+[A-Za-z]+\s+\d{4}`)
	nameRe     = regexp.MustCompile(`(?mi)^[ \t]*(?:Student\s+)?Name:[ \t]*([A-Za-z][A-Za-z ,.'\-]*?)[ \t]*$`)
	optionRe   = regexp.MustCompile(`(?i)\b(data\s+science|general)\s+option\b`)
)

// Metadata is the student information found in the report header.
type Metadata struct {
	StudentName string `json:"student_name"`
	Major       string `json:"major"`
	Semester    string `json:"semester"`
	GPA         string `json:"gpa"`
	Option      Option `json:"option,omitempty"`
}

// ExtractMetadata reads the header fields, using NotFound for absent ones.
func ExtractMetadata(text string) Metadata {
	return Metadata{
		StudentName: firstGroup(nameRe, text),
		Major:       firstGroup(majorRe, text),
		Semester:    firstGroup(semesterRe, text),
		GPA:         firstGroup(gpaRe, text),
		Option:      detectOption(text),
	}
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return NotFound
	}
	if v := strings.Join(strings.Fields(m[1]), " "); v != "" {
		return v
	}
	return NotFound
}

func detectOption(text string) Option {
	m := optionRe.FindStringSubmatch(text)
	if m == nil {
		return OptionNone
	}
	if strings.HasPrefix(strings.ToLower(m[1]), "data") {
		return OptionDataScience
	}
	return OptionGeneral
}
