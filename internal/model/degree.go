package model

import "time"

// Degree is one stored row of the requirement table. Course lists keep the
// raw comma-separated text they were loaded from.
type Degree struct {
	ID                int       `json:"id"`
	Key               string    `json:"key"`
	MajorName         string    `json:"major_name"`
	TotalCredits      int       `json:"total_credits"`
	MajorCredits      int       `json:"major_credits"`
	GenEdCredits      int       `json:"gen_ed_credits"`
	Prescribed        string    `json:"prescribed_courses"`
	Additional        string    `json:"additional_courses"`
	OptionsLabel      string    `json:"options_label"`
	GeneralOption     string    `json:"general_option_courses"`
	DataScienceOption string    `json:"data_science_option_courses"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DegreeSummary is the listing form of a requirement table entry.
type DegreeSummary struct {
	Key          string `json:"key"`
	MajorName    string `json:"major_name"`
	TotalCredits int    `json:"total_credits"`
	Groups       int    `json:"groups"`
}
