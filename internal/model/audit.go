package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/degree-audit-backend/internal/audit"
)

// AuditSource says how the report text reached the service.
type AuditSource string

const (
	AuditSourcePDF  AuditSource = "pdf"
	AuditSourceText AuditSource = "text"
)

// AuditRecord is a stored audit. Result holds the serialized audit.Result.
type AuditRecord struct {
	ID              uuid.UUID       `json:"id"`
	StudentID       int             `json:"student_id"`
	Source          AuditSource     `json:"source"`
	FileName        string          `json:"file_name,omitempty"`
	DocumentHash    string          `json:"document_hash"`
	DegreeKey       string          `json:"degree_key"`
	DegreeStatus    string          `json:"degree_status"`
	Major           string          `json:"major"`
	ProgressPercent float64         `json:"progress_percent"`
	Result          json.RawMessage `json:"result"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AuditSummary is the listing form of an audit.
type AuditSummary struct {
	ID              uuid.UUID   `json:"id"`
	Source          AuditSource `json:"source"`
	FileName        string      `json:"file_name,omitempty"`
	DegreeKey       string      `json:"degree_key"`
	Major           string      `json:"major"`
	ProgressPercent float64     `json:"progress_percent"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TextAuditRequest is the payload for auditing already-extracted report text.
type TextAuditRequest struct {
	Text      string `json:"text" binding:"required,min=20,max=2000000"`
	DegreeKey string `json:"degree_key" binding:"omitempty,max=64,degree_key"`
}

// PDFAuditForm carries the optional fields sent next to an uploaded report.
type PDFAuditForm struct {
	DegreeKey string `form:"degree_key" json:"degree_key" binding:"omitempty,max=64,degree_key"`
}

// ListAuditsQuery bounds an audit listing.
type ListAuditsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// AuditView is an audit as returned to its owner.
type AuditView struct {
	ID        uuid.UUID     `json:"id"`
	Source    AuditSource   `json:"source"`
	FileName  string        `json:"file_name,omitempty"`
	Cached    bool          `json:"cached"`
	Summary   string        `json:"summary"`
	Result    *audit.Result `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
}
