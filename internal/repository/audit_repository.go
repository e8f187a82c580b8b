package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/degree-audit-backend/internal/model"
)

type AuditRepository interface {
	Create(ctx context.Context, a *model.AuditRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AuditRecord, error)
	ListByStudent(ctx context.Context, studentID, limit int) ([]*model.AuditSummary, error)
}

type auditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) AuditRepository {
	return &auditRepository{db: db}
}

// Create inserts the record. Re-delivered records are ignored, so the persist
// worker may retry freely.
func (r *auditRepository) Create(ctx context.Context, a *model.AuditRecord) error {
	query := `
		INSERT INTO audits (id, student_id, source, file_name, document_hash,
			degree_key, degree_status, major, progress_percent, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.StudentID, a.Source, a.FileName, a.DocumentHash,
		a.DegreeKey, a.DegreeStatus, a.Major, a.ProgressPercent, []byte(a.Result), a.CreatedAt,
	)
	return err
}

func (r *auditRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AuditRecord, error) {
	query := `
		SELECT id, student_id, source, file_name, document_hash,
			degree_key, degree_status, major, progress_percent::float8, result, created_at
		FROM audits WHERE id = $1
	`
	a := &model.AuditRecord{}
	var result []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.StudentID, &a.Source, &a.FileName, &a.DocumentHash,
		&a.DegreeKey, &a.DegreeStatus, &a.Major, &a.ProgressPercent, &result, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Result = result
	return a, nil
}

func (r *auditRepository) ListByStudent(ctx context.Context, studentID, limit int) ([]*model.AuditSummary, error) {
	query := `
		SELECT id, source, file_name, degree_key, major, progress_percent::float8, created_at
		FROM audits
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := make([]*model.AuditSummary, 0)
	for rows.Next() {
		s := &model.AuditSummary{}
		if err := rows.Scan(&s.ID, &s.Source, &s.FileName, &s.DegreeKey, &s.Major, &s.ProgressPercent, &s.CreatedAt); err != nil {
			return nil, err
		}
		audits = append(audits, s)
	}
	return audits, rows.Err()
}
