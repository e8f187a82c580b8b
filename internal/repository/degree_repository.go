package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/degree-audit-backend/internal/model"
)

type DegreeRepository interface {
	GetAll(ctx context.Context) ([]*model.Degree, error)
	GetByKey(ctx context.Context, key string) (*model.Degree, error)
	UpsertAll(ctx context.Context, degrees []*model.Degree) error
}

type degreeRepository struct {
	db *pgxpool.Pool
}

func NewDegreeRepository(db *pgxpool.Pool) DegreeRepository {
	return &degreeRepository{db: db}
}

const degreeColumns = `id, key, major_name, total_credits, major_credits, gen_ed_credits,
	prescribed_courses, additional_courses, options_label,
	general_option_courses, data_science_option_courses, created_at, updated_at`

func scanDegree(row pgx.Row) (*model.Degree, error) {
	d := &model.Degree{}
	err := row.Scan(&d.ID, &d.Key, &d.MajorName, &d.TotalCredits, &d.MajorCredits, &d.GenEdCredits,
		&d.Prescribed, &d.Additional, &d.OptionsLabel,
		&d.GeneralOption, &d.DataScienceOption, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *degreeRepository) GetAll(ctx context.Context) ([]*model.Degree, error) {
	query := `SELECT ` + degreeColumns + ` FROM degrees ORDER BY key ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var degrees []*model.Degree
	for rows.Next() {
		d, err := scanDegree(rows)
		if err != nil {
			return nil, err
		}
		degrees = append(degrees, d)
	}
	return degrees, rows.Err()
}

func (r *degreeRepository) GetByKey(ctx context.Context, key string) (*model.Degree, error) {
	query := `SELECT ` + degreeColumns + ` FROM degrees WHERE key = $1`
	return scanDegree(r.db.QueryRow(ctx, query, key))
}

// UpsertAll writes every degree in one transaction, keyed by degree key.
func (r *degreeRepository) UpsertAll(ctx context.Context, degrees []*model.Degree) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO degrees (key, major_name, total_credits, major_credits, gen_ed_credits,
			prescribed_courses, additional_courses, options_label,
			general_option_courses, data_science_option_courses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (key) DO UPDATE SET
			major_name = EXCLUDED.major_name,
			total_credits = EXCLUDED.total_credits,
			major_credits = EXCLUDED.major_credits,
			gen_ed_credits = EXCLUDED.gen_ed_credits,
			prescribed_courses = EXCLUDED.prescribed_courses,
			additional_courses = EXCLUDED.additional_courses,
			options_label = EXCLUDED.options_label,
			general_option_courses = EXCLUDED.general_option_courses,
			data_science_option_courses = EXCLUDED.data_science_option_courses,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	for _, d := range degrees {
		err := tx.QueryRow(ctx, query,
			d.Key, d.MajorName, d.TotalCredits, d.MajorCredits, d.GenEdCredits,
			d.Prescribed, d.Additional, d.OptionsLabel,
			d.GeneralOption, d.DataScienceOption,
		).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
