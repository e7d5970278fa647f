package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Upsert returns the student for s.SchoolID, creating it on first use.
// An existing student keeps its stored name; s is filled from the stored row.
func (r *StudentRepository) Upsert(ctx context.Context, q DBTX, s *model.Student) error {
	if q == nil {
		q = r.pool
	}
	err := q.QueryRow(ctx,
		`INSERT INTO students (name, school_id)
		 VALUES ($1, $2)
		 ON CONFLICT (school_id) DO UPDATE SET school_id = EXCLUDED.school_id
		 RETURNING id, name, created_at`,
		s.Name, s.SchoolID,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSchoolID
		}
		return err
	}
	return nil
}

// GetBySchoolID retrieves a student by their unique school ID.
func (r *StudentRepository) GetBySchoolID(ctx context.Context, schoolID string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, school_id, created_at FROM students WHERE school_id = $1`, schoolID,
	).Scan(&s.ID, &s.Name, &s.SchoolID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}
