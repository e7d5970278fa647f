package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ResultsRepository writes a whole submission atomically and serves the
// read projections used by the results API.
type ResultsRepository struct {
	pool     *pgxpool.Pool
	students *StudentRepository
	sessions *ExamSessionRepository
}

// NewResultsRepository creates a new ResultsRepository.
func NewResultsRepository(pool *pgxpool.Pool) *ResultsRepository {
	return &ResultsRepository{
		pool:     pool,
		students: NewStudentRepository(pool),
		sessions: NewExamSessionRepository(pool),
	}
}

// SaveSubmission upserts the student, inserts the session and its answers in
// one transaction. On success student and session carry their stored IDs.
func (r *ResultsRepository) SaveSubmission(ctx context.Context, student *model.Student, session *model.ExamSession, answers []model.QuestionAnswer) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.students.Upsert(ctx, tx, student); err != nil {
			return fmt.Errorf("upsert student: %w", err)
		}

		session.StudentID = student.ID
		if err := r.sessions.Create(ctx, tx, session); err != nil {
			return fmt.Errorf("create exam session: %w", err)
		}

		for i := range answers {
			answers[i].ExamSessionID = session.ID
		}
		if err := r.sessions.CreateAnswers(ctx, tx, session.ID, answers); err != nil {
			return fmt.Errorf("create answers: %w", err)
		}
		return nil
	})
}

func (r *ResultsRepository) ListBySchoolID(ctx context.Context, schoolID string) ([]model.SessionSummary, error) {
	return r.sessions.ListBySchoolID(ctx, schoolID)
}

func (r *ResultsRepository) ListAll(ctx context.Context) ([]model.SessionSummary, error) {
	return r.sessions.ListAll(ctx)
}

func (r *ResultsRepository) ListAnswers(ctx context.Context, sessionID int64) ([]model.QuestionAnswer, error) {
	return r.sessions.ListAnswers(ctx, sessionID)
}

// Counts returns the number of students and sessions.
func (r *ResultsRepository) Counts(ctx context.Context) (students, sessions int64, err error) {
	if students, err = r.students.Count(ctx); err != nil {
		return 0, 0, err
	}
	if sessions, err = r.sessions.Count(ctx); err != nil {
		return 0, 0, err
	}
	return students, sessions, nil
}

// Ping reports whether the database is reachable.
func (r *ResultsRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
