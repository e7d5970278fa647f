package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

const summaryColumns = `es.id, st.name, st.school_id, es.total_score, es.correct_answers,
		es.total_questions, es.time_taken, es.start_time, es.end_time`

// ExamSessionRepository handles exam session and answer data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a finished session and sets its ID.
func (r *ExamSessionRepository) Create(ctx context.Context, q DBTX, es *model.ExamSession) error {
	if q == nil {
		q = r.pool
	}
	return q.QueryRow(ctx,
		`INSERT INTO exam_sessions (student_id, start_time, end_time, total_score, correct_answers, total_questions, time_taken)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		es.StudentID, es.StartTime, es.EndTime, es.TotalScore, es.CorrectAnswers, es.TotalQuestions, es.TimeTaken,
	).Scan(&es.ID)
}

// CreateAnswers bulk-inserts the answers of one session with a single UNNEST statement.
func (r *ExamSessionRepository) CreateAnswers(ctx context.Context, q DBTX, sessionID int64, answers []model.QuestionAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if q == nil {
		q = r.pool
	}

	n := len(answers)
	numbers := make([]int32, n)
	given := make([]int32, n)
	correct := make([]int32, n)
	isCorrect := make([]bool, n)
	spent := make([]int32, n)
	for i, a := range answers {
		numbers[i] = int32(a.QuestionNumber)
		given[i] = int32(a.StudentAnswer)
		correct[i] = int32(a.CorrectAnswer)
		isCorrect[i] = a.IsCorrect
		spent[i] = int32(a.TimeSpent)
	}

	_, err := q.Exec(ctx, `
		INSERT INTO question_answers
			(exam_session_id, question_number, student_answer, correct_answer, is_correct, time_spent)
		SELECT $1, u.question_number, u.student_answer, u.correct_answer, u.is_correct, u.time_spent
		FROM UNNEST(
			$2::int[],
			$3::int[],
			$4::int[],
			$5::bool[],
			$6::int[]
		) AS u (question_number, student_answer, correct_answer, is_correct, time_spent)`,
		sessionID, numbers, given, correct, isCorrect, spent,
	)
	return err
}

// ListBySchoolID returns the sessions of one student, newest first.
func (r *ExamSessionRepository) ListBySchoolID(ctx context.Context, schoolID string) ([]model.SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM exam_sessions es
		 JOIN students st ON st.id = es.student_id
		 WHERE st.school_id = $1
		 ORDER BY es.start_time DESC, es.id DESC`, schoolID,
	)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListAll returns every session across students, newest first.
func (r *ExamSessionRepository) ListAll(ctx context.Context) ([]model.SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM exam_sessions es
		 JOIN students st ON st.id = es.student_id
		 ORDER BY es.start_time DESC, es.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListAnswers returns the per-question detail of one session by question number.
func (r *ExamSessionRepository) ListAnswers(ctx context.Context, sessionID int64) ([]model.QuestionAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_session_id, question_number, student_answer, correct_answer, is_correct, time_spent
		 FROM question_answers WHERE exam_session_id = $1
		 ORDER BY question_number`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.QuestionAnswer{}
	for rows.Next() {
		var a model.QuestionAnswer
		if err := rows.Scan(&a.ExamSessionID, &a.QuestionNumber, &a.StudentAnswer, &a.CorrectAnswer, &a.IsCorrect, &a.TimeSpent); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Count returns the number of stored sessions.
func (r *ExamSessionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_sessions`).Scan(&n)
	return n, err
}

func scanSummaries(rows pgx.Rows) ([]model.SessionSummary, error) {
	defer rows.Close()

	sessions := []model.SessionSummary{}
	for rows.Next() {
		var s model.SessionSummary
		if err := rows.Scan(&s.ExamSessionID, &s.Name, &s.SchoolID, &s.TotalScore, &s.CorrectAnswers,
			&s.TotalQuestions, &s.TimeTaken, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
