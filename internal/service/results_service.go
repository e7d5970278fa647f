package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	ErrInvalidSubmission    = errors.New("invalid submission")
	ErrSubmissionInProgress = errors.New("submission with this idempotency key is still being processed")
)

// ResultsStore persists submissions and serves the read projections.
type ResultsStore interface {
	SaveSubmission(ctx context.Context, student *model.Student, session *model.ExamSession, answers []model.QuestionAnswer) error
	ListBySchoolID(ctx context.Context, schoolID string) ([]model.SessionSummary, error)
	ListAll(ctx context.Context) ([]model.SessionSummary, error)
	ListAnswers(ctx context.Context, sessionID int64) ([]model.QuestionAnswer, error)
	Counts(ctx context.Context) (students, sessions int64, err error)
	Ping(ctx context.Context) error
}

// Deduplicator remembers idempotency keys of accepted submissions.
type Deduplicator interface {
	Reserve(ctx context.Context, key string) (sessionID int64, acquired bool, err error)
	Complete(ctx context.Context, key string, sessionID int64) error
	Release(ctx context.Context, key string) error
}

// SubmitResult reports the stored session of a submission.
type SubmitResult struct {
	ExamSessionID int64
	// Replayed is set when the idempotency key matched an earlier submission.
	Replayed bool
}

// ResultsService handles exam result submission and lookup.
type ResultsService struct {
	store ResultsStore
	dedup Deduplicator
	now   func() time.Time
	log   zerolog.Logger
}

// NewResultsService creates a new ResultsService. dedup may be nil, which
// disables idempotent submissions.
func NewResultsService(store ResultsStore, dedup Deduplicator, log zerolog.Logger) *ResultsService {
	return &ResultsService{
		store: store,
		dedup: dedup,
		now:   time.Now,
		log:   log.With().Str("component", "results_service").Logger(),
	}
}

// Submit stores one finished exam: the student (created on first use), the
// session, and one answer row per question. Correctness and score are
// recomputed from the submitted answer key.
func (s *ResultsService) Submit(ctx context.Context, idempotencyKey string, req *model.SubmitExamRequest) (*SubmitResult, error) {
	name := strings.TrimSpace(req.StudentName)
	schoolID := strings.TrimSpace(req.SchoolID)
	if name == "" || schoolID == "" {
		return nil, fmt.Errorf("%w: student name and school ID are required", ErrInvalidSubmission)
	}
	if err := checkAnswers(req); err != nil {
		return nil, err
	}

	reserved := false
	if s.dedup != nil && idempotencyKey != "" {
		id, acquired, err := s.dedup.Reserve(ctx, idempotencyKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("Idempotency store unavailable, submission not deduplicated")
		case !acquired && id > 0:
			s.log.Info().Str("idempotency_key", idempotencyKey).Int64("exam_session_id", id).Msg("Replayed submission")
			return &SubmitResult{ExamSessionID: id, Replayed: true}, nil
		case !acquired:
			return nil, ErrSubmissionInProgress
		default:
			reserved = true
		}
	}

	answers, correct := gradeAnswers(req)
	total := len(req.Questions)
	score := int(math.Round(float64(correct) / float64(total) * 100))
	if req.Results.CorrectAnswers != correct || req.Results.Score != score {
		s.log.Warn().
			Str("school_id", schoolID).
			Int("client_correct", req.Results.CorrectAnswers).
			Int("server_correct", correct).
			Int("client_score", req.Results.Score).
			Int("server_score", score).
			Msg("Client result summary does not match answer key")
	}

	timeTaken := req.Results.TimeTaken
	end := s.now()
	student := &model.Student{Name: name, SchoolID: schoolID}
	session := &model.ExamSession{
		StartTime:      end.Add(-time.Duration(timeTaken) * time.Second),
		EndTime:        end,
		TotalScore:     score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		TimeTaken:      timeTaken,
	}

	if err := s.store.SaveSubmission(ctx, student, session, answers); err != nil {
		if reserved {
			if rerr := s.dedup.Release(ctx, idempotencyKey); rerr != nil {
				s.log.Warn().Err(rerr).Msg("Failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("save submission: %w", err)
	}

	if reserved {
		if err := s.dedup.Complete(ctx, idempotencyKey, session.ID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to record idempotency key")
		}
	}

	s.log.Info().
		Str("school_id", schoolID).
		Int64("student_id", student.ID).
		Int64("exam_session_id", session.ID).
		Int("score", score).
		Msg("Exam results stored")

	return &SubmitResult{ExamSessionID: session.ID}, nil
}

// MaxSeconds bounds the submitted time fields.
const MaxSeconds = 24 * 60 * 60

func checkAnswers(req *model.SubmitExamRequest) error {
	if len(req.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidSubmission)
	}
	if len(req.Answers) != len(req.Questions) {
		return fmt.Errorf("%w: %d answers for %d questions", ErrInvalidSubmission, len(req.Answers), len(req.Questions))
	}
	if len(req.TimeSpent) > len(req.Questions) {
		return fmt.Errorf("%w: %d time entries for %d questions", ErrInvalidSubmission, len(req.TimeSpent), len(req.Questions))
	}
	if t := req.Results.TimeTaken; t < 0 || t > MaxSeconds {
		return fmt.Errorf("%w: time taken %d is out of range", ErrInvalidSubmission, t)
	}
	for i, t := range req.TimeSpent {
		if t < 0 || t > MaxSeconds {
			return fmt.Errorf("%w: time spent on question %d is out of range", ErrInvalidSubmission, i+1)
		}
	}
	for i, q := range req.Questions {
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d has no valid correct answer", ErrInvalidSubmission, i+1)
		}
		if a := req.Answers[i]; a < -1 || a >= len(q.Options) {
			return fmt.Errorf("%w: answer %d is out of range", ErrInvalidSubmission, i+1)
		}
	}
	return nil
}

// gradeAnswers builds the answer rows and counts correct answers.
func gradeAnswers(req *model.SubmitExamRequest) ([]model.QuestionAnswer, int) {
	answers := make([]model.QuestionAnswer, len(req.Answers))
	correct := 0
	for i, a := range req.Answers {
		key := req.Questions[i].CorrectAnswer
		ok := a >= 0 && a == key
		if ok {
			correct++
		}
		spent := 0
		if i < len(req.TimeSpent) {
			spent = req.TimeSpent[i]
		}
		answers[i] = model.QuestionAnswer{
			QuestionNumber: i + 1,
			StudentAnswer:  a,
			CorrectAnswer:  key,
			IsCorrect:      ok,
			TimeSpent:      spent,
		}
	}
	return answers, correct
}

// StudentResults lists the sessions of one student, newest first.
func (s *ResultsService) StudentResults(ctx context.Context, schoolID string) ([]model.SessionSummary, error) {
	return s.store.ListBySchoolID(ctx, strings.TrimSpace(schoolID))
}

// AllResults lists every session, newest first.
func (s *ResultsService) AllResults(ctx context.Context) ([]model.SessionSummary, error) {
	students, sessions, err := s.store.Counts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to count stored results")
	} else {
		s.log.Info().Int64("students", students).Int64("sessions", sessions).Msg("Listing all results")
	}
	return s.store.ListAll(ctx)
}

// ExamDetails returns the per-question answers of one session.
func (s *ResultsService) ExamDetails(ctx context.Context, sessionID int64) ([]model.QuestionAnswer, error) {
	return s.store.ListAnswers(ctx, sessionID)
}

// Ping reports whether the results database is reachable.
func (s *ResultsService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
