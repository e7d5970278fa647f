package model

import "time"

// ExamSession is one persisted, finished exam attempt.
type ExamSession struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TotalScore     int       `json:"total_score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      int       `json:"time_taken"`
}

// QuestionAnswer is the stored outcome of one question within a session.
type QuestionAnswer struct {
	ExamSessionID  int64 `json:"exam_session_id"`
	QuestionNumber int   `json:"question_number"`
	StudentAnswer  int   `json:"student_answer"`
	CorrectAnswer  int   `json:"correct_answer"`
	IsCorrect      bool  `json:"is_correct"`
	TimeSpent      int   `json:"time_spent"`
}

// SessionSummary is the read projection joining a session with its student.
type SessionSummary struct {
	ExamSessionID  int64     `json:"exam_session_id"`
	Name           string    `json:"name"`
	SchoolID       string    `json:"school_id"`
	TotalScore     int       `json:"total_score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      int       `json:"time_taken"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}
