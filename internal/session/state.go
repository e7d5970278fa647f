package session

import (
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Phase is the lifecycle stage of an exam session.
type Phase int

const (
	Idle Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Answer slot values besides an option index.
const (
	// Unanswered marks a question whose countdown ran out with no selection.
	Unanswered = -1
	// Unset marks a question that has not been answered or timed out yet.
	// Questions never reached before the exam ends keep this value; they
	// score and serialise as Unanswered.
	Unset = -2
)

// SubmissionStatus tracks delivery of the finished session to the results store.
type SubmissionStatus int

const (
	SubmissionNone SubmissionStatus = iota
	SubmissionPending
	SubmissionSaved
	SubmissionFailed
)

// NoticeLevel mirrors the toast severities of the front-end.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// State is the complete exam session. It is a value: Step never mutates the
// state it receives.
type State struct {
	Phase       Phase
	StudentName string
	StudentID   string
	StartedAt   time.Time

	// CurrentIndex is the displayed question while InProgress and equals the
	// number of questions once Finished.
	CurrentIndex int
	Answers      []int
	// TimeSpent is whole seconds spent per question.
	TimeSpent []int

	QuestionShownAt   time.Time
	QuestionRemaining int
	ExamRemaining     int
	// QuestionExpired is set while the grace delay after a timeout is pending.
	QuestionExpired bool

	Result        *model.ResultSummary
	Submission    SubmissionStatus
	ExamSessionID int64
	Notice        Notice

	// gen identifies one start..finish/restart span; seq identifies one
	// displayed question. Timer events carry both and are dropped on mismatch.
	gen uint64
	seq uint64
}

func (s State) clone() State {
	s.Answers = append([]int(nil), s.Answers...)
	s.TimeSpent = append([]int(nil), s.TimeSpent...)
	return s
}
