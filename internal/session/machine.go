package session

import (
	"strings"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Event is an input to the state machine: a user action, a timer firing, or
// the outcome of a submission.
type Event interface{ event() }

type (
	StartEvent struct {
		Name string
		ID   string
	}
	SelectEvent  struct{ Option int }
	AdvanceEvent struct{}
	SubmitEvent  struct{}
	RestartEvent struct{}

	// QuestionTickEvent is one second of the per-question countdown.
	QuestionTickEvent struct{ gen, seq uint64 }
	// ExamTickEvent asks the machine to recompute the whole-exam countdown.
	ExamTickEvent struct{ gen uint64 }
	// GraceElapsedEvent ends the pause after a question timed out.
	GraceElapsedEvent struct{ gen, seq uint64 }
	// SubmissionDoneEvent reports the results store outcome.
	SubmissionDoneEvent struct {
		gen           uint64
		ExamSessionID int64
		Err           error
	}
)

func (StartEvent) event()          {}
func (SelectEvent) event()         {}
func (AdvanceEvent) event()        {}
func (SubmitEvent) event()         {}
func (RestartEvent) event()        {}
func (QuestionTickEvent) event()   {}
func (ExamTickEvent) event()       {}
func (GraceElapsedEvent) event()   {}
func (SubmissionDoneEvent) event() {}

// Effect is a side effect requested by a transition. The Controller carries
// them out; the machine itself never touches timers or the network.
type Effect interface{ effect() }

type (
	// StartTimersEffect starts the whole-exam and per-question tickers.
	StartTimersEffect struct{ gen, seq uint64 }
	// ResetQuestionTimerEffect restarts the per-question ticker for a new question.
	ResetQuestionTimerEffect struct{ gen, seq uint64 }
	// StopQuestionTimerEffect stops the per-question ticker only.
	StopQuestionTimerEffect struct{}
	// ScheduleGraceEffect arms the one-shot auto-advance.
	ScheduleGraceEffect struct{ gen, seq uint64 }
	// StopTimersEffect stops every timer. Safe when none are running.
	StopTimersEffect struct{}
	// EmitResultEffect hands the finished session to the results store.
	EmitResultEffect struct {
		gen     uint64
		Request *model.SubmitExamRequest
	}
)

func (StartTimersEffect) effect()        {}
func (ResetQuestionTimerEffect) effect() {}
func (StopQuestionTimerEffect) effect()  {}
func (ScheduleGraceEffect) effect()      {}
func (StopTimersEffect) effect()         {}
func (EmitResultEffect) effect()         {}

// Notice texts shown by the front-end.
const (
	MsgMissingDetails = "Please fill in all required fields"
	MsgAlreadyStarted = "Exam already started"
	MsgInvalidOption  = "Please choose one of the listed options"
	MsgStarted        = "Exam started! Good luck!"
	MsgTimeUp         = "Time's up! Moving to next question..."
	MsgSaved          = "Results saved to database successfully!"
	MsgSaveFailed     = "Failed to save results to database"
)

// Machine holds the immutable exam definition and computes transitions.
type Machine struct {
	questions []model.Question
	cfg       Config
}

// NewMachine validates the question set and returns a machine for it.
func NewMachine(questions []model.Question, cfg Config) (*Machine, error) {
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	qs := make([]model.Question, len(questions))
	copy(qs, questions)
	return &Machine{questions: qs, cfg: cfg.withDefaults()}, nil
}

// Questions returns the exam's question set.
func (m *Machine) Questions() []model.Question { return m.questions }

// Config returns the effective timing configuration.
func (m *Machine) Config() Config { return m.cfg }

// Total is the number of questions.
func (m *Machine) Total() int { return len(m.questions) }

// ExamBudget is the whole-exam time limit.
func (m *Machine) ExamBudget() time.Duration {
	return m.cfg.PerQuestion * time.Duration(len(m.questions))
}

// Step applies ev to s at instant now and returns the next state plus the
// effects the caller must perform. Events that do not apply to the current
// phase, or timer events scheduled for an earlier session or question,
// return s unchanged with no effects.
func (m *Machine) Step(s State, ev Event, now time.Time) (State, []Effect) {
	switch e := ev.(type) {
	case StartEvent:
		return m.start(s, e, now)
	case SelectEvent:
		return m.selectAnswer(s, e)
	case AdvanceEvent:
		if s.Phase != InProgress {
			return s, nil
		}
		return m.advance(s, now)
	case SubmitEvent:
		if s.Phase != InProgress {
			return s, nil
		}
		return m.finish(s, now)
	case RestartEvent:
		return State{gen: s.gen + 1, seq: s.seq + 1}, []Effect{StopTimersEffect{}}
	case QuestionTickEvent:
		if !s.live(e.gen) || e.seq != s.seq || s.QuestionExpired {
			return s, nil
		}
		return m.questionTick(s, now)
	case GraceElapsedEvent:
		if !s.live(e.gen) || e.seq != s.seq {
			return s, nil
		}
		return m.advance(s, now)
	case ExamTickEvent:
		if !s.live(e.gen) {
			return s, nil
		}
		return m.examTick(s, now)
	case SubmissionDoneEvent:
		if e.gen != s.gen || s.Phase != Finished {
			return s, nil
		}
		return submissionDone(s, e), nil
	}
	return s, nil
}

func (s State) live(gen uint64) bool {
	return s.Phase == InProgress && gen == s.gen
}

func (m *Machine) start(s State, e StartEvent, now time.Time) (State, []Effect) {
	if s.Phase != Idle {
		s.Notice = Notice{Level: NoticeWarning, Text: MsgAlreadyStarted}
		return s, nil
	}
	name := strings.TrimSpace(e.Name)
	id := strings.TrimSpace(e.ID)
	if name == "" || id == "" {
		s.Notice = Notice{Level: NoticeWarning, Text: MsgMissingDetails}
		return s, nil
	}

	n := len(m.questions)
	answers := make([]int, n)
	for i := range answers {
		answers[i] = Unset
	}

	next := State{
		Phase:             InProgress,
		StudentName:       name,
		StudentID:         id,
		StartedAt:         now,
		CurrentIndex:      0,
		Answers:           answers,
		TimeSpent:         make([]int, n),
		QuestionShownAt:   now,
		QuestionRemaining: m.cfg.perQuestionSeconds(),
		ExamRemaining:     int(m.ExamBudget() / time.Second),
		Notice:            Notice{Level: NoticeSuccess, Text: MsgStarted},
		gen:               s.gen + 1,
		seq:               s.seq + 1,
	}
	return next, []Effect{StartTimersEffect{gen: next.gen, seq: next.seq}}
}

func (m *Machine) selectAnswer(s State, e SelectEvent) (State, []Effect) {
	if s.Phase != InProgress {
		return s, nil
	}
	if e.Option < 0 || e.Option >= len(m.questions[s.CurrentIndex].Options) {
		s.Notice = Notice{Level: NoticeWarning, Text: MsgInvalidOption}
		return s, nil
	}
	next := s.clone()
	next.Answers[s.CurrentIndex] = e.Option
	if next.Notice.Text == MsgInvalidOption {
		next.Notice = Notice{}
	}
	return next, nil
}

func (m *Machine) advance(s State, now time.Time) (State, []Effect) {
	if s.CurrentIndex >= len(m.questions)-1 {
		return m.finish(s, now)
	}
	next := s.clone()
	addTimeSpent(&next, now)
	next.CurrentIndex++
	next.seq++
	next.QuestionShownAt = now
	next.QuestionRemaining = m.cfg.perQuestionSeconds()
	next.QuestionExpired = false
	if next.Notice.Text == MsgTimeUp {
		next.Notice = Notice{}
	}
	return next, []Effect{ResetQuestionTimerEffect{gen: next.gen, seq: next.seq}}
}

func (m *Machine) questionTick(s State, now time.Time) (State, []Effect) {
	next := s.clone()
	next.QuestionRemaining--
	if next.QuestionRemaining > 0 {
		return next, nil
	}

	next.QuestionRemaining = 0
	if next.Answers[next.CurrentIndex] == Unset {
		next.Answers[next.CurrentIndex] = Unanswered
	}
	if next.CurrentIndex >= len(m.questions)-1 {
		return m.finish(next, now)
	}
	next.QuestionExpired = true
	next.Notice = Notice{Level: NoticeWarning, Text: MsgTimeUp}
	return next, []Effect{
		StopQuestionTimerEffect{},
		ScheduleGraceEffect{gen: next.gen, seq: next.seq},
	}
}

func (m *Machine) examTick(s State, now time.Time) (State, []Effect) {
	elapsed := int(now.Sub(s.StartedAt) / time.Second)
	remaining := int(m.ExamBudget()/time.Second) - elapsed
	if remaining <= 0 {
		s.ExamRemaining = 0
		return m.finish(s, now)
	}
	s.ExamRemaining = remaining
	return s, nil
}

func (m *Machine) finish(s State, now time.Time) (State, []Effect) {
	next := s.clone()
	addTimeSpent(&next, now)

	result := Score(m.questions, next.Answers, next.StartedAt, now)
	next.Phase = Finished
	next.CurrentIndex = len(m.questions)
	next.QuestionExpired = false
	next.QuestionRemaining = 0
	next.Result = &result
	next.Submission = SubmissionPending
	next.Notice = Notice{}

	req := &model.SubmitExamRequest{
		StudentName: next.StudentName,
		SchoolID:    next.StudentID,
		Answers:     WireAnswers(next.Answers),
		Results:     result,
		Questions:   m.questions,
		TimeSpent:   append([]int(nil), next.TimeSpent...),
	}
	return next, []Effect{StopTimersEffect{}, EmitResultEffect{gen: next.gen, Request: req}}
}

// addTimeSpent credits the current question with the time since it was
// shown. s must already be a clone.
func addTimeSpent(s *State, now time.Time) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.TimeSpent) {
		return
	}
	if d := now.Sub(s.QuestionShownAt); d > 0 {
		s.TimeSpent[s.CurrentIndex] += int(d / time.Second)
	}
	s.QuestionShownAt = now
}

func submissionDone(s State, e SubmissionDoneEvent) State {
	if e.Err != nil {
		s.Submission = SubmissionFailed
		s.Notice = Notice{Level: NoticeError, Text: MsgSaveFailed}
		return s
	}
	s.Submission = SubmissionSaved
	s.ExamSessionID = e.ExamSessionID
	s.Notice = Notice{Level: NoticeSuccess, Text: MsgSaved}
	return s
}
