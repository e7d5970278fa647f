package session

import (
	"fmt"
	"math"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Screen selects which part of the front-end is visible.
type Screen string

const (
	ScreenWelcome Screen = "welcome"
	ScreenExam    Screen = "exam"
	ScreenResults Screen = "results"
)

// ReviewStatus classifies one question in the answer review.
type ReviewStatus string

const (
	ReviewCorrect    ReviewStatus = "Correct"
	ReviewIncorrect  ReviewStatus = "Incorrect"
	ReviewUnanswered ReviewStatus = "Unanswered"
)

// View is everything a front-end needs to draw the current state.
type View struct {
	Screen Screen
	Notice Notice

	// Welcome screen.
	TotalQuestions  int
	TimePerQuestion string
	TotalTime       string

	// Exam screen.
	StudentName     string
	StudentID       string
	Counter         string
	Prompt          string
	Options         []OptionView
	ProgressPercent int
	QuestionTimer   int
	Urgent          bool
	ExamTimer       string
	ShowNext        bool
	ShowSubmit      bool

	// Results screen.
	Result     *model.ResultSummary
	ScoreText  string
	Correct    string
	TimeTaken  string
	Review     []ReviewItem
	SaveStatus string
}

// OptionView is one selectable option of the displayed question.
type OptionView struct {
	Index    int
	Text     string
	Selected bool
}

// ReviewItem is one row of the post-exam answer review.
type ReviewItem struct {
	Number        int
	Prompt        string
	YourAnswer    string
	CorrectAnswer string
	Status        ReviewStatus
}

// Project derives the view for s. It has no side effects.
func Project(m *Machine, s State) View {
	total := m.Total()
	v := View{
		Notice:          s.Notice,
		TotalQuestions:  total,
		TimePerQuestion: fmt.Sprintf("%ds", m.cfg.perQuestionSeconds()),
		TotalTime:       FormatClock(int(m.ExamBudget().Seconds())),
		StudentName:     s.StudentName,
		StudentID:       s.StudentID,
	}

	switch s.Phase {
	case Idle:
		v.Screen = ScreenWelcome
	case InProgress:
		v.Screen = ScreenExam
		projectExam(m, s, &v)
	case Finished:
		v.Screen = ScreenResults
		projectResults(m, s, &v)
	}
	return v
}

func projectExam(m *Machine, s State, v *View) {
	total := m.Total()
	q := m.questions[s.CurrentIndex]

	v.Counter = fmt.Sprintf("Question %d of %d", s.CurrentIndex+1, total)
	v.Prompt = q.Prompt
	v.ProgressPercent = int(math.Round(float64(s.CurrentIndex+1) / float64(total) * 100))
	v.QuestionTimer = s.QuestionRemaining
	v.Urgent = s.QuestionRemaining <= m.cfg.warningSeconds()
	v.ExamTimer = FormatClock(s.ExamRemaining)

	last := s.CurrentIndex == total-1
	v.ShowNext = !last
	v.ShowSubmit = last

	v.Options = make([]OptionView, len(q.Options))
	for i, text := range q.Options {
		v.Options[i] = OptionView{Index: i, Text: text, Selected: s.Answers[s.CurrentIndex] == i}
	}
}

func projectResults(m *Machine, s State, v *View) {
	if s.Result == nil {
		return
	}
	r := s.Result
	v.Result = r
	v.ScoreText = fmt.Sprintf("%d%%", r.Score)
	v.Correct = fmt.Sprintf("%d/%d", r.CorrectAnswers, r.TotalQuestions)
	v.TimeTaken = FormatClock(r.TimeTaken)

	v.Review = make([]ReviewItem, len(m.questions))
	for i, q := range m.questions {
		item := ReviewItem{
			Number:        i + 1,
			Prompt:        q.Prompt,
			CorrectAnswer: q.Options[q.CorrectAnswer],
		}
		a := Unanswered
		if i < len(r.Answers) {
			a = r.Answers[i]
		}
		switch {
		case a < 0 || a >= len(q.Options):
			item.Status = ReviewUnanswered
			item.YourAnswer = "No answer"
		case a == q.CorrectAnswer:
			item.Status = ReviewCorrect
			item.YourAnswer = q.Options[a]
		default:
			item.Status = ReviewIncorrect
			item.YourAnswer = q.Options[a]
		}
		v.Review[i] = item
	}

	switch s.Submission {
	case SubmissionPending:
		v.SaveStatus = "Saving results..."
	case SubmissionSaved:
		v.SaveStatus = fmt.Sprintf("Saved as exam session #%d", s.ExamSessionID)
	case SubmissionFailed:
		v.SaveStatus = "Results were not saved; they are kept on this screen"
	}
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
