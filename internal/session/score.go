package session

import (
	"math"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Score computes the result summary for answers against questions.
// Unanswered and Unset both count as unanswered; Unset is also reported
// separately as unseen.
func Score(questions []model.Question, answers []int, startedAt, now time.Time) model.ResultSummary {
	total := len(questions)
	sum := model.ResultSummary{
		TotalQuestions: total,
		Answers:        WireAnswers(answers),
	}

	for i, q := range questions {
		a := Unset
		if i < len(answers) {
			a = answers[i]
		}
		switch {
		case a == Unset:
			sum.UnansweredQuestions++
			sum.UnseenQuestions++
		case a == Unanswered:
			sum.UnansweredQuestions++
		case a == q.CorrectAnswer:
			sum.CorrectAnswers++
		}
	}

	if total > 0 {
		sum.Score = int(math.Round(100 * float64(sum.CorrectAnswers) / float64(total)))
	}
	if !startedAt.IsZero() && now.After(startedAt) {
		sum.TimeTaken = int(now.Sub(startedAt) / time.Second)
	}
	return sum
}

// WireAnswers converts answer slots to the submission format, where only
// option indexes and -1 exist.
func WireAnswers(answers []int) []int {
	out := make([]int, len(answers))
	for i, a := range answers {
		if a == Unset {
			a = Unanswered
		}
		out[i] = a
	}
	return out
}
