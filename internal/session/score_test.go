package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	qs := DefaultQuestions()
	key := []int{2, 1, 3, 1, 1, 2, 2, 2, 2, 1}

	tests := []struct {
		name       string
		answers    []int
		score      int
		correct    int
		unanswered int
		unseen     int
	}{
		{
			name:    "all correct",
			answers: key,
			score:   100,
			correct: 10,
		},
		{
			name:       "three correct two unanswered five wrong",
			answers:    []int{2, 1, 3, -1, -1, 0, 0, 0, 0, 0},
			score:      30,
			correct:    3,
			unanswered: 2,
		},
		{
			name:       "unset counts as unanswered",
			answers:    []int{2, Unset, Unset, Unset, Unset, Unset, Unset, Unset, Unset, Unset},
			score:      10,
			correct:    1,
			unanswered: 9,
			unseen:     9,
		},
		{
			name:       "six correct four timed out",
			answers:    []int{2, 1, 3, 1, 1, 2, -1, -1, -1, -1},
			score:      60,
			correct:    6,
			unanswered: 4,
		},
		{
			name:       "short answers slice",
			answers:    []int{2},
			score:      10,
			correct:    1,
			unanswered: 9,
			unseen:     9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(qs, tt.answers, t0, t0.Add(75*time.Second+900*time.Millisecond))
			require.Equal(t, tt.score, got.Score)
			require.Equal(t, tt.correct, got.CorrectAnswers)
			require.Equal(t, tt.unanswered, got.UnansweredQuestions)
			require.Equal(t, tt.unseen, got.UnseenQuestions)
			require.Equal(t, 10, got.TotalQuestions)
			require.Equal(t, 75, got.TimeTaken)
			for _, a := range got.Answers {
				require.NotEqual(t, Unset, a)
			}
		})
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	qs := DefaultQuestions()[:8]
	// 1 of 8 correct = 12.5%.
	got := Score(qs, []int{2, -1, -1, -1, -1, -1, -1, -1}, time.Time{}, t0)
	require.Equal(t, 13, got.Score)
	require.Zero(t, got.TimeTaken)
}
