package tui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/session"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	mu   sync.Mutex
	reqs []*model.SubmitExamRequest
	id   int64
	err  error
}

func (s *stubSubmitter) Submit(_ context.Context, req *model.SubmitExamRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.id, s.err
}

func runScript(t *testing.T, sub session.Submitter, script string) string {
	t.Helper()
	var out bytes.Buffer
	app := New(newMachine(t), sub, strings.NewReader(script), &out, zerolog.New(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))
	require.NoError(t, ctx.Err(), "app did not stop on end of input")
	return out.String()
}

func TestAppFullExam(t *testing.T) {
	sub := &stubSubmitter{id: 9}
	qs := session.DefaultQuestions()
	script := strings.Join([]string{
		"start S1 Ann Lee",
		string(rune('a' + qs[0].CorrectAnswer)),
		"next",
		string(rune('a' + qs[1].CorrectAnswer)),
		"next",
		"submit",
	}, "\n") + "\n"

	out := runScript(t, sub, script)

	require.Contains(t, out, "=== Timed Exam ===")
	require.Contains(t, out, "Question 3 of 3")
	require.Contains(t, out, "Score:      67%")
	require.Contains(t, out, "Saved as exam session #9")

	require.Len(t, sub.reqs, 1)
	req := sub.reqs[0]
	require.Equal(t, "Ann Lee", req.StudentName)
	require.Equal(t, "S1", req.SchoolID)
	require.Equal(t, []int{qs[0].CorrectAnswer, qs[1].CorrectAnswer, -1}, req.Answers)
	require.Equal(t, 2, req.Results.CorrectAnswers)
}

func TestAppSubmissionFailureKeepsResults(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("server down")}
	out := runScript(t, sub, "start S1 Ann\nsubmit\n")

	require.Contains(t, out, "=== Results ===")
	require.Contains(t, out, "Failed to save results to database")
	require.Contains(t, out, "Results were not saved")
}

func TestAppMessages(t *testing.T) {
	out := runScript(t, &stubSubmitter{id: 1}, "bogus\nhelp\nstart\nquit\nstart S1 Ann\n")

	require.Contains(t, out, ErrUnknownCommand.Error())
	require.Contains(t, out, "Commands:")
	require.Contains(t, out, session.MsgMissingDetails)
	// Lines after quit are never handled.
	require.NotContains(t, out, "Question 1 of 3")
}
