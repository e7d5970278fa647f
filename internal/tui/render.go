package tui

import (
	"fmt"
	"strings"

	"github.com/stemsi/exstem-quiz/internal/session"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	barWidth    = 20
)

// Render draws v as plain text. The output never depends on anything but v.
func Render(v session.View) string {
	var b strings.Builder

	if v.Notice.Text != "" {
		fmt.Fprintf(&b, "[%s] %s\n\n", v.Notice.Level, v.Notice.Text)
	}

	switch v.Screen {
	case session.ScreenWelcome:
		renderWelcome(&b, v)
	case session.ScreenExam:
		renderExam(&b, v)
	case session.ScreenResults:
		renderResults(&b, v)
	}
	return b.String()
}

func renderWelcome(b *strings.Builder, v session.View) {
	b.WriteString("=== Timed Exam ===\n")
	fmt.Fprintf(b, "Questions:         %d\n", v.TotalQuestions)
	fmt.Fprintf(b, "Time per question: %s\n", v.TimePerQuestion)
	fmt.Fprintf(b, "Total time:        %s\n\n", v.TotalTime)
	b.WriteString("Type: start <student id> <full name>\n")
}

func renderExam(b *strings.Builder, v session.View) {
	fmt.Fprintf(b, "%s (%s)    exam time left %s\n", v.StudentName, v.StudentID, v.ExamTimer)
	fmt.Fprintf(b, "%s  %s %d%%\n", v.Counter, progressBar(v.ProgressPercent), v.ProgressPercent)

	timer := session.FormatClock(v.QuestionTimer)
	if v.Urgent {
		timer = "!! " + timer + " !!"
	}
	fmt.Fprintf(b, "Question time: %s\n\n", timer)

	b.WriteString(v.Prompt + "\n\n")
	for _, o := range v.Options {
		mark := " "
		if o.Selected {
			mark = "x"
		}
		fmt.Fprintf(b, "  [%s] %c) %s\n", mark, 'a'+rune(o.Index), o.Text)
	}
	b.WriteString("\n")

	if v.ShowSubmit {
		b.WriteString("Choose a-d, then submit.\n")
	} else {
		b.WriteString("Choose a-d, then next.\n")
	}
}

func renderResults(b *strings.Builder, v session.View) {
	b.WriteString("=== Results ===\n")
	fmt.Fprintf(b, "Score:      %s\n", v.ScoreText)
	fmt.Fprintf(b, "Correct:    %s\n", v.Correct)
	fmt.Fprintf(b, "Time taken: %s\n", v.TimeTaken)
	if v.SaveStatus != "" {
		b.WriteString(v.SaveStatus + "\n")
	}

	if len(v.Review) > 0 {
		b.WriteString("\nReview:\n")
		for _, item := range v.Review {
			fmt.Fprintf(b, "%2d. [%s] %s\n", item.Number, item.Status, item.Prompt)
			fmt.Fprintf(b, "    Your answer: %s | Correct answer: %s\n", item.YourAnswer, item.CorrectAnswer)
		}
	}
	b.WriteString("\nType restart to take the exam again, or quit.\n")
}

func progressBar(percent int) string {
	filled := percent * barWidth / 100
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

// frameKey identifies what a line-mode terminal needs to reprint. Countdown
// ticks alone do not change it.
func frameKey(v session.View) string {
	return strings.Join([]string{
		string(v.Screen), v.Counter, v.Notice.Text, v.SaveStatus, selectedOption(v), fmt.Sprint(v.Urgent),
	}, "|")
}

func selectedOption(v session.View) string {
	for _, o := range v.Options {
		if o.Selected {
			return fmt.Sprint(o.Index)
		}
	}
	return ""
}
