package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

var ErrNoQuestions = errors.New("question set is empty")

// DefaultQuestions returns the built-in reference question set.
func DefaultQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Prompt: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, CorrectAnswer: 2},
		{ID: 2, Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectAnswer: 1},
		{ID: 3, Prompt: "What is the largest ocean on Earth?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectAnswer: 3},
		{ID: 4, Prompt: "Who wrote 'Romeo and Juliet'?", Options: []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"}, CorrectAnswer: 1},
		{ID: 5, Prompt: "What is the chemical symbol for gold?", Options: []string{"Ag", "Au", "Fe", "Cu"}, CorrectAnswer: 1},
		{ID: 6, Prompt: "Which year did World War II end?", Options: []string{"1943", "1944", "1945", "1946"}, CorrectAnswer: 2},
		{ID: 7, Prompt: "What is the square root of 144?", Options: []string{"10", "11", "12", "13"}, CorrectAnswer: 2},
		{ID: 8, Prompt: "Which country is home to the kangaroo?", Options: []string{"New Zealand", "South Africa", "Australia", "India"}, CorrectAnswer: 2},
		{ID: 9, Prompt: "What is the main component of the sun?", Options: []string{"Liquid lava", "Molten iron", "Hydrogen gas", "Solid rock"}, CorrectAnswer: 2},
		{ID: 10, Prompt: "How many sides does a hexagon have?", Options: []string{"5", "6", "7", "8"}, CorrectAnswer: 1},
	}
}

// LoadQuestions decodes a JSON array of questions and validates every entry.
func LoadQuestions(r io.Reader) ([]model.Question, error) {
	var qs []model.Question
	if err := json.NewDecoder(r).Decode(&qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := validateQuestions(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func validateQuestions(qs []model.Question) error {
	if len(qs) == 0 {
		return ErrNoQuestions
	}
	for i := range qs {
		if err := validator.Check(qs[i]); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
