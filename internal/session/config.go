package session

import "time"

// Config holds the exam timing budgets.
type Config struct {
	// PerQuestion is the countdown for each question. The whole exam gets
	// PerQuestion * number of questions.
	PerQuestion time.Duration
	// Warning marks the countdown as urgent once the remaining time drops to it.
	Warning time.Duration
	// Grace is the pause between a question timing out and the automatic advance.
	Grace time.Duration
}

// DefaultConfig returns the stock timing: 60s per question, urgent at 10s,
// 1.5s grace before auto-advance.
func DefaultConfig() Config {
	return Config{
		PerQuestion: 60 * time.Second,
		Warning:     10 * time.Second,
		Grace:       1500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PerQuestion < time.Second {
		c.PerQuestion = def.PerQuestion
	}
	if c.Warning < 0 {
		c.Warning = def.Warning
	}
	if c.Grace <= 0 {
		c.Grace = def.Grace
	}
	return c
}

func (c Config) perQuestionSeconds() int {
	return int(c.PerQuestion / time.Second)
}

func (c Config) warningSeconds() int {
	return int(c.Warning / time.Second)
}
