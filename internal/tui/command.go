package tui

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command, type help")
)

// Action is what a typed line asks for.
type Action int

const (
	ActionStart Action = iota + 1
	ActionSelect
	ActionNext
	ActionSubmit
	ActionRestart
	ActionHelp
	ActionQuit
)

// Command is one parsed input line.
type Command struct {
	Action Action
	// Start.
	StudentID string
	Name      string
	// Select. Zero-based.
	Option int
}

// verbs are the commands that take no arguments.
var verbs = map[string]Action{
	"next": ActionNext, "n": ActionNext,
	"submit": ActionSubmit, "s": ActionSubmit, "finish": ActionSubmit,
	"restart": ActionRestart, "r": ActionRestart,
	"help": ActionHelp, "h": ActionHelp, "?": ActionHelp,
	"quit": ActionQuit, "q": ActionQuit, "exit": ActionQuit,
}

// Parse turns a typed line into a Command. Accepted forms:
//
//	start <student id> <full name>
//	a..d | 1..4 | select <a..d|1..4>
//	next | n, submit | s, restart | r, help | h | ?, quit | q | exit
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	verb := strings.ToLower(fields[0])
	switch verb {
	case "start", "begin":
		cmd := Command{Action: ActionStart}
		if len(fields) > 1 {
			cmd.StudentID = fields[1]
		}
		if len(fields) > 2 {
			cmd.Name = strings.Join(fields[2:], " ")
		}
		return cmd, nil
	case "select", "answer":
		if len(fields) != 2 {
			return Command{}, ErrUnknownCommand
		}
		return parseOption(fields[1])
	}

	if action, ok := verbs[verb]; ok {
		if len(fields) != 1 {
			return Command{}, ErrUnknownCommand
		}
		return Command{Action: action}, nil
	}

	if len(fields) == 1 {
		return parseOption(verb)
	}
	return Command{}, ErrUnknownCommand
}

// parseOption accepts a single letter (a = first) or digit (1 = first).
func parseOption(s string) (Command, error) {
	if len(s) != 1 {
		return Command{}, ErrUnknownCommand
	}
	c := s[0]
	switch {
	case c >= 'a' && c <= 'z':
		return Command{Action: ActionSelect, Option: int(c - 'a')}, nil
	case c >= 'A' && c <= 'Z':
		return Command{Action: ActionSelect, Option: int(c - 'A')}, nil
	case c >= '1' && c <= '9':
		return Command{Action: ActionSelect, Option: int(c - '1')}, nil
	}
	return Command{}, ErrUnknownCommand
}

const helpText = `Commands:
  start <student id> <full name>   begin the exam
  a-d or 1-4                       choose an option
  next (n)                         go to the next question
  submit (s)                       finish the exam
  restart (r)                      back to the welcome screen
  quit (q)                         leave`
