// Package tui is the terminal front-end of the exam client.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/session"
	"golang.org/x/term"
)

type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct{ sc *bufio.Scanner }

func (r scannerReader) ReadLine() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// App runs one exam session in a terminal. On a TTY the screen is redrawn
// every tick under an editable prompt; on other inputs, such as a pipe, a
// frame is printed only when something besides the countdowns changes.
type App struct {
	machine   *session.Machine
	submitter session.Submitter
	in        io.Reader
	out       io.Writer
	log       zerolog.Logger

	loop   *session.Loop
	ctrl   *session.Controller
	reader lineReader
	screen io.Writer
	tty    bool
	cancel context.CancelFunc

	// Loop-owned.
	message  string
	lastKey  string
	inputEOF bool
}

// New creates an App reading commands from in and drawing to out.
func New(m *session.Machine, submitter session.Submitter, in io.Reader, out io.Writer, log zerolog.Logger) *App {
	return &App{
		machine:   m,
		submitter: submitter,
		in:        in,
		out:       out,
		log:       log.With().Str("component", "tui").Logger(),
		loop:      session.NewLoop(log),
	}
}

// Run blocks until the user quits, input ends, or ctx is cancelled. When
// input ends while results are still being saved, Run waits for the outcome.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel

	restore, err := a.openTerminal()
	if err != nil {
		return err
	}
	defer restore()

	a.ctrl = session.NewController(ctx, a.machine, a.loop, a.submitter, a.log,
		session.OnChange(func(session.State) { a.changed() }))
	a.loop.Post(a.draw)

	go a.readInput()

	err = a.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) openTerminal() (restore func(), err error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("enter raw mode: %w", err)
		}
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, a.out}, "> ")
		if w, h, err := term.GetSize(fd); err == nil {
			_ = t.SetSize(w, h)
		}
		a.reader, a.screen, a.tty = t, t, true
		return func() { _ = term.Restore(fd, state) }, nil
	}

	a.reader = scannerReader{bufio.NewScanner(a.in)}
	a.screen = a.out
	return func() {}, nil
}

func (a *App) readInput() {
	for {
		line, err := a.reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.log.Warn().Err(err).Msg("Reading input failed")
			}
			a.loop.Post(a.inputClosed)
			return
		}
		a.loop.Post(func() { a.handle(line) })
	}
}

func (a *App) handle(line string) {
	cmd, err := Parse(line)
	a.message = ""
	if err != nil {
		if !errors.Is(err, ErrEmptyCommand) {
			a.message = err.Error()
		}
		a.draw()
		return
	}

	switch cmd.Action {
	case ActionStart:
		a.ctrl.Start(cmd.Name, cmd.StudentID)
	case ActionSelect:
		a.ctrl.Select(cmd.Option)
	case ActionNext:
		a.ctrl.Advance()
	case ActionSubmit:
		a.ctrl.Submit()
	case ActionRestart:
		a.ctrl.Restart()
	case ActionHelp:
		a.message = helpText
		a.draw()
	case ActionQuit:
		a.cancel()
	}
}

func (a *App) inputClosed() {
	a.inputEOF = true
	a.quitIfIdle()
}

func (a *App) changed() {
	a.draw()
	if a.inputEOF {
		a.quitIfIdle()
	}
}

// quitIfIdle stops the app unless a submission is still in flight.
func (a *App) quitIfIdle() {
	if a.ctrl.State().Submission == session.SubmissionPending {
		return
	}
	a.cancel()
}

func (a *App) draw() {
	v := session.Project(a.ctrl.Machine(), a.ctrl.State())
	frame := Render(v)
	if a.message != "" {
		frame += "\n" + a.message + "\n"
	}

	if a.tty {
		_, _ = io.WriteString(a.screen, clearScreen+frame)
		return
	}

	key := frameKey(v) + "|" + a.message
	if key == a.lastKey {
		return
	}
	a.lastKey = key
	_, _ = io.WriteString(a.screen, frame+"\n")
}
