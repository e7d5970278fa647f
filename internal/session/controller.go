package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var ErrNoResultsStore = errors.New("no results store configured")

// Scheduler runs callbacks on the controller's event loop. Every and After
// return a stop function that is safe to call more than once.
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
	After(d time.Duration, fn func()) (stop func())
	Post(fn func())
}

// Submitter delivers a finished session to the results store.
type Submitter interface {
	Submit(ctx context.Context, req *model.SubmitExamRequest) (int64, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// OnChange registers a callback invoked after every dispatched event.
func OnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller owns one exam session and carries out the effects of its
// transitions. All methods must be called from the scheduler's loop.
type Controller struct {
	ctx       context.Context
	machine   *Machine
	state     State
	sched     Scheduler
	submitter Submitter
	now       func() time.Time
	onChange  func(State)
	log       zerolog.Logger

	stopQuestion func()
	stopExam     func()
	stopGrace    func()
}

// NewController creates an Idle controller.
func NewController(ctx context.Context, m *Machine, sched Scheduler, submitter Submitter, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		ctx:       ctx,
		machine:   m,
		sched:     sched,
		submitter: submitter,
		now:       time.Now,
		log:       log.With().Str("component", "exam_session").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() State { return c.state }

// Machine returns the exam definition driving this controller.
func (c *Controller) Machine() *Machine { return c.machine }

func (c *Controller) Start(name, id string) { c.Dispatch(StartEvent{Name: name, ID: id}) }
func (c *Controller) Select(option int)     { c.Dispatch(SelectEvent{Option: option}) }
func (c *Controller) Advance()              { c.Dispatch(AdvanceEvent{}) }
func (c *Controller) Submit()               { c.Dispatch(SubmitEvent{}) }
func (c *Controller) Restart()              { c.Dispatch(RestartEvent{}) }

// Dispatch applies ev and performs the resulting effects.
func (c *Controller) Dispatch(ev Event) {
	prev := c.state.Phase
	next, effects := c.machine.Step(c.state, ev, c.now())
	c.state = next

	if prev != next.Phase {
		c.log.Debug().
			Str("from", prev.String()).
			Str("to", next.Phase.String()).
			Msg("Session phase changed")
	}

	for _, eff := range effects {
		c.apply(eff)
	}

	if c.onChange != nil {
		c.onChange(c.state)
	}
}

func (c *Controller) apply(eff Effect) {
	switch e := eff.(type) {
	case StartTimersEffect:
		c.stopAll()
		c.stopExam = c.sched.Every(time.Second, func() {
			c.Dispatch(ExamTickEvent{gen: e.gen})
		})
		c.startQuestionTimer(e.gen, e.seq)
	case ResetQuestionTimerEffect:
		stop(&c.stopGrace)
		c.startQuestionTimer(e.gen, e.seq)
	case StopQuestionTimerEffect:
		stop(&c.stopQuestion)
	case ScheduleGraceEffect:
		stop(&c.stopGrace)
		c.stopGrace = c.sched.After(c.machine.cfg.Grace, func() {
			c.Dispatch(GraceElapsedEvent{gen: e.gen, seq: e.seq})
		})
	case StopTimersEffect:
		c.stopAll()
	case EmitResultEffect:
		c.emit(e)
	}
}

func (c *Controller) startQuestionTimer(gen, seq uint64) {
	stop(&c.stopQuestion)
	c.stopQuestion = c.sched.Every(time.Second, func() {
		c.Dispatch(QuestionTickEvent{gen: gen, seq: seq})
	})
}

func (c *Controller) stopAll() {
	stop(&c.stopQuestion)
	stop(&c.stopExam)
	stop(&c.stopGrace)
}

func stop(fn *func()) {
	if *fn != nil {
		(*fn)()
		*fn = nil
	}
}

// emit submits off the loop and posts the outcome back onto it, also when
// no submitter is configured: Post must not run on the loop goroutine. Local
// results stay in the state whatever the outcome.
func (c *Controller) emit(e EmitResultEffect) {
	log := c.log.With().
		Str("school_id", e.Request.SchoolID).
		Int("score", e.Request.Results.Score).
		Logger()

	go func() {
		var id int64
		err := ErrNoResultsStore
		if c.submitter != nil {
			id, err = c.submitter.Submit(c.ctx, e.Request)
		}
		switch {
		case c.submitter == nil:
			log.Warn().Err(err).Msg("Result not submitted")
		case err != nil:
			log.Error().Err(err).Msg("Failed to store exam results")
		default:
			log.Info().Int64("exam_session_id", id).Msg("Exam results stored")
		}
		c.sched.Post(func() {
			c.Dispatch(SubmissionDoneEvent{gen: e.gen, ExamSessionID: id, Err: err})
		})
	}()
}
