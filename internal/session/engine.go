// Package session implements the exam session engine: the state machine that
// conducts one student's timed attempt, plus the monitor that guards its
// single-device occupancy.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/scoring"
)

// State enumerates the engine's lifecycle states.
type State string

const (
	StateLoading      State = "loading"
	StateInstructions State = "instructions"
	StateInProgress   State = "in_progress"
	StateCompleted    State = "completed"
	StateTerminated   State = "terminated"
)

// Violation kinds reported by the client runtime.
const (
	ViolationFullscreenExit = "fullscreen_exit"
	ViolationTabHidden      = "tab_hidden"
)

var (
	// ErrSessionNotActive means the monitor no longer vouches for the
	// session; locally-cached state must not be trusted or persisted.
	ErrSessionNotActive = errors.New("exam session is no longer active")
	// ErrSubmitInFlight means a submission is already running.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrQuestionIndex means an answer referenced a question slot that does
	// not exist.
	ErrQuestionIndex = errors.New("question index out of range")
)

// Config tunes the engine's timers.
type Config struct {
	// Tick is the countdown resolution.
	Tick time.Duration
	// SaveThrottle bounds write-through amplification to one persisted write
	// per second per question during rapid input.
	SaveThrottle time.Duration
	// WarnDebounce prevents re-raising the fullscreen warning more than once
	// per window of continued violation.
	WarnDebounce time.Duration
}

func (c *Config) applyDefaults() {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.SaveThrottle <= 0 {
		c.SaveThrottle = time.Second
	}
	if c.WarnDebounce <= 0 {
		c.WarnDebounce = 5 * time.Second
	}
}

// Params carries everything needed to build an Engine.
type Params struct {
	Exam      *model.Exam
	Session   *model.ExamSession
	Questions []model.Question // realized (shuffled) order
	Answers   []model.Answer   // fresh or restored, parallel to Questions
	Flags     []bool           // parallel to Questions; nil means all false

	Fingerprint string

	Sessions   SessionStore
	Security   SecurityStore
	AnswerSink AnswerSink
	ResultSink ResultSink
	Violations ViolationSink

	Monitor MonitorConfig
	Config  Config
	Clock   func() time.Time
	Log     zerolog.Logger
}

// Snapshot is a point-in-time view of the engine for state queries.
type Snapshot struct {
	State         State            `json:"state"`
	TimeRemaining int              `json:"time_remaining"`
	Answers       []model.Answer   `json:"answers"`
	Flags         []bool           `json:"flags"`
	Summary       *scoring.Summary `json:"summary,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}

// Engine owns one in-progress exam session. All mutation flows through it;
// periodic tasks (countdown, monitor checks) message into it rather than
// sharing ambient mutable state.
type Engine struct {
	exam      *model.Exam
	sess      *model.ExamSession
	questions []model.Question

	mu        sync.Mutex
	state     State
	answers   []model.Answer
	flags     []bool
	lastSaved []time.Time
	lastWarn  time.Time
	summary   *scoring.Summary
	reason    string

	remaining  atomic.Int64
	submitting atomic.Bool
	autoOnce   sync.Once

	monitor    *Monitor
	sessions   SessionStore
	security   SecurityStore
	answerSink AnswerSink
	resultSink ResultSink
	violations ViolationSink

	cfg   Config
	clock func() time.Time
	log   zerolog.Logger

	// stop releases the run loop; created in New so Submit and terminate
	// can close it from any goroutine without racing Run's startup.
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New builds an engine already in the in-progress state. The instructions
// step, entry validation, and session creation/resumption happen before
// construction; the engine only conducts a session that is live.
func New(p Params) *Engine {
	p.Config.applyDefaults()
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Flags == nil {
		p.Flags = make([]bool, len(p.Questions))
	}

	e := &Engine{
		exam:       p.Exam,
		sess:       p.Session,
		questions:  p.Questions,
		state:      StateInProgress,
		answers:    p.Answers,
		flags:      p.Flags,
		lastSaved:  make([]time.Time, len(p.Questions)),
		sessions:   p.Sessions,
		security:   p.Security,
		answerSink: p.AnswerSink,
		resultSink: p.ResultSink,
		violations: p.Violations,
		cfg:        p.Config,
		clock:      p.Clock,
		log: p.Log.With().
			Str("component", "session_engine").
			Str("session_id", p.Session.ID.String()).
			Int("student_id", p.Session.StudentID).
			Logger(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	// Resumed time_remaining takes precedence over duration*60; the service
	// sets Session.TimeRemaining accordingly before construction.
	e.remaining.Store(int64(p.Session.TimeRemaining))

	e.monitor = NewMonitor(
		p.Sessions, p.Security,
		p.Session.ID, p.Session.SecurityToken, p.Fingerprint,
		func() int { return int(e.remaining.Load()) },
		p.Monitor, p.Log,
	)
	return e
}

// Run starts the monitor and the countdown and blocks until the session
// exits. Call in a goroutine.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	e.monitor.Start(ctx)

	tick := time.NewTicker(e.cfg.Tick)
	defer tick.Stop()

	e.log.Info().Int64("time_remaining", e.remaining.Load()).Msg("Session engine running")

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case t := <-e.monitor.Events():
			e.terminate(string(t.Reason))
			return
		case <-tick.C:
			if rem := e.remaining.Add(-1); rem <= 0 {
				e.remaining.Store(0)
				// One-shot even if the tick fires again before teardown.
				e.autoOnce.Do(func() {
					go func() {
						if err := e.Submit(context.Background(), true); err != nil {
							e.log.Error().Err(err).Msg("Auto-submit failed")
						}
					}()
				})
			}
		}
	}
}

// Done is closed when the engine's run loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// SessionID identifies the session this engine conducts.
func (e *Engine) SessionID() string { return e.sess.ID.String() }

// SessionUUID identifies the session this engine conducts.
func (e *Engine) SessionUUID() uuid.UUID { return e.sess.ID }

// StudentID identifies the student sitting this session.
func (e *Engine) StudentID() int { return e.sess.StudentID }

// StudentQuestions returns the realized question sequence with grading keys
// stripped, in the order this student sees it.
func (e *Engine) StudentQuestions() []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, len(e.questions))
	for i := range e.questions {
		out[i] = e.questions[i].ForStudent()
	}
	return out
}

// Monitor exposes the session monitor for IsActive queries.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// TimeRemaining returns the countdown in seconds.
func (e *Engine) TimeRemaining() int { return int(e.remaining.Load()) }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a copy of the engine's observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	answers := make([]model.Answer, len(e.answers))
	copy(answers, e.answers)
	flags := make([]bool, len(e.flags))
	copy(flags, e.flags)

	snap := Snapshot{
		State:         e.state,
		TimeRemaining: int(e.remaining.Load()),
		Answers:       answers,
		Flags:         flags,
		Reason:        e.reason,
	}
	if e.summary != nil && e.exam.ShowResults {
		s := *e.summary
		snap.Summary = &s
	}
	return snap
}

// Summary returns the grading summary after completion, regardless of the
// exam's show_results flag. Teacher-facing callers use this.
func (e *Engine) Summary() *scoring.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary == nil {
		return nil
	}
	s := *e.summary
	return &s
}

// SaveAnswer records an answer mutation and writes it through, throttled to
// one persisted write per SaveThrottle per question. The local store stays
// the source of truth; persistence failures are logged and swallowed.
func (e *Engine) SaveAnswer(ctx context.Context, index int, ans model.Answer) error {
	if !e.monitor.IsActive() {
		return ErrSessionNotActive
	}

	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return ErrSessionNotActive
	}
	if index < 0 || index >= len(e.questions) {
		e.mu.Unlock()
		return ErrQuestionIndex
	}

	e.answers[index] = ans
	questionID := e.questions[index].ID

	now := e.clock()
	throttled := now.Sub(e.lastSaved[index]) < e.cfg.SaveThrottle
	if !throttled {
		e.lastSaved[index] = now
	}
	e.mu.Unlock()

	if throttled {
		return nil
	}
	if err := e.answerSink.SaveAnswer(ctx, e.sess.ID, questionID, ans); err != nil {
		e.log.Warn().Err(err).Int("question_index", index).Msg("Answer write-through failed")
	}
	return nil
}

// ToggleFlag records a bookmark toggle. Flags are rare, so they persist
// immediately without throttling.
func (e *Engine) ToggleFlag(ctx context.Context, index int, flagged bool) error {
	if !e.monitor.IsActive() {
		return ErrSessionNotActive
	}

	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return ErrSessionNotActive
	}
	if index < 0 || index >= len(e.questions) {
		e.mu.Unlock()
		return ErrQuestionIndex
	}
	e.flags[index] = flagged
	questionID := e.questions[index].ID
	e.mu.Unlock()

	if err := e.answerSink.SaveFlag(ctx, e.sess.ID, questionID, flagged); err != nil {
		e.log.Warn().Err(err).Int("question_index", index).Msg("Flag write-through failed")
	}
	return nil
}

// ReportViolation records a proctoring event. It returns whether the client
// should raise the blocking fullscreen warning; the debounce window keeps a
// continued violation from re-raising it every report. Violations never
// terminate the session by themselves.
func (e *Engine) ReportViolation(ctx context.Context, kind, detail string) (bool, error) {
	if !e.monitor.IsActive() {
		return false, ErrSessionNotActive
	}

	if err := e.violations.RecordViolation(ctx, e.sess, kind, detail); err != nil {
		e.log.Warn().Err(err).Str("kind", kind).Msg("Violation record failed")
	}

	if kind != ViolationFullscreenExit || !e.exam.FullscreenRequired {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()
	if now.Sub(e.lastWarn) < e.cfg.WarnDebounce {
		return false, nil
	}
	e.lastWarn = now
	return true, nil
}

// Submit grades the attempt and tears the session down. Manual and automatic
// submission funnel through here; an in-flight guard makes concurrent calls a
// no-op. On persistence failure the session rolls back to in-progress and the
// guard is released so submission can be retried.
func (e *Engine) Submit(ctx context.Context, isAuto bool) error {
	if !e.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer e.submitting.Store(false)

	if !e.monitor.IsActive() {
		return ErrSessionNotActive
	}

	e.mu.Lock()
	if e.state != StateInProgress {
		e.mu.Unlock()
		return ErrSessionNotActive
	}
	answers := make([]model.Answer, len(e.answers))
	copy(answers, e.answers)
	e.mu.Unlock()

	// Suspend the monitor before touching the stores so no heartbeat or
	// ownership tick can resurrect a session mid-teardown.
	e.monitor.Suspend()

	sum := scoring.Calculate(e.questions, answers)

	if err := e.persistSubmission(ctx, &sum); err != nil {
		e.monitor.Resume()
		return fmt.Errorf("persist submission: %w", err)
	}

	e.mu.Lock()
	e.state = StateCompleted
	e.summary = &sum
	e.mu.Unlock()

	e.monitor.Stop()
	e.shutdown()

	e.log.Info().
		Bool("auto", isAuto).
		Float64("score", sum.TotalMarks).
		Int("percent", sum.Percent).
		Msg("Session submitted")
	return nil
}

func (e *Engine) persistSubmission(ctx context.Context, sum *scoring.Summary) error {
	if err := e.sessions.MarkSubmitted(ctx, e.sess.ID, sum.TotalMarks); err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if err := e.resultSink.SaveResult(ctx, e.sess, *sum); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := e.security.Deactivate(ctx, e.sess.ID); err != nil {
		// The session row is already SUBMITTED; a dangling active security
		// record is harmless because the status check side terminates it.
		e.log.Warn().Err(err).Msg("Security deactivate failed after submit")
	}
	return nil
}

// terminate is the single dead-end transition. Idempotent: later monitor
// events or duplicate calls are no-ops.
func (e *Engine) terminate(reason string) {
	e.mu.Lock()
	if e.state == StateCompleted || e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	e.state = StateTerminated
	e.reason = reason
	e.mu.Unlock()

	e.monitor.Stop()
	e.shutdown()
	e.log.Warn().Str("reason", reason).Msg("Session terminated")
}

// shutdown releases the run loop. Idempotent and safe from any goroutine,
// including before Run has started.
func (e *Engine) shutdown() {
	e.stopOnce.Do(func() { close(e.stop) })
}
