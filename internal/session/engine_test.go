package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func intp(v int) *int { return &v }

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.New(),
			QuestionType: model.QuestionTypeMCQ,
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Marks:        1,
		}
	}
	return qs
}

type engineFixture struct {
	engine *Engine
	stores *fakeStores
	clock  *fakeClock
	qs     []model.Question
}

func newEngineFixture(t *testing.T, mutate func(*Params)) *engineFixture {
	t.Helper()

	sess, sec := testSession("fp_dev1")
	stores := newFakeStores(sess, sec)
	clock := newFakeClock()
	qs := testQuestions(3)

	exam := &model.Exam{
		ID:                 sess.ExamID,
		Code:               "MATH01",
		Title:              "Unit Test",
		DurationMinutes:    10,
		FullscreenRequired: true,
		ShowResults:        true,
		Active:             true,
	}

	p := Params{
		Exam:        exam,
		Session:     sess,
		Questions:   qs,
		Answers:     model.InitializeAnswers(qs),
		Fingerprint: "fp_dev1",
		Sessions:    stores,
		Security:    securityView{stores},
		AnswerSink:  stores,
		ResultSink:  stores,
		Violations:  stores,
		Monitor:     fastMonitorConfig(),
		Config: Config{
			Tick:         5 * time.Millisecond,
			SaveThrottle: time.Second,
			WarnDebounce: 5 * time.Second,
		},
		Clock: clock.Now,
		Log:   zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&p)
	}

	return &engineFixture{engine: New(p), stores: stores, clock: clock, qs: p.Questions}
}

func (fx *engineFixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go fx.engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-fx.engine.Done():
		case <-time.After(time.Second):
			t.Error("engine run loop did not exit")
		}
	})
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for e.State() != want {
		select {
		case <-deadline:
			t.Fatalf("state = %q, want %q", e.State(), want)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestEngine_ManualSubmit(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	if err := e.SaveAnswer(context.Background(), 0, model.Answer{Selected: intp(1)}); err != nil {
		t.Fatalf("save answer: %v", err)
	}
	if err := e.Submit(context.Background(), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if e.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", e.State())
	}
	sum := e.Summary()
	if sum == nil {
		t.Fatal("summary missing after submit")
	}
	if sum.TotalMarks != 1 || sum.TotalPossibleMarks != 3 {
		t.Fatalf("marks = %v/%v, want 1/3", sum.TotalMarks, sum.TotalPossibleMarks)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.submits != 1 {
		t.Fatalf("submits = %d, want 1", fx.stores.submits)
	}
	if len(fx.stores.results) != 1 {
		t.Fatalf("results = %d, want 1", len(fx.stores.results))
	}
	if fx.stores.sec.IsActive {
		t.Fatal("security record still active after submit")
	}
	if fx.stores.sess.Status != model.SessionStatusSubmitted {
		t.Fatalf("session status = %q, want SUBMITTED", fx.stores.sess.Status)
	}
}

func TestEngine_AutoSubmitExactlyOnce(t *testing.T) {
	fx := newEngineFixture(t, func(p *Params) {
		p.Session.TimeRemaining = 1
	})
	fx.run(t)

	waitState(t, fx.engine, StateCompleted)

	// Give any stray duplicate submission time to land.
	time.Sleep(30 * time.Millisecond)

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.submits != 1 {
		t.Fatalf("submits = %d, want exactly 1", fx.stores.submits)
	}
	if len(fx.stores.results) != 1 {
		t.Fatalf("results = %d, want exactly 1", len(fx.stores.results))
	}
}

func TestEngine_SubmitRollbackOnPersistFailure(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	fx.stores.mu.Lock()
	fx.stores.submitErr = errors.New("db down")
	fx.stores.mu.Unlock()

	if err := e.Submit(context.Background(), false); err == nil {
		t.Fatal("submit should fail when persistence fails")
	}
	if e.State() != StateInProgress {
		t.Fatalf("state = %q, want rollback to in_progress", e.State())
	}
	if !e.monitor.IsActive() {
		t.Fatal("monitor must resume after failed submit")
	}

	// Retry succeeds once the store recovers.
	fx.stores.mu.Lock()
	fx.stores.submitErr = nil
	fx.stores.mu.Unlock()

	if err := e.Submit(context.Background(), false); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if e.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", e.State())
	}
}

func TestEngine_DoubleSubmitRejected(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	if err := e.Submit(context.Background(), false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := e.Submit(context.Background(), false); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("second submit err = %v, want not-active", err)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.submits != 1 {
		t.Fatalf("submits = %d, want 1", fx.stores.submits)
	}
}

func TestEngine_SubmitReleasesRunLoop(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	// Submit deliberately races Run's startup; the run loop must wind down
	// either way.
	if err := e.Submit(context.Background(), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("run loop still live after submit")
	}
	select {
	case <-e.Monitor().Done():
	case <-time.After(time.Second):
		t.Fatal("monitor still live after submit")
	}
}

func TestEngine_SaveAnswerThrottled(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine
	qid := fx.qs[0].ID

	// Rapid edits inside the throttle window persist once.
	for i := 0; i < 5; i++ {
		if err := e.SaveAnswer(context.Background(), 0, model.Answer{Selected: intp(i % 4)}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	fx.stores.mu.Lock()
	hits := fx.stores.answerHits[qid]
	fx.stores.mu.Unlock()
	if hits != 1 {
		t.Fatalf("persisted writes = %d, want 1 inside throttle window", hits)
	}

	// The local slot still holds the latest value.
	snap := e.Snapshot()
	if snap.Answers[0].Selected == nil || *snap.Answers[0].Selected != 0 {
		t.Fatalf("local answer = %+v, want latest selection 0", snap.Answers[0])
	}

	fx.clock.Advance(1100 * time.Millisecond)
	if err := e.SaveAnswer(context.Background(), 0, model.Answer{Selected: intp(3)}); err != nil {
		t.Fatalf("save after window: %v", err)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.answerHits[qid] != 2 {
		t.Fatalf("persisted writes = %d, want 2 after window elapsed", fx.stores.answerHits[qid])
	}
	if got := fx.stores.answers[qid]; got.Selected == nil || *got.Selected != 3 {
		t.Fatalf("persisted answer = %+v, want selection 3", got)
	}
}

func TestEngine_ThrottleIsPerQuestion(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	if err := e.SaveAnswer(context.Background(), 0, model.Answer{Selected: intp(1)}); err != nil {
		t.Fatalf("save q0: %v", err)
	}
	if err := e.SaveAnswer(context.Background(), 1, model.Answer{Selected: intp(2)}); err != nil {
		t.Fatalf("save q1: %v", err)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.answerHits[fx.qs[0].ID] != 1 || fx.stores.answerHits[fx.qs[1].ID] != 1 {
		t.Fatal("saves to different questions must not throttle each other")
	}
}

func TestEngine_ToggleFlagUnthrottled(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine
	qid := fx.qs[2].ID

	if err := e.ToggleFlag(context.Background(), 2, true); err != nil {
		t.Fatalf("flag on: %v", err)
	}
	if err := e.ToggleFlag(context.Background(), 2, false); err != nil {
		t.Fatalf("flag off: %v", err)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if fx.stores.flags[qid] {
		t.Fatal("second toggle was dropped")
	}
}

func TestEngine_AnswerIndexValidation(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	if err := e.SaveAnswer(context.Background(), -1, model.Answer{}); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("err = %v, want question index error", err)
	}
	if err := e.SaveAnswer(context.Background(), len(fx.qs), model.Answer{}); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("err = %v, want question index error", err)
	}
}

func TestEngine_ViolationDebounce(t *testing.T) {
	fx := newEngineFixture(t, nil)
	e := fx.engine

	warn, err := e.ReportViolation(context.Background(), ViolationFullscreenExit, "exited fullscreen")
	if err != nil || !warn {
		t.Fatalf("first violation: warn=%v err=%v, want warning", warn, err)
	}

	warn, err = e.ReportViolation(context.Background(), ViolationFullscreenExit, "still out")
	if err != nil || warn {
		t.Fatalf("debounced violation: warn=%v err=%v, want suppressed", warn, err)
	}

	fx.clock.Advance(6 * time.Second)
	warn, err = e.ReportViolation(context.Background(), ViolationFullscreenExit, "out again")
	if err != nil || !warn {
		t.Fatalf("post-window violation: warn=%v err=%v, want warning", warn, err)
	}

	// Tab switches are recorded but never raise the fullscreen warning.
	warn, err = e.ReportViolation(context.Background(), ViolationTabHidden, "tab hidden")
	if err != nil || warn {
		t.Fatalf("tab violation: warn=%v err=%v, want recorded without warning", warn, err)
	}

	fx.stores.mu.Lock()
	defer fx.stores.mu.Unlock()
	if len(fx.stores.violations) != 4 {
		t.Fatalf("recorded violations = %d, want all 4", len(fx.stores.violations))
	}
}

func TestEngine_TakeoverTerminates(t *testing.T) {
	// Heartbeats write the local fingerprint through Touch; keep them off so
	// the device check sees the intruder's record.
	fx := newEngineFixture(t, func(p *Params) {
		p.Monitor.HeartbeatInterval = time.Hour
	})
	fx.run(t)

	fx.stores.mu.Lock()
	fx.stores.sec.DeviceFingerprint = "fp_intruder"
	fx.stores.mu.Unlock()

	waitState(t, fx.engine, StateTerminated)

	snap := fx.engine.Snapshot()
	if snap.Reason != string(ReasonDeviceTakeover) {
		t.Fatalf("reason = %q, want device takeover message", snap.Reason)
	}

	if err := fx.engine.SaveAnswer(context.Background(), 0, model.Answer{Selected: intp(1)}); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("save after termination err = %v, want not-active", err)
	}
	if err := fx.engine.Submit(context.Background(), false); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("submit after termination err = %v, want not-active", err)
	}
}

func TestEngine_SnapshotHidesSummaryWhenResultsDisabled(t *testing.T) {
	fx := newEngineFixture(t, func(p *Params) {
		p.Exam.ShowResults = false
	})
	e := fx.engine

	if err := e.Submit(context.Background(), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if snap := e.Snapshot(); snap.Summary != nil {
		t.Fatal("snapshot leaked summary with results disabled")
	}
	if e.Summary() == nil {
		t.Fatal("teacher-facing summary accessor must still return the result")
	}
}

func TestEngine_CountdownDrivesHeartbeatValue(t *testing.T) {
	fx := newEngineFixture(t, func(p *Params) {
		p.Session.TimeRemaining = 600
	})
	fx.run(t)

	deadline := time.After(2 * time.Second)
	for fx.engine.TimeRemaining() >= 600 {
		select {
		case <-deadline:
			t.Fatal("countdown never ticked")
		case <-time.After(time.Millisecond):
		}
	}
}
