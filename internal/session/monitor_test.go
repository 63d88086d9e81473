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
	"github.com/examhall/examhall-backend/internal/scoring"
)

// fakeStores is an in-memory implementation of every store interface the
// session package depends on. Tests poke its fields to simulate takeovers,
// status flips, and persistence failures.
type fakeStores struct {
	mu sync.Mutex

	sess *model.ExamSession
	sec  *model.SessionSecurity

	heartbeatErr error
	submitErr    error
	resultErr    error

	heartbeats int
	reclaims   int
	submits    int

	answers    map[uuid.UUID]model.Answer
	answerHits map[uuid.UUID]int
	flags      map[uuid.UUID]bool
	results    []scoring.Summary
	violations []string
}

func newFakeStores(sess *model.ExamSession, sec *model.SessionSecurity) *fakeStores {
	return &fakeStores{
		sess:       sess,
		sec:        sec,
		answers:    make(map[uuid.UUID]model.Answer),
		answerHits: make(map[uuid.UUID]int),
		flags:      make(map[uuid.UUID]bool),
	}
}

func (f *fakeStores) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil || f.sess.ID != id {
		return nil, ErrNotFound
	}
	cp := *f.sess
	return &cp, nil
}

func (f *fakeStores) UpdateHeartbeat(ctx context.Context, id uuid.UUID, token string, timeRemaining int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heartbeatErr != nil {
		return f.heartbeatErr
	}
	f.heartbeats++
	if f.sess != nil && f.sess.ID == id && f.sess.SecurityToken == token {
		f.sess.TimeRemaining = timeRemaining
	}
	return nil
}

func (f *fakeStores) MarkSubmitted(ctx context.Context, id uuid.UUID, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submits++
	if f.sess != nil && f.sess.ID == id {
		f.sess.Status = model.SessionStatusSubmitted
		f.sess.Score = &score
	}
	return nil
}

func (f *fakeStores) GetSecurity(ctx context.Context, sessionID uuid.UUID, token string) (*model.SessionSecurity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sec == nil || f.sec.SessionID != sessionID || f.sec.Token != token {
		return nil, ErrNotFound
	}
	cp := *f.sec
	return &cp, nil
}

func (f *fakeStores) Touch(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heartbeatErr != nil {
		return f.heartbeatErr
	}
	if f.sec != nil && f.sec.SessionID == sessionID && f.sec.Token == token {
		f.sec.DeviceFingerprint = fingerprint
		f.sec.LastVerified = time.Now()
	}
	return nil
}

func (f *fakeStores) Reclaim(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reclaims++
	if f.sec != nil && f.sec.SessionID == sessionID && f.sec.Token == token {
		f.sec.DeviceFingerprint = fingerprint
		f.sec.LastVerified = time.Now()
	}
	return nil
}

func (f *fakeStores) Deactivate(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sec != nil && f.sec.SessionID == sessionID {
		f.sec.IsActive = false
	}
	return nil
}

func (f *fakeStores) SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, ans model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[questionID] = ans
	f.answerHits[questionID]++
	return nil
}

func (f *fakeStores) SaveFlag(ctx context.Context, sessionID, questionID uuid.UUID, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[questionID] = flagged
	return nil
}

func (f *fakeStores) SaveResult(ctx context.Context, sess *model.ExamSession, sum scoring.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultErr != nil {
		return f.resultErr
	}
	f.results = append(f.results, sum)
	return nil
}

func (f *fakeStores) RecordViolation(ctx context.Context, sess *model.ExamSession, kind, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations = append(f.violations, kind)
	return nil
}

// securityView adapts fakeStores to SecurityStore without colliding with the
// SessionStore Get method.
type securityView struct{ *fakeStores }

func (s securityView) Get(ctx context.Context, sessionID uuid.UUID, token string) (*model.SessionSecurity, error) {
	return s.GetSecurity(ctx, sessionID, token)
}

func fastMonitorConfig() MonitorConfig {
	return MonitorConfig{
		HeartbeatInterval:   5 * time.Millisecond,
		DeviceCheckInterval: 7 * time.Millisecond,
		StatusCheckInterval: 9 * time.Millisecond,
		StaleThreshold:      50 * time.Millisecond,
		MaxHeartbeatMisses:  3,
	}
}

func testSession(fingerprint string) (*model.ExamSession, *model.SessionSecurity) {
	id := uuid.New()
	sess := &model.ExamSession{
		ID:            id,
		ExamID:        uuid.New(),
		StudentID:     7,
		Status:        model.SessionStatusInProgress,
		TimeRemaining: 600,
		SecurityToken: "tok-1",
		StartedAt:     time.Now(),
	}
	sec := &model.SessionSecurity{
		SessionID:         id,
		Token:             "tok-1",
		DeviceFingerprint: fingerprint,
		IsActive:          true,
		LastVerified:      time.Now(),
	}
	return sess, sec
}

func startMonitor(t *testing.T, f *fakeStores, sess *model.ExamSession, fingerprint string) *Monitor {
	t.Helper()
	return startMonitorWithConfig(t, f, sess, fingerprint, fastMonitorConfig())
}

func startMonitorWithConfig(t *testing.T, f *fakeStores, sess *model.ExamSession, fingerprint string, cfg MonitorConfig) *Monitor {
	t.Helper()
	m := NewMonitor(
		f, securityView{f},
		sess.ID, sess.SecurityToken, fingerprint,
		func() int { return 599 },
		cfg, zerolog.Nop(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	return m
}

func waitTermination(t *testing.T, m *Monitor) Termination {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for termination event")
		return Termination{}
	}
}

func TestMonitor_HeartbeatMissesTerminate(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.heartbeatErr = errors.New("network down")
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")
	ev := waitTermination(t, m)

	if ev.Reason != ReasonConnectionLost {
		t.Fatalf("reason = %q, want connection lost", ev.Reason)
	}
	if m.IsActive() {
		t.Fatal("monitor still active after termination")
	}
}

func TestMonitor_HeartbeatRecoveryResetsMisses(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.heartbeatErr = errors.New("blip")
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")

	// Let a miss accrue, then restore connectivity before the limit.
	time.Sleep(8 * time.Millisecond)
	f.mu.Lock()
	f.heartbeatErr = nil
	f.mu.Unlock()

	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected termination: %q", ev.Reason)
	case <-time.After(60 * time.Millisecond):
	}
	if !m.IsActive() {
		t.Fatal("monitor should survive a transient heartbeat blip")
	}
}

func TestMonitor_DeviceTakeoverNeverReclaimed(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)

	// Another device rebinds the record: new fingerprint, stale timestamp.
	// A takeover must terminate even when the record looks stale.
	f.mu.Lock()
	f.sec.DeviceFingerprint = "fp_intruder"
	f.sec.LastVerified = time.Now().Add(-time.Minute)
	f.mu.Unlock()

	// Heartbeats write the local fingerprint through Touch; keep them off so
	// the device check sees the intruder's record.
	cfg := fastMonitorConfig()
	cfg.HeartbeatInterval = time.Hour
	m := startMonitorWithConfig(t, f, sess, "fp_dev1", cfg)
	ev := waitTermination(t, m)

	if ev.Reason != ReasonDeviceTakeover {
		t.Fatalf("reason = %q, want device takeover", ev.Reason)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reclaims != 0 {
		t.Fatalf("reclaims = %d, want 0 on foreign fingerprint", f.reclaims)
	}
}

func TestMonitor_StaleSameDeviceReclaims(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.sec.LastVerified = time.Now().Add(-time.Minute)
	f.mu.Unlock()

	// Heartbeats refresh last_verified through Touch; keep them off so the
	// device check observes the stale record.
	cfg := fastMonitorConfig()
	cfg.HeartbeatInterval = time.Hour
	m := startMonitorWithConfig(t, f, sess, "fp_dev1", cfg)

	deadline := time.After(time.Second)
	for {
		f.mu.Lock()
		reclaimed := f.reclaims > 0
		f.mu.Unlock()
		if reclaimed {
			break
		}
		select {
		case ev := <-m.Events():
			t.Fatalf("unexpected termination: %q", ev.Reason)
		case <-deadline:
			t.Fatal("stale same-device record was never reclaimed")
		case <-time.After(time.Millisecond):
		}
	}
	if !m.IsActive() {
		t.Fatal("monitor must stay active through a reclaim")
	}
}

func TestMonitor_RevokedSecurityTerminates(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.sec.IsActive = false
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")
	if ev := waitTermination(t, m); ev.Reason != ReasonSecurityRevoked {
		t.Fatalf("reason = %q, want security revoked", ev.Reason)
	}
}

func TestMonitor_StatusFlipTerminates(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.sess.Status = model.SessionStatusTerminated
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")
	if ev := waitTermination(t, m); ev.Reason != ReasonSessionClosed {
		t.Fatalf("reason = %q, want session closed", ev.Reason)
	}
}

func TestMonitor_TokenReassignmentTerminates(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	// A resume on another device rotated the token on the session row. The
	// security lookup for the old token 404s, so either side may fire first;
	// both reasons are a legitimate "you lost the session" outcome. Start the
	// monitor with the original token, then rotate the stored ones.
	m := startMonitor(t, f, sess, "fp_dev1")

	f.mu.Lock()
	f.sess.SecurityToken = "tok-2"
	f.sec.Token = "tok-2"
	f.mu.Unlock()

	ev := waitTermination(t, m)
	if ev.Reason != ReasonSessionReassigned && ev.Reason != ReasonSecurityRevoked {
		t.Fatalf("reason = %q, want reassigned or revoked", ev.Reason)
	}
}

func TestMonitor_TerminationFiresExactlyOnce(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	// Every check fails at once.
	f.mu.Lock()
	f.heartbeatErr = errors.New("down")
	f.sec.IsActive = false
	f.sess.Status = model.SessionStatusTerminated
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")
	waitTermination(t, m)

	select {
	case ev := <-m.Events():
		t.Fatalf("second termination event: %q", ev.Reason)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitor_HeartbeatWritesFingerprint(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	// The stored fingerprint lags the reporting device until a heartbeat
	// writes it through.
	f.mu.Lock()
	f.sec.DeviceFingerprint = "fp_stale"
	f.mu.Unlock()

	cfg := fastMonitorConfig()
	cfg.DeviceCheckInterval = time.Hour
	cfg.StatusCheckInterval = time.Hour
	m := NewMonitor(
		f, securityView{f},
		sess.ID, sess.SecurityToken, "fp_dev1",
		func() int { return 599 },
		cfg, zerolog.Nop(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)

	deadline := time.After(time.Second)
	for {
		f.mu.Lock()
		fp := f.sec.DeviceFingerprint
		f.mu.Unlock()
		if fp == "fp_dev1" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("heartbeat never wrote the device fingerprint")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMonitor_StopEmitsNoEvent(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)

	m := startMonitor(t, f, sess, "fp_dev1")
	m.Stop()
	m.Stop() // idempotent

	select {
	case ev := <-m.Events():
		t.Fatalf("Stop must not emit events, got %q", ev.Reason)
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("run goroutine did not exit after Stop")
	}
	if m.IsActive() {
		t.Fatal("monitor active after Stop")
	}
}

func TestMonitor_SuspendPausesChecks(t *testing.T) {
	sess, sec := testSession("fp_dev1")
	f := newFakeStores(sess, sec)
	f.mu.Lock()
	f.heartbeatErr = errors.New("down")
	f.mu.Unlock()

	m := startMonitor(t, f, sess, "fp_dev1")
	m.Suspend()

	select {
	case ev := <-m.Events():
		t.Fatalf("suspended monitor terminated: %q", ev.Reason)
	case <-time.After(60 * time.Millisecond):
	}
	if m.IsActive() {
		t.Fatal("IsActive must be false while suspended")
	}

	f.mu.Lock()
	f.heartbeatErr = nil
	f.mu.Unlock()
	m.Resume()
	if !m.IsActive() {
		t.Fatal("IsActive must be true after Resume")
	}
}
