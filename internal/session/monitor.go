package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/model"
)

// Reason is the human-readable cause carried by a termination event. The
// engine surfaces it verbatim on the terminated screen, never a raw error.
type Reason string

const (
	ReasonConnectionLost    Reason = "Connection to the exam service was lost."
	ReasonDeviceTakeover    Reason = "This exam session is now active on another device."
	ReasonSecurityRevoked   Reason = "This session's device authorization has been revoked."
	ReasonSessionClosed     Reason = "This exam session is no longer in progress."
	ReasonSessionReassigned Reason = "This exam session has been reassigned to another device."
)

// Termination is the single event a monitor emits when the session must end.
type Termination struct {
	Reason Reason
	At     time.Time
}

// MonitorConfig tunes the monitor's periodic checks.
type MonitorConfig struct {
	HeartbeatInterval   time.Duration
	DeviceCheckInterval time.Duration
	StatusCheckInterval time.Duration
	StaleThreshold      time.Duration
	MaxHeartbeatMisses  int
}

func (c *MonitorConfig) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.DeviceCheckInterval <= 0 {
		c.DeviceCheckInterval = 10 * time.Second
	}
	if c.StatusCheckInterval <= 0 {
		c.StatusCheckInterval = 20 * time.Second
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 15 * time.Second
	}
	if c.MaxHeartbeatMisses <= 0 {
		c.MaxHeartbeatMisses = 3
	}
}

// Monitor guards one exam session while it runs: it heartbeats the session
// and security records, watches for device takeover, and watches the session
// status. Its lifecycle is one-way, active then terminated; termination fires
// at most one event on Events().
type Monitor struct {
	sessions    SessionStore
	security    SecurityStore
	sessionID   uuid.UUID
	token       string
	fingerprint string
	remaining   func() int
	cfg         MonitorConfig
	log         zerolog.Logger

	active    atomic.Bool
	suspended atomic.Bool
	stopOnce  sync.Once
	// stop ends the run loop; created in NewMonitor so Stop and terminate
	// can close it from any goroutine without racing Start.
	stop   chan struct{}
	events chan Termination
	done   chan struct{}

	// misses is only touched from the run goroutine.
	misses int
}

// NewMonitor builds a monitor for one session. remaining supplies the live
// time-remaining snapshot written by heartbeats.
func NewMonitor(
	sessions SessionStore,
	security SecurityStore,
	sessionID uuid.UUID,
	token, fingerprint string,
	remaining func() int,
	cfg MonitorConfig,
	log zerolog.Logger,
) *Monitor {
	cfg.applyDefaults()
	m := &Monitor{
		sessions:    sessions,
		security:    security,
		sessionID:   sessionID,
		token:       token,
		fingerprint: fingerprint,
		remaining:   remaining,
		cfg:         cfg,
		log:         log.With().Str("component", "session_monitor").Str("session_id", sessionID.String()).Logger(),
		stop:        make(chan struct{}),
		events:      make(chan Termination, 1),
		done:        make(chan struct{}),
	}
	m.active.Store(true)
	return m
}

// Start launches the periodic checks. Call once.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Events yields at most one termination event over the monitor's lifetime.
func (m *Monitor) Events() <-chan Termination {
	return m.events
}

// IsActive reports whether locally-cached session state may still be trusted.
// Callers must consult it before persisting answers or allowing submission.
func (m *Monitor) IsActive() bool {
	return m.active.Load() && !m.suspended.Load()
}

// Suspend pauses all checks without ending the monitor. The submission
// routine suspends synchronously before tearing the session down so that no
// heartbeat or ownership tick can resurrect it mid-teardown.
func (m *Monitor) Suspend() { m.suspended.Store(true) }

// Resume lifts a Suspend after a failed submission so the session can retry.
func (m *Monitor) Resume() { m.suspended.Store(false) }

// Stop ends the monitor without emitting a termination event. Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.active.Store(false)
		close(m.stop)
	})
}

// Done is closed when the run goroutine has exited.
func (m *Monitor) Done() <-chan struct{} { return m.done }

func (m *Monitor) terminate(reason Reason) {
	m.stopOnce.Do(func() {
		m.active.Store(false)
		close(m.stop)
		m.log.Warn().Str("reason", string(reason)).Msg("Session terminated")
		m.events <- Termination{Reason: reason, At: time.Now()}
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	heartbeat := time.NewTicker(m.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	device := time.NewTicker(m.cfg.DeviceCheckInterval)
	defer device.Stop()
	status := time.NewTicker(m.cfg.StatusCheckInterval)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-heartbeat.C:
			if m.IsActive() {
				m.heartbeat(ctx)
			}
		case <-device.C:
			if m.IsActive() {
				m.checkDevice(ctx)
			}
		case <-status.C:
			if m.IsActive() {
				m.checkStatus(ctx)
			}
		}
	}
}

// heartbeat refreshes the session's time_remaining and the security record's
// last_verified timestamp. Consecutive failures are the de facto timeout for
// connectivity loss.
func (m *Monitor) heartbeat(ctx context.Context) {
	errSession := m.sessions.UpdateHeartbeat(ctx, m.sessionID, m.token, m.remaining())
	errSecurity := m.security.Touch(ctx, m.sessionID, m.token, m.fingerprint)

	if errSession != nil || errSecurity != nil {
		m.misses++
		m.log.Warn().
			AnErr("session_err", errSession).
			AnErr("security_err", errSecurity).
			Int("consecutive_misses", m.misses).
			Msg("Heartbeat failed")
		if m.misses >= m.cfg.MaxHeartbeatMisses {
			m.terminate(ReasonConnectionLost)
		}
		return
	}
	m.misses = 0
}

// checkDevice verifies this device still owns the session. A stale record
// with a matching fingerprint is reclaimed (transient connectivity gap); a
// foreign fingerprint is a hard takeover and is never reclaimed.
func (m *Monitor) checkDevice(ctx context.Context) {
	rec, err := m.security.Get(ctx, m.sessionID, m.token)
	if errors.Is(err, ErrNotFound) {
		m.terminate(ReasonSecurityRevoked)
		return
	}
	if err != nil {
		// Transient read failure; the heartbeat miss counter owns timeouts.
		m.log.Warn().Err(err).Msg("Device check read failed")
		return
	}

	if !rec.IsActive {
		m.terminate(ReasonSecurityRevoked)
		return
	}
	if rec.DeviceFingerprint != m.fingerprint {
		m.terminate(ReasonDeviceTakeover)
		return
	}
	if time.Since(rec.LastVerified) > m.cfg.StaleThreshold {
		if err := m.security.Reclaim(ctx, m.sessionID, m.token, m.fingerprint); err != nil {
			m.log.Warn().Err(err).Msg("Reclaim failed")
		} else {
			m.log.Info().Msg("Reclaimed stale session ownership")
		}
	}
}

// checkStatus verifies the session row itself is still live and still bound
// to this monitor's token.
func (m *Monitor) checkStatus(ctx context.Context) {
	sess, err := m.sessions.Get(ctx, m.sessionID)
	if errors.Is(err, ErrNotFound) {
		m.terminate(ReasonSessionClosed)
		return
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("Status check read failed")
		return
	}

	if sess.Status != model.SessionStatusInProgress {
		m.terminate(ReasonSessionClosed)
		return
	}
	if sess.SecurityToken != m.token {
		m.terminate(ReasonSessionReassigned)
	}
}
