package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
	SessionStatusTerminated SessionStatus = "TERMINATED"
)

// ExamSession represents one student's timed attempt at one exam. The
// SecurityToken is an opaque secret binding the session to the device that
// created or last resumed it; heartbeats and security checks are conditioned
// on it.
type ExamSession struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StudentID     int           `json:"student_id"`
	Status        SessionStatus `json:"status"`
	TimeRemaining int           `json:"time_remaining"` // seconds
	SecurityToken string        `json:"-"`
	QuestionOrder []string      `json:"question_order,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
	Score         *float64      `json:"score,omitempty"`
}

// SessionSecurity is the device-binding side channel of an exam session. A
// session is valid for a device iff a record exists with a matching
// session_id+token, IsActive is true, and DeviceFingerprint equals the
// device's own fingerprint.
type SessionSecurity struct {
	SessionID         uuid.UUID `json:"session_id"`
	Token             string    `json:"-"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IsActive          bool      `json:"is_active"`
	LastVerified      time.Time `json:"last_verified"`
}

// StartExamRequest is the payload for entering (or resuming) an exam.
type StartExamRequest struct {
	ExamCode string             `json:"exam_code" binding:"required,min=4,max=20"`
	Signals  FingerprintSignals `json:"signals"`
}

// FingerprintSignals carries the client-reported environment used to derive
// the device fingerprint. All fields are optional; missing signals degrade the
// fingerprint, they never fail it.
type FingerprintSignals struct {
	UserAgent           string `json:"user_agent"`
	Language            string `json:"language"`
	ScreenWidth         int    `json:"screen_width"`
	ScreenHeight        int    `json:"screen_height"`
	ColorDepth          int    `json:"color_depth"`
	TimezoneOffset      int    `json:"timezone_offset"`
	CookiesEnabled      bool   `json:"cookies_enabled"`
	DoNotTrack          string `json:"do_not_track"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	Platform            string `json:"platform"`
}
