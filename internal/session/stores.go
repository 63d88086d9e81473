package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/scoring"
)

// ErrNotFound is returned by stores when a looked-up record does not exist.
// Repository implementations translate their driver's no-rows error into it.
var ErrNotFound = errors.New("record not found")

// SessionStore is the engine's view of exam session persistence.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	// UpdateHeartbeat refreshes time_remaining and last activity, conditioned
	// on the security token still matching.
	UpdateHeartbeat(ctx context.Context, id uuid.UUID, token string, timeRemaining int) error
	MarkSubmitted(ctx context.Context, id uuid.UUID, score float64) error
}

// SecurityStore is the engine's view of the device-binding side channel.
type SecurityStore interface {
	Get(ctx context.Context, sessionID uuid.UUID, token string) (*model.SessionSecurity, error)
	// Touch refreshes last_verified and the fingerprint, conditioned on the
	// token matching.
	Touch(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error
	// Reclaim rewrites the record's fingerprint and timestamp after a
	// transient connectivity gap on the same device.
	Reclaim(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error
	Deactivate(ctx context.Context, sessionID uuid.UUID) error
}

// AnswerSink receives write-through answer and flag mutations.
type AnswerSink interface {
	SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, ans model.Answer) error
	SaveFlag(ctx context.Context, sessionID, questionID uuid.UUID, flagged bool) error
}

// ResultSink receives the aggregate grading outcome at submission.
type ResultSink interface {
	SaveResult(ctx context.Context, sess *model.ExamSession, sum scoring.Summary) error
}

// ViolationSink receives proctoring events (fullscreen exits and the like)
// for audit. Failures are never fatal to the session.
type ViolationSink interface {
	RecordViolation(ctx context.Context, sess *model.ExamSession, kind, detail string) error
}
