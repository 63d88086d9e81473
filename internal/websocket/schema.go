package websocket

import (
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/scoring"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionFlag      Action = "flag"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionState     Action = "state"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest saves one answer slot. Index addresses the question in the
// student's realized order.
type AutosaveRequest struct {
	Action Action       `json:"action"`
	Index  int          `json:"index"`
	Answer model.Answer `json:"answer"`
}

// FlagRequest toggles a question bookmark.
type FlagRequest struct {
	Action  Action `json:"action"`
	Index   int    `json:"index"`
	Flagged bool   `json:"flagged"`
}

// ViolationRequest reports a proctoring event (fullscreen exit, hidden tab).
type ViolationRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// SubmitRequest finishes and grades the exam.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSaved      Event = "saved"
	EventFlagged    Event = "flagged"
	EventWarning    Event = "warning"
	EventState      Event = "state"
	EventGraded     Event = "graded"
	EventTerminated Event = "terminated"
	EventPong       Event = "pong"
)

type SavedResponse struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

type FlaggedResponse struct {
	Event   Event `json:"event"`
	Index   int   `json:"index"`
	Flagged bool  `json:"flagged"`
}

// WarningResponse tells the client to raise the blocking fullscreen overlay.
type WarningResponse struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type StateResponse struct {
	Event Event `json:"event"`
	State any   `json:"state"`
}

type GradedResponse struct {
	Event   Event            `json:"event"`
	Status  string           `json:"status"`
	Summary *scoring.Summary `json:"summary,omitempty"`
}

type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event         Event `json:"event"`
	TimeRemaining int   `json:"time_remaining"`
}
