package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/session"
	ws "github.com/examhall/examhall-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running exam session over WebSocket: autosave, flags,
// violations, and submission, plus server-pushed termination.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Upgrades to WebSocket for real-time autosave and session events.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	studentID := claims.UserID

	// Validate ownership before streaming anything.
	view, err := h.sessionService.Snapshot(c.Request.Context(), studentID, sessionID)
	if err != nil {
		conn.WriteError("no session for this student")
		return
	}
	if view.State != session.StateInProgress {
		conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: view})
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// Push termination or completion even when the client is idle.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go h.watchSession(watchCtx, conn, studentID, sessionID)

	for {
		data, err := conn.ReadRaw()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError("invalid message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, studentID, sessionID, data)
		case ws.ActionFlag:
			h.handleFlag(conn, studentID, sessionID, data)
		case ws.ActionViolation:
			h.handleViolation(conn, studentID, sessionID, data)
		case ws.ActionSubmit:
			if done := h.handleSubmit(conn, wsLog, studentID, sessionID); done {
				return
			}
		case ws.ActionState:
			h.handleState(conn, studentID, sessionID)
		case ws.ActionPing:
			h.handlePing(conn, studentID, sessionID)
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// watchSession pushes a terminal event when the engine exits without the
// client asking.
func (h *WSHandler) watchSession(ctx context.Context, conn *ws.Conn, studentID int, sessionID uuid.UUID) {
	eng := h.sessionService.Engine(sessionID, studentID)
	if eng == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-eng.Done():
	}

	snap := eng.Snapshot()
	switch snap.State {
	case session.StateTerminated:
		conn.WriteTyped(ws.TerminatedResponse{Event: ws.EventTerminated, Reason: snap.Reason})
	case session.StateCompleted:
		conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Status: "completed", Summary: snap.Summary})
	}
	conn.Close()
}

func (h *WSHandler) handleAutosave(conn *ws.Conn, studentID int, sessionID uuid.UUID, data []byte) {
	var req ws.AutosaveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("invalid autosave payload")
		return
	}

	if err := h.sessionService.SaveAnswer(context.Background(), studentID, sessionID, req.Index, req.Answer); err != nil {
		conn.WriteError(wsErrorMessage(err))
		return
	}

	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Index: req.Index})
}

func (h *WSHandler) handleFlag(conn *ws.Conn, studentID int, sessionID uuid.UUID, data []byte) {
	var req ws.FlagRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("invalid flag payload")
		return
	}

	if err := h.sessionService.ToggleFlag(context.Background(), studentID, sessionID, req.Index, req.Flagged); err != nil {
		conn.WriteError(wsErrorMessage(err))
		return
	}

	conn.WriteTyped(ws.FlaggedResponse{Event: ws.EventFlagged, Index: req.Index, Flagged: req.Flagged})
}

func (h *WSHandler) handleViolation(conn *ws.Conn, studentID int, sessionID uuid.UUID, data []byte) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("invalid violation payload")
		return
	}

	warn, err := h.sessionService.ReportViolation(context.Background(), studentID, sessionID, req.Kind, req.Detail)
	if err != nil {
		conn.WriteError(wsErrorMessage(err))
		return
	}

	if warn {
		conn.WriteTyped(ws.WarningResponse{
			Event:   ws.EventWarning,
			Message: "Return to fullscreen to continue the exam",
		})
	}
}

// handleSubmit grades the attempt. Returns true when the session is closed and
// the read loop should exit.
func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, studentID int, sessionID uuid.UUID) bool {
	summary, err := h.sessionService.Submit(context.Background(), studentID, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSubmitInFlight) {
			conn.WriteError("submission already in progress")
			return false
		}
		conn.WriteError(wsErrorMessage(err))
		return false
	}

	wsLog.Info().Msg("Exam submitted over WebSocket")
	conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Status: "completed", Summary: summary})
	return true
}

func (h *WSHandler) handleState(conn *ws.Conn, studentID int, sessionID uuid.UUID) {
	view, err := h.sessionService.Snapshot(context.Background(), studentID, sessionID)
	if err != nil {
		conn.WriteError(wsErrorMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: view})
}

func (h *WSHandler) handlePing(conn *ws.Conn, studentID int, sessionID uuid.UUID) {
	remaining := 0
	if eng := h.sessionService.Engine(sessionID, studentID); eng != nil {
		remaining = eng.TimeRemaining()
	}
	conn.WriteTyped(ws.PongResponse{Event: ws.EventPong, TimeRemaining: remaining})
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotActive),
		errors.Is(err, service.ErrSessionNotFound):
		return "session is no longer active"
	case errors.Is(err, service.ErrNotSessionOwner):
		return "forbidden"
	case errors.Is(err, session.ErrQuestionIndex):
		return "question index out of range"
	default:
		return "request failed"
	}
}
