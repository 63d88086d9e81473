package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/session"
	"github.com/examhall/examhall-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (exam entry, taking).
type StudentPortalHandler struct {
	sessionService *service.SessionService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(sessionService *service.SessionService) *StudentPortalHandler {
	return &StudentPortalHandler{sessionService: sessionService}
}

// failSession maps session lifecycle errors to response codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrInvalidExamCode)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrOtherExamActive):
		response.Fail(c, http.StatusConflict, response.ErrOtherExamActive)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrSessionTerminated):
		response.Fail(c, http.StatusConflict, response.ErrSessionTerminated)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, session.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, session.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, session.ErrQuestionIndex):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// EnterExam godoc
// POST /api/v1/student/exams/enter
// Validates an exam code and returns either the instructions step or a resumed
// session.
func (h *StudentPortalHandler) EnterExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.sessionService.Enter(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// BeginExam godoc
// POST /api/v1/student/exams/begin
// Starts the timed attempt after the instructions step. Idempotent: a second
// begin resumes the existing session.
func (h *StudentPortalHandler) BeginExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.Begin(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// GetSessionState godoc
// GET /api/v1/student/sessions/:session_id/state
// Returns the live session view. Covers page reload: answers, flags, and the
// remaining time come back in one shot.
func (h *StudentPortalHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.Snapshot(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SaveAnswerRequest is the HTTP fallback payload for saving one answer.
type SaveAnswerRequest struct {
	Index  int          `json:"index" binding:"min=0"`
	Answer model.Answer `json:"answer"`
}

// SaveAnswer godoc
// POST /api/v1/student/sessions/:session_id/answers
// HTTP fallback for clients without a WebSocket connection.
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), claims.UserID, sessionID, req.Index, req.Answer); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// FlagRequest is the HTTP fallback payload for toggling a bookmark.
type FlagRequest struct {
	Index   int  `json:"index" binding:"min=0"`
	Flagged bool `json:"flagged"`
}

// ToggleFlag godoc
// POST /api/v1/student/sessions/:session_id/flags
func (h *StudentPortalHandler) ToggleFlag(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.ToggleFlag(c.Request.Context(), claims.UserID, sessionID, req.Index, req.Flagged); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "flagged"})
}

// ViolationRequest is the HTTP fallback payload for reporting a proctoring
// event.
type ViolationRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=fullscreen_exit tab_hidden"`
	Detail string `json:"detail" binding:"omitempty,max=500"`
}

// ReportViolation godoc
// POST /api/v1/student/sessions/:session_id/violations
func (h *StudentPortalHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req ViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	warn, err := h.sessionService.ReportViolation(c.Request.Context(), claims.UserID, sessionID, req.Kind, req.Detail)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"warning": warn})
}

// SubmitExam godoc
// POST /api/v1/student/sessions/:session_id/submit
// Grades and closes the attempt. The summary is omitted when the exam hides
// results.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.sessionService.Submit(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  "completed",
		"summary": summary,
	})
}

// GetResult godoc
// GET /api/v1/student/exams/:code/result
// Returns the student's published result for an exam.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessionService.Result(c.Request.Context(), claims.UserID, c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrResultsHidden) {
			response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
			return
		}
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
