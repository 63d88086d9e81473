package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
)

// ExamHandler handles teacher-facing exam management.
type ExamHandler struct {
	examService *service.ExamService
	sessionRepo *repository.ExamSessionRepository
	resultRepo  *repository.ResultRepository
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	examService *service.ExamService,
	sessionRepo *repository.ExamSessionRepository,
	resultRepo *repository.ResultRepository,
) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
	}
}

func failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
	case errors.Is(err, repository.ErrDuplicateExamCode):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListExams godoc
// GET /api/v1/teacher/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExam godoc
// GET /api/v1/teacher/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	questions, err := h.examService.GetQuestions(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam":      exam,
		"questions": questions,
	})
}

// CreateExam godoc
// POST /api/v1/teacher/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := &model.Exam{
		Code:               req.Code,
		Title:              req.Title,
		AuthorID:           claims.UserID,
		DurationMinutes:    req.DurationMinutes,
		TotalMarks:         req.TotalMarks,
		QuestionsShuffled:  req.QuestionsShuffled,
		OptionsShuffled:    req.OptionsShuffled,
		FullscreenRequired: req.FullscreenRequired,
		ShowResults:        req.ShowResults,
	}
	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/teacher/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.TotalMarks != nil {
		exam.TotalMarks = *req.TotalMarks
	}
	if req.QuestionsShuffled != nil {
		exam.QuestionsShuffled = *req.QuestionsShuffled
	}
	if req.OptionsShuffled != nil {
		exam.OptionsShuffled = *req.OptionsShuffled
	}
	if req.FullscreenRequired != nil {
		exam.FullscreenRequired = *req.FullscreenRequired
	}
	if req.ShowResults != nil {
		exam.ShowResults = *req.ShowResults
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}

	if err := h.examService.Update(c.Request.Context(), claims.UserID, exam); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/teacher/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, claims.UserID); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ActivateExam godoc
// POST /api/v1/teacher/exams/:id/activate
// Opens the exam for entry and prewarms the Redis cache.
func (h *ExamHandler) ActivateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Activate(c.Request.Context(), examID, claims.UserID); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"active": true})
}

// DeactivateExam godoc
// POST /api/v1/teacher/exams/:id/deactivate
func (h *ExamHandler) DeactivateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Deactivate(c.Request.Context(), examID, claims.UserID); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"active": false})
}

// ReplaceQuestions godoc
// PUT /api/v1/teacher/exams/:id/questions
// Replaces the exam's full question set in one transaction.
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			ExamID:       examID,
			QuestionType: q.QuestionType,
			QuestionText: q.QuestionText,
			PassageHTML:  q.PassageHTML,
			ImageURL:     q.ImageURL,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Pairs:        q.Pairs,
			Blanks:       q.Blanks,
			Marks:        q.Marks,
			OrderNum:     q.OrderNum,
		}
	}

	if err := h.examService.ReplaceQuestions(c.Request.Context(), claims.UserID, examID, questions); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(questions)})
}

// GetExamResults godoc
// GET /api/v1/teacher/exams/:id/results
// Lists per-student session outcomes with pagination.
func (h *ExamHandler) GetExamResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	sessions, total, err := h.sessionRepo.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sessions == nil {
		sessions = []repository.SessionResult{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": sessions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// GetRanking godoc
// GET /api/v1/teacher/exams/:id/ranking
// Lists graded results ordered by marks.
func (h *ExamHandler) GetRanking(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	results, err := h.resultRepo.ListByExam(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []model.Result{}
	}

	response.Success(c, http.StatusOK, gin.H{"ranking": results})
}

// RefreshExamCache godoc
// POST /api/v1/teacher/exams/:id/refresh-cache
// Rewarms the Redis cache for an active exam.
func (h *ExamHandler) RefreshExamCache(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	if err := h.examService.WarmExamCache(c.Request.Context(), exam); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "refreshed"})
}
