package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/handler"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Exam          *handler.ExamHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		studentAPI.POST("/exams/enter", handlers.StudentPortal.EnterExam)
		studentAPI.POST("/exams/begin", handlers.StudentPortal.BeginExam)
		studentAPI.GET("/exams/:code/result", handlers.StudentPortal.GetResult)
		studentAPI.GET("/sessions/:session_id/state", handlers.StudentPortal.GetSessionState)
		studentAPI.POST("/sessions/:session_id/answers", handlers.StudentPortal.SaveAnswer)
		studentAPI.POST("/sessions/:session_id/flags", handlers.StudentPortal.ToggleFlag)
		studentAPI.POST("/sessions/:session_id/violations", handlers.StudentPortal.ReportViolation)
		studentAPI.POST("/sessions/:session_id/submit", handlers.StudentPortal.SubmitExam)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Exam management
		teacherAPI.GET("/exams", handlers.Exam.ListExams)
		teacherAPI.POST("/exams", handlers.Exam.CreateExam)
		teacherAPI.GET("/exams/:id", handlers.Exam.GetExam)
		teacherAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		teacherAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		teacherAPI.POST("/exams/:id/activate", handlers.Exam.ActivateExam)
		teacherAPI.POST("/exams/:id/deactivate", handlers.Exam.DeactivateExam)
		teacherAPI.PUT("/exams/:id/questions", handlers.Exam.ReplaceQuestions)
		teacherAPI.GET("/exams/:id/results", handlers.Exam.GetExamResults)
		teacherAPI.GET("/exams/:id/ranking", handlers.Exam.GetRanking)
		teacherAPI.POST("/exams/:id/refresh-cache", handlers.Exam.RefreshExamCache)

		// Student management
		teacherAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		teacherAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		teacherAPI.POST("/students/:id/reset-password", handlers.StudentMgmt.ResetStudentPassword)
		teacherAPI.POST("/students/:id/reset-login", handlers.StudentMgmt.ResetStudentLogin)
		teacherAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
	}

	return router
}
