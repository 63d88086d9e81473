package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
)

// Domain Errors
var (
	ErrNotExamAuthor    = errors.New("not the author of this exam")
	ErrNoQuestions      = errors.New("exam has no questions, cannot activate")
	ErrExamNotAvailable = errors.New("exam is not active")
)

// ExamService handles exam business logic and Redis caching. Active exams are
// cached whole (student payload plus the keyed question set) so the entry path
// never touches PostgreSQL under thundering-herd load.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// GetByCode retrieves an exam by its entry code.
func (s *ExamService) GetByCode(ctx context.Context, code string) (*model.Exam, error) {
	return s.examRepo.GetByCode(ctx, code)
}

// ListByAuthor retrieves a teacher's exams, newest first.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID int) ([]model.Exam, error) {
	exams, err := s.examRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create inserts a new exam, inactive until explicitly opened.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	exam.Active = false
	return s.examRepo.Create(ctx, exam)
}

// Update modifies an exam's settings and refreshes the cache if it is live.
func (s *ExamService) Update(ctx context.Context, authorID int, exam *model.Exam) error {
	existing, err := s.examRepo.GetByID(ctx, exam.ID)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return err
	}
	if exam.Active {
		return s.WarmExamCache(ctx, exam)
	}
	return nil
}

// ReplaceQuestions swaps an exam's full question set.
func (s *ExamService) ReplaceQuestions(ctx context.Context, authorID int, examID uuid.UUID, questions []model.Question) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}

	if err := s.questionRepo.ReplaceForExam(ctx, examID, questions); err != nil {
		return err
	}
	if exam.Active {
		return s.WarmExamCache(ctx, exam)
	}
	return nil
}

// Activate opens an exam for entry and prewarms its cache. This is the
// critical path that populates the fast lane.
func (s *ExamService) Activate(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}

	// Prewarm cache for this exam.
	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.SetActive(ctx, examID, true); err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam activated")
	return nil
}

// Deactivate closes an exam to new entries and drops its cache. Running
// sessions are unaffected; their monitors keep the session alive to the end.
func (s *ExamService) Deactivate(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}

	if err := s.examRepo.SetActive(ctx, examID, false); err != nil {
		return fmt.Errorf("set inactive: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String()))
	pipe.Del(ctx, config.CacheKey.ExamQuestionsKey(examID.String()))
	_, _ = pipe.Exec(ctx)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam deactivated")
	return nil
}

// Delete removes an exam entirely.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if existing.Active {
		return ErrExamNotAvailable
	}
	return s.examRepo.Delete(ctx, id)
}

// WarmExamCache loads an exam's student payload and full question set from
// PostgreSQL into Redis. Used by Activate, Update, and PrewarmAllCaches.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build student-facing payload (without grading keys).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Code:      exam.Code,
		Title:     exam.Title,
		Duration:  exam.DurationMinutes,
		Questions: studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	// Cache both atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamQuestionsKey(exam.ID.String()), questionsJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all active exams into Redis on application startup.
// This prevents any lazy-loading race conditions under thundering herd traffic.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No active exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming active exams...")

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached student payload, falling back to
// PostgreSQL on a cache miss.
func (s *ExamService) GetExamPayload(ctx context.Context, exam *model.Exam) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String())).Bytes()
	if err == nil {
		var payload model.ExamPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			return &payload, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Payload cache read failed, using database")
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}

	data, err = s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String())).Bytes()
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetQuestions retrieves an exam's full keyed question set, preferring the
// Redis copy.
func (s *ExamService) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamQuestionsKey(examID.String())).Bytes()
	if err == nil {
		var questions []model.Question
		if err := json.Unmarshal(data, &questions); err == nil {
			return questions, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Question cache read failed, using database")
	}

	return s.questionRepo.ListByExam(ctx, examID)
}
