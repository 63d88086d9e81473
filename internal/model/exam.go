package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a timed test. Everything except Active is immutable while
// sessions for it are running.
type Exam struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Title              string    `json:"title"`
	AuthorID           int       `json:"author_id"`
	DurationMinutes    int       `json:"duration_minutes"`
	TotalMarks         float64   `json:"total_marks"`
	QuestionsShuffled  bool      `json:"questions_shuffled"`
	OptionsShuffled    bool      `json:"options_shuffled"`
	FullscreenRequired bool      `json:"fullscreen_required"`
	ShowResults        bool      `json:"show_results"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Code               string  `json:"code" binding:"required,min=4,max=20"`
	Title              string  `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes    int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks         float64 `json:"total_marks" binding:"omitempty,min=0"`
	QuestionsShuffled  bool    `json:"questions_shuffled"`
	OptionsShuffled    bool    `json:"options_shuffled"`
	FullscreenRequired bool    `json:"fullscreen_required"`
	ShowResults        bool    `json:"show_results"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title              string   `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes    int      `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	TotalMarks         *float64 `json:"total_marks" binding:"omitempty"`
	QuestionsShuffled  *bool    `json:"questions_shuffled" binding:"omitempty"`
	OptionsShuffled    *bool    `json:"options_shuffled" binding:"omitempty"`
	FullscreenRequired *bool    `json:"fullscreen_required" binding:"omitempty"`
	ShowResults        *bool    `json:"show_results" binding:"omitempty"`
	Active             *bool    `json:"active" binding:"omitempty"`
}

// ExamPayload is the Redis-cached paper sent to students (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Code      string               `json:"code"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
