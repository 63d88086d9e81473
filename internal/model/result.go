package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the aggregate grading outcome of one attempt, upserted keyed by
// (exam_id, student_id) at submission.
type Result struct {
	ExamID        uuid.UUID `json:"exam_id"`
	StudentID     int       `json:"student_id"`
	MarksObtained float64   `json:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks"`
	Percent       int       `json:"percent"`
	Comment       string    `json:"comment"`
	GradedAt      time.Time `json:"graded_at"`
}

// StudentAnswerRow is the persisted form of one answer, upserted keyed by
// (session_id, question_id). Payload is the JSON-serialized Answer.
type StudentAnswerRow struct {
	SessionID  uuid.UUID `json:"session_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Payload    []byte    `json:"payload"`
	IsFlagged  bool      `json:"is_flagged"`
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
