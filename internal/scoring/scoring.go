// Package scoring computes per-question and total marks from a question list
// and a parallel answer list. Calculate is pure: identical inputs always
// produce identical output, including the rounded totals.
package scoring

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/examhall/examhall-backend/internal/model"
)

// QuestionResult is the grading outcome of a single question.
type QuestionResult struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Earned       float64   `json:"earned"`
	Possible     float64   `json:"possible"`
	Answered     bool      `json:"answered"`
	FullyCorrect bool      `json:"fully_correct"`
	// Counted is false for malformed questions (e.g. matching with no pairs)
	// that are excluded from the correct/incorrect accounting.
	Counted bool `json:"counted"`
}

// Summary aggregates an attempt's grading outcome.
type Summary struct {
	TotalMarks         float64          `json:"total_marks"`
	TotalPossibleMarks float64          `json:"total_possible_marks"`
	Percent            int              `json:"percent"`
	CorrectCount       int              `json:"correct_count"`
	TotalQuestions     int              `json:"total_questions"`
	QuestionResults    []QuestionResult `json:"question_results"`
}

// Calculate grades an attempt. answers must be positionally parallel to
// questions; a short answers slice is tolerated by treating the tail as
// unanswered.
func Calculate(questions []model.Question, answers []model.Answer) Summary {
	summary := Summary{
		TotalQuestions:  len(questions),
		QuestionResults: make([]QuestionResult, 0, len(questions)),
	}

	var earnedSum, possibleSum float64

	for i := range questions {
		q := &questions[i]

		var ans model.Answer
		if i < len(answers) {
			ans = answers[i]
		}

		qr := gradeQuestion(q, &ans)
		earnedSum += qr.Earned
		possibleSum += qr.Possible
		if qr.Counted && qr.FullyCorrect {
			summary.CorrectCount++
		}
		summary.QuestionResults = append(summary.QuestionResults, qr)
	}

	// Round once after summation so floating point drift never accumulates
	// into the visible totals.
	summary.TotalMarks = round2(earnedSum)
	summary.TotalPossibleMarks = round2(possibleSum)

	if summary.TotalPossibleMarks > 0 {
		summary.Percent = int(math.Round(summary.TotalMarks / summary.TotalPossibleMarks * 100))
	}
	return summary
}

func gradeQuestion(q *model.Question, ans *model.Answer) QuestionResult {
	qr := QuestionResult{
		QuestionID: q.ID,
		Possible:   q.Weight(),
		Answered:   !ans.IsEmpty(),
		Counted:    true,
	}

	switch q.QuestionType {
	case model.QuestionTypeMatching:
		gradeMatching(q, ans, &qr)
	case model.QuestionTypeFillBlank:
		gradeFillBlank(q, ans, &qr)
	default:
		gradeChoice(q, ans, &qr)
	}
	return qr
}

func gradeChoice(q *model.Question, ans *model.Answer, qr *QuestionResult) {
	if ans.Selected != nil && *ans.Selected == q.CorrectIndex {
		qr.Earned = q.Weight()
		qr.FullyCorrect = true
	}
}

func gradeMatching(q *model.Question, ans *model.Answer, qr *QuestionResult) {
	n := len(q.Pairs)
	if n == 0 {
		// Malformed question data; defensive fallback, not a scoring rule.
		qr.Counted = false
		return
	}

	matched := 0
	for i, pair := range q.Pairs {
		if i >= len(ans.Matches) {
			break
		}
		if ans.Matches[i] != "" && strings.EqualFold(ans.Matches[i], pair.CorrectMatch) {
			matched++
		}
	}

	qr.Earned = q.Weight() * float64(matched) / float64(n)
	qr.FullyCorrect = matched == n
}

func gradeFillBlank(q *model.Question, ans *model.Answer, qr *QuestionResult) {
	n := len(q.Blanks)
	if n == 0 {
		qr.Counted = false
		return
	}

	matched := 0
	for _, blank := range q.Blanks {
		got := strings.TrimSpace(ans.Blanks[blank.ID])
		want := strings.TrimSpace(blank.Answer)
		if got != "" && strings.EqualFold(got, want) {
			matched++
		}
	}

	qr.Earned = q.Weight() * float64(matched) / float64(n)
	qr.FullyCorrect = matched == n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
