package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMCQ        QuestionType = "mcq"
	QuestionTypeTrueFalse  QuestionType = "true_false"
	QuestionTypeFillBlank  QuestionType = "fill_blank"
	QuestionTypeMatching   QuestionType = "matching"
	QuestionTypePassageMCQ QuestionType = "passage_mcq"
)

// IsChoice reports whether the type is graded by a single selected option index.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeMCQ || t == QuestionTypeTrueFalse || t == QuestionTypePassageMCQ
}

// MatchPair is one row of a matching question. CorrectMatch is a letter ("A",
// "B", ...) referencing a Column-B position.
type MatchPair struct {
	SideA        string `json:"side_a"`
	SideB        string `json:"side_b"`
	CorrectMatch string `json:"correct_match"`
}

// Blank is one gap of a fill-blank question.
type Blank struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// Question is a single exam item. The payload fields are type-specific:
// Options/CorrectIndex for choice types, Pairs for matching, Blanks for
// fill-blank. Marks defaults to 1 when not set.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	ExamID       uuid.UUID    `json:"exam_id"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	PassageHTML  string       `json:"passage_html,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex int          `json:"correct_index"`
	Pairs        []MatchPair  `json:"pairs,omitempty"`
	Blanks       []Blank      `json:"blanks,omitempty"`
	Marks        float64      `json:"marks"`
	OrderNum     int          `json:"order_num"`
}

// Weight returns the question's mark weight, defaulting to 1.
func (q *Question) Weight() float64 {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// QuestionForStudent is a question stripped of its grading key. The pairs carry
// only the two columns, never the correct match letters.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	PassageHTML  string       `json:"passage_html,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	Options      []string     `json:"options,omitempty"`
	ColumnA      []string     `json:"column_a,omitempty"`
	ColumnB      []string     `json:"column_b,omitempty"`
	BlankIDs     []string     `json:"blank_ids,omitempty"`
	Marks        float64      `json:"marks"`
	OrderNum     int          `json:"order_num"`
}

// ForStudent strips the grading key from a question.
func (q *Question) ForStudent() QuestionForStudent {
	out := QuestionForStudent{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		QuestionText: q.QuestionText,
		PassageHTML:  q.PassageHTML,
		ImageURL:     q.ImageURL,
		Options:      q.Options,
		Marks:        q.Weight(),
		OrderNum:     q.OrderNum,
	}
	for _, p := range q.Pairs {
		out.ColumnA = append(out.ColumnA, p.SideA)
		out.ColumnB = append(out.ColumnB, p.SideB)
	}
	for _, b := range q.Blanks {
		out.BlankIDs = append(out.BlankIDs, b.ID)
	}
	return out
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionType QuestionType `json:"question_type" binding:"required,oneof=mcq true_false fill_blank matching passage_mcq"`
	QuestionText string       `json:"question_text" binding:"required,min=1,max=4000"`
	PassageHTML  string       `json:"passage_html" binding:"omitempty,max=20000"`
	ImageURL     string       `json:"image_url" binding:"omitempty,max=500"`
	Options      []string     `json:"options" binding:"omitempty,dive,max=1000"`
	CorrectIndex int          `json:"correct_index" binding:"min=0"`
	Pairs        []MatchPair  `json:"pairs" binding:"omitempty,dive"`
	Blanks       []Blank      `json:"blanks" binding:"omitempty,dive"`
	Marks        float64      `json:"marks" binding:"omitempty,min=0"`
	OrderNum     int          `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
