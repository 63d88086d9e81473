package model

// Answer is a student's answer to one question. Exactly one of the payload
// fields is meaningful, decided by the question's type:
//   - choice types: Selected (nil means unanswered)
//   - matching: Matches, one slot per pair ("" means unmatched)
//   - fill_blank: Blanks, one entry per blank id ("" means empty)
//
// The answer list always has one entry per question, in the same order as the
// (possibly shuffled) question list. Unanswered is an empty shape, never a
// missing entry.
type Answer struct {
	Selected *int              `json:"selected,omitempty"`
	Matches  []string          `json:"matches,omitempty"`
	Blanks   map[string]string `json:"blanks,omitempty"`
}

// InitializeAnswers produces one empty answer slot per question.
func InitializeAnswers(questions []Question) []Answer {
	answers := make([]Answer, len(questions))
	for i := range questions {
		q := &questions[i]
		switch q.QuestionType {
		case QuestionTypeMatching:
			answers[i].Matches = make([]string, len(q.Pairs))
		case QuestionTypeFillBlank:
			blanks := make(map[string]string, len(q.Blanks))
			for _, b := range q.Blanks {
				blanks[b.ID] = ""
			}
			answers[i].Blanks = blanks
		}
	}
	return answers
}

// IsEmpty reports whether the answer holds no student input at all.
func (a *Answer) IsEmpty() bool {
	if a.Selected != nil {
		return false
	}
	for _, m := range a.Matches {
		if m != "" {
			return false
		}
	}
	for _, v := range a.Blanks {
		if v != "" {
			return false
		}
	}
	return true
}
