package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/scoring"
)

func realizeFixture() (*SessionService, *model.Exam, []model.Question) {
	exam := &model.Exam{
		ID:   uuid.New(),
		Code: "HIS02",
	}
	qs := make([]model.Question, 4)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.New(),
			QuestionType: model.QuestionTypeMCQ,
			Options:      []string{"north", "south", "east", "west"},
			CorrectIndex: 2,
			Marks:        1,
		}
	}
	return &SessionService{}, exam, qs
}

func TestRealize_PersistedOrderWins(t *testing.T) {
	s, exam, qs := realizeFixture()
	// Shuffling is on, but a persisted order must replay verbatim.
	exam.QuestionsShuffled = true

	persisted := []string{qs[2].ID.String(), qs[0].ID.String(), qs[1].ID.String(), qs[3].ID.String()}
	ordered := s.realize(exam, 7, qs, persisted)

	if len(ordered) != len(qs) {
		t.Fatalf("length = %d, want %d", len(ordered), len(qs))
	}
	for i, id := range persisted {
		if ordered[i].ID.String() != id {
			t.Fatalf("position %d = %s, want %s", i, ordered[i].ID, id)
		}
	}
}

func TestRealize_NewQuestionsAppendAfterPersistedOrder(t *testing.T) {
	s, exam, qs := realizeFixture()

	// qs[3] was added after the order was first realized.
	persisted := []string{qs[1].ID.String(), qs[0].ID.String(), qs[2].ID.String()}
	ordered := s.realize(exam, 7, qs, persisted)

	if len(ordered) != 4 {
		t.Fatalf("length = %d, want 4", len(ordered))
	}
	if ordered[3].ID != qs[3].ID {
		t.Fatalf("late question at %s, want it appended last", ordered[3].ID)
	}
}

func TestRealize_PersistedOrderDropsRemovedQuestions(t *testing.T) {
	s, exam, qs := realizeFixture()

	gone := uuid.New().String()
	persisted := []string{qs[0].ID.String(), gone, qs[1].ID.String()}
	ordered := s.realize(exam, 7, qs[:2], persisted)

	if len(ordered) != 2 {
		t.Fatalf("length = %d, want 2 after dropping removed question", len(ordered))
	}
	for _, q := range ordered {
		if q.ID.String() == gone {
			t.Fatal("removed question survived in the realized order")
		}
	}
}

func TestRealize_SeededShuffleIsStablePerStudent(t *testing.T) {
	s, exam, qs := realizeFixture()
	exam.QuestionsShuffled = true

	first := s.realize(exam, 7, qs, nil)
	second := s.realize(exam, 7, qs, nil)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same student got different orders at %d", i)
		}
	}
}

func TestRealize_OptionShuffleSkipsTrueFalse(t *testing.T) {
	s, exam, _ := realizeFixture()
	exam.OptionsShuffled = true

	qs := []model.Question{{
		ID:           uuid.New(),
		QuestionType: model.QuestionTypeTrueFalse,
		Options:      []string{"True", "False"},
		CorrectIndex: 0,
		Marks:        1,
	}}
	ordered := s.realize(exam, 7, qs, nil)

	if ordered[0].Options[0] != "True" || ordered[0].Options[1] != "False" {
		t.Fatalf("true/false options reordered: %v", ordered[0].Options)
	}
	if ordered[0].CorrectIndex != 0 {
		t.Fatalf("true/false correct index moved to %d", ordered[0].CorrectIndex)
	}
}

func TestRealize_OptionShuffleKeepsCorrectOption(t *testing.T) {
	s, exam, qs := realizeFixture()
	exam.OptionsShuffled = true

	ordered := s.realize(exam, 7, qs, nil)
	for i, q := range ordered {
		if q.Options[q.CorrectIndex] != "east" {
			t.Fatalf("question %d: correct option is %q, want \"east\"", i, q.Options[q.CorrectIndex])
		}
	}
}

func TestGradeComment(t *testing.T) {
	cases := []struct {
		percent, correct, total int
		want                    string
	}{
		{95, 19, 20, "Excellent (19 of 20 correct)"},
		{80, 8, 10, "Good (8 of 10 correct)"},
		{60, 6, 10, "Satisfactory (6 of 10 correct)"},
		{45, 9, 20, "Needs improvement (9 of 20 correct)"},
		{10, 1, 10, "Failed (1 of 10 correct)"},
		{0, 0, 5, "Failed (0 of 5 correct)"},
	}
	for _, tc := range cases {
		sum := scoring.Summary{Percent: tc.percent, CorrectCount: tc.correct, TotalQuestions: tc.total}
		if got := gradeComment(sum); got != tc.want {
			t.Fatalf("gradeComment(%d%%, %d/%d) = %q, want %q", tc.percent, tc.correct, tc.total, got, tc.want)
		}
	}
}
