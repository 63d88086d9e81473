package scoring

import (
	"reflect"
	"testing"

	"github.com/examhall/examhall-backend/internal/model"
)

func intPtr(v int) *int { return &v }

func mcq(marks float64, correct int, options ...string) model.Question {
	return model.Question{
		QuestionType: model.QuestionTypeMCQ,
		Options:      options,
		CorrectIndex: correct,
		Marks:        marks,
	}
}

func TestCalculate_ChoiceTypes(t *testing.T) {
	questions := []model.Question{
		mcq(1, 2, "a", "b", "c", "d"),
		{QuestionType: model.QuestionTypeTrueFalse, Options: []string{"True", "False"}, CorrectIndex: 0, Marks: 2},
		mcq(1, 0, "x", "y"),
	}
	answers := []model.Answer{
		{Selected: intPtr(2)}, // correct
		{Selected: intPtr(1)}, // wrong
		{},                    // unanswered
	}

	got := Calculate(questions, answers)

	if got.TotalMarks != 1 {
		t.Fatalf("total marks = %v, want 1", got.TotalMarks)
	}
	if got.TotalPossibleMarks != 4 {
		t.Fatalf("possible marks = %v, want 4", got.TotalPossibleMarks)
	}
	if got.CorrectCount != 1 {
		t.Fatalf("correct count = %d, want 1", got.CorrectCount)
	}
	if got.Percent != 25 {
		t.Fatalf("percent = %d, want 25", got.Percent)
	}
	if got.QuestionResults[2].Answered {
		t.Fatal("unanswered question reported as answered")
	}
}

func TestCalculate_MatchingPartialCredit(t *testing.T) {
	pairs := []model.MatchPair{
		{SideA: "1", SideB: "one", CorrectMatch: "B"},
		{SideA: "2", SideB: "two", CorrectMatch: "A"},
		{SideA: "3", SideB: "three", CorrectMatch: "D"},
		{SideA: "4", SideB: "four", CorrectMatch: "C"},
	}

	tests := []struct {
		name        string
		matches     []string
		wantEarned  float64
		wantCorrect bool
	}{
		{"all four correct", []string{"B", "A", "D", "C"}, 4, true},
		{"three of four", []string{"B", "A", "D", "A"}, 3, false},
		{"case insensitive", []string{"b", "a", "d", "c"}, 4, true},
		{"none correct", []string{"C", "D", "A", "B"}, 0, false},
		{"all blank", []string{"", "", "", ""}, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := model.Question{QuestionType: model.QuestionTypeMatching, Pairs: pairs, Marks: 4}
			got := Calculate([]model.Question{q}, []model.Answer{{Matches: tc.matches}})

			if got.TotalMarks != tc.wantEarned {
				t.Fatalf("earned = %v, want %v", got.TotalMarks, tc.wantEarned)
			}
			if got.QuestionResults[0].FullyCorrect != tc.wantCorrect {
				t.Fatalf("fully correct = %v, want %v", got.QuestionResults[0].FullyCorrect, tc.wantCorrect)
			}
			wantCount := 0
			if tc.wantCorrect {
				wantCount = 1
			}
			if got.CorrectCount != wantCount {
				t.Fatalf("correct count = %d, want %d", got.CorrectCount, wantCount)
			}
		})
	}
}

func TestCalculate_MatchingNoPairs(t *testing.T) {
	q := model.Question{QuestionType: model.QuestionTypeMatching, Marks: 4}
	got := Calculate([]model.Question{q}, []model.Answer{{}})

	if got.TotalMarks != 0 {
		t.Fatalf("earned = %v, want 0", got.TotalMarks)
	}
	if got.CorrectCount != 0 {
		t.Fatalf("correct count = %d, want 0", got.CorrectCount)
	}
	if len(got.QuestionResults) != 1 {
		t.Fatalf("question missing from results")
	}
	if got.QuestionResults[0].Counted {
		t.Fatal("zero-pair question should be excluded from accounting")
	}
}

func TestCalculate_FillBlankPartialCredit(t *testing.T) {
	q := model.Question{
		QuestionType: model.QuestionTypeFillBlank,
		Blanks: []model.Blank{
			{ID: "b1", Answer: "photosynthesis"},
			{ID: "b2", Answer: "chlorophyll"},
			{ID: "b3", Answer: "oxygen"},
		},
		Marks: 3,
	}
	answers := []model.Answer{{Blanks: map[string]string{
		"b1": "  Photosynthesis ", // trimmed, case-insensitive match
		"b2": "chloroplast",       // wrong
		"b3": "OXYGEN",            // match
	}}}

	got := Calculate([]model.Question{q}, answers)

	if got.TotalMarks != 2 {
		t.Fatalf("earned = %v, want 2", got.TotalMarks)
	}
	if got.QuestionResults[0].FullyCorrect {
		t.Fatal("partially answered blank question marked fully correct")
	}
}

func TestCalculate_RoundingAfterSummation(t *testing.T) {
	// Three matching questions each worth 1 with 3 pairs; one pair correct in
	// each yields 3 * (1/3) = 1.0 exactly after summation, even though the
	// per-item value 0.333... is not representable.
	pairs := []model.MatchPair{
		{SideA: "a", SideB: "x", CorrectMatch: "A"},
		{SideA: "b", SideB: "y", CorrectMatch: "B"},
		{SideA: "c", SideB: "z", CorrectMatch: "C"},
	}
	q := model.Question{QuestionType: model.QuestionTypeMatching, Pairs: pairs, Marks: 1}
	ans := model.Answer{Matches: []string{"A", "", ""}}

	got := Calculate(
		[]model.Question{q, q, q},
		[]model.Answer{ans, ans, ans},
	)
	if got.TotalMarks != 1 {
		t.Fatalf("total = %v, want exactly 1", got.TotalMarks)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	questions := []model.Question{
		mcq(1, 0, "a", "b"),
		{QuestionType: model.QuestionTypeMatching, Marks: 4, Pairs: []model.MatchPair{
			{SideA: "1", SideB: "x", CorrectMatch: "B"},
			{SideA: "2", SideB: "y", CorrectMatch: "A"},
		}},
	}
	answers := []model.Answer{
		{Selected: intPtr(0)},
		{Matches: []string{"B", ""}},
	}

	first := Calculate(questions, answers)
	second := Calculate(questions, answers)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestCalculate_EmptyExam(t *testing.T) {
	got := Calculate(nil, nil)
	if got.Percent != 0 || got.TotalMarks != 0 || got.TotalPossibleMarks != 0 {
		t.Fatalf("empty exam should score zero, got %+v", got)
	}
}

func TestCalculate_PerfectScore(t *testing.T) {
	questions := []model.Question{
		mcq(1, 1, "a", "b", "c"),
		mcq(1, 0, "x", "y"),
	}
	answers := []model.Answer{
		{Selected: intPtr(1)},
		{Selected: intPtr(0)},
	}

	got := Calculate(questions, answers)
	if got.TotalMarks != 2 || got.TotalPossibleMarks != 2 {
		t.Fatalf("marks = %v/%v, want 2/2", got.TotalMarks, got.TotalPossibleMarks)
	}
	if got.Percent != 100 || got.CorrectCount != 2 {
		t.Fatalf("percent=%d correct=%d, want 100/2", got.Percent, got.CorrectCount)
	}
}
