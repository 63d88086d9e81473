package shuffle

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/examhall/examhall-backend/internal/model"
)

func TestSeeded_Deterministic(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	first := Seeded(items, "seed-1")
	second := Seeded(items, "seed-1")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different orders: %v vs %v", first, second)
	}

	other := Seeded(items, "seed-2")
	if reflect.DeepEqual(first, other) {
		t.Fatalf("different seeds produced identical orders: %v", first)
	}
}

func TestSeeded_DoesNotMutateInput(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	orig := append([]int(nil), items...)
	Seeded(items, "whatever")
	if !reflect.DeepEqual(items, orig) {
		t.Fatalf("input was mutated: %v", items)
	}
}

func TestSeeded_IsPermutation(t *testing.T) {
	items := []int{10, 20, 30, 40, 50, 60, 70}
	out := Seeded(items, "perm-check")
	if len(out) != len(items) {
		t.Fatalf("length changed: %d vs %d", len(out), len(items))
	}
	seen := make(map[int]int)
	for _, v := range out {
		seen[v]++
	}
	for _, v := range items {
		if seen[v] != 1 {
			t.Fatalf("value %d appears %d times", v, seen[v])
		}
	}
}

func TestAttemptSeed_StableAcrossCalls(t *testing.T) {
	examID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	a := AttemptSeed(123, examID, "482913")
	b := AttemptSeed(123, examID, "482913")
	if a != b {
		t.Fatalf("attempt seed not stable: %s vs %s", a, b)
	}
	if a == AttemptSeed(124, examID, "482913") {
		t.Fatal("different students got the same seed")
	}
}

func TestOptions_CorrectIndexPreserved(t *testing.T) {
	options := []string{"Paris", "London", "Berlin", "Madrid", "Rome"}

	for correct := range options {
		shuffled, newCorrect := Options(options, "opt-seed", correct)
		if newCorrect < 0 || newCorrect >= len(shuffled) {
			t.Fatalf("newCorrect out of range: %d", newCorrect)
		}
		if shuffled[newCorrect] != options[correct] {
			t.Fatalf("correct option lost: expected %q at %d, got %q",
				options[correct], newCorrect, shuffled[newCorrect])
		}
	}
}

func TestOptions_OutOfRangeCorrectIndex(t *testing.T) {
	options := []string{"true", "false"}
	shuffled, newCorrect := Options(options, "s", 7)
	if len(shuffled) != 2 {
		t.Fatalf("unexpected length %d", len(shuffled))
	}
	if newCorrect != 7 {
		t.Fatalf("out-of-range index should pass through, got %d", newCorrect)
	}
}

func TestMatchingPairs_KeyStaysConsistent(t *testing.T) {
	pairs := []model.MatchPair{
		{SideA: "Dog", SideB: "Bark", CorrectMatch: "A"},
		{SideA: "Cat", SideB: "Meow", CorrectMatch: "B"},
		{SideA: "Cow", SideB: "Moo", CorrectMatch: "C"},
		{SideA: "Duck", SideB: "Quack", CorrectMatch: "D"},
	}

	shuffled := MatchingPairs(pairs, "pair-seed")
	if len(shuffled) != len(pairs) {
		t.Fatalf("length changed: %d", len(shuffled))
	}

	for i, p := range pairs {
		// Column A must be untouched.
		if shuffled[i].SideA != p.SideA {
			t.Fatalf("column A reordered at %d: %q vs %q", i, shuffled[i].SideA, p.SideA)
		}

		// The rewritten letter must resolve to the same Column-B value the
		// original letter pointed at.
		origTarget, ok := LetterIndex(p.CorrectMatch)
		if !ok {
			t.Fatalf("bad test fixture letter %q", p.CorrectMatch)
		}
		wantB := pairs[origTarget].SideB

		newTarget, ok := LetterIndex(shuffled[i].CorrectMatch)
		if !ok {
			t.Fatalf("bad rewritten letter %q", shuffled[i].CorrectMatch)
		}
		if shuffled[newTarget].SideB != wantB {
			t.Fatalf("pair %d: letter %s resolves to %q, want %q",
				i, shuffled[i].CorrectMatch, shuffled[newTarget].SideB, wantB)
		}
	}
}

func TestMatchingPairs_Deterministic(t *testing.T) {
	pairs := []model.MatchPair{
		{SideA: "1", SideB: "one", CorrectMatch: "A"},
		{SideA: "2", SideB: "two", CorrectMatch: "B"},
		{SideA: "3", SideB: "three", CorrectMatch: "C"},
	}
	a := MatchingPairs(pairs, "same")
	b := MatchingPairs(pairs, "same")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("not deterministic: %v vs %v", a, b)
	}
}

func TestMatchingPairs_Empty(t *testing.T) {
	if out := MatchingPairs(nil, "x"); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}

func TestLetterIndexRoundTrip(t *testing.T) {
	for i := 0; i < 26; i++ {
		got, ok := LetterIndex(IndexLetter(i))
		if !ok || got != i {
			t.Fatalf("round trip failed for %d: %d %v", i, got, ok)
		}
	}
	if _, ok := LetterIndex("?"); ok {
		t.Fatal("non-letter accepted")
	}
	if got, ok := LetterIndex("b"); !ok || got != 1 {
		t.Fatalf("lowercase not accepted: %d %v", got, ok)
	}
}
