// Package shuffle implements the deterministic seeded permutations used to
// give every student an individually reproducible question, option, and
// matching-pair order.
package shuffle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/examhall/examhall-backend/internal/model"
)

// lcg is a linear-congruential generator whose initial state is derived from
// a string seed. Constants are the classic glibc rand() parameters; the state
// is kept in the non-negative 31-bit range.
type lcg struct {
	state int64
}

func newLCG(seed string) *lcg {
	var h int64
	for _, c := range seed {
		h = (h*31 + int64(c)) & 0x7fffffff
	}
	if h == 0 {
		h = 1
	}
	return &lcg{state: h}
}

// next returns a float in [0, 1).
func (g *lcg) next() float64 {
	g.state = (g.state*1103515245 + 12345) & 0x7fffffff
	return float64(g.state) / float64(1<<31)
}

// AttemptSeed builds the shuffle seed for one student's attempt at one exam.
// It deliberately contains no timestamp: reloading or resuming must re-derive
// the identical permutation.
func AttemptSeed(studentID int, examID uuid.UUID, examCode string) string {
	return fmt.Sprintf("%d|%s|%s", studentID, examID, examCode)
}

// Seeded returns a Fisher-Yates permutation of items driven by seed. The
// input is never mutated; identical (items, seed) yield a bit-for-bit
// identical order.
func Seeded[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	g := newLCG(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(g.next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Options shuffles an option list and recomputes the correct option's index
// by text identity inside the shuffled list. An out-of-range correctIndex is
// passed through unchanged alongside the shuffled options.
func Options(options []string, seed string, correctIndex int) ([]string, int) {
	shuffled := Seeded(options, seed)
	if correctIndex < 0 || correctIndex >= len(options) {
		return shuffled, correctIndex
	}

	correct := options[correctIndex]
	for i, opt := range shuffled {
		if opt == correct {
			return shuffled, i
		}
	}
	return shuffled, correctIndex
}

// MatchingPairs permutes only Column B of a matching question, rewriting each
// pair's CorrectMatch letter to the new position of its original Column-B
// partner. Column A order is untouched so the grading key stays internally
// consistent after the visual shuffle.
func MatchingPairs(pairs []model.MatchPair, seed string) []model.MatchPair {
	n := len(pairs)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// order[newPos] = original Column-B row index.
	order = Seeded(order, seed)

	newPos := make([]int, n)
	for pos, orig := range order {
		newPos[orig] = pos
	}

	out := make([]model.MatchPair, n)
	for i, p := range pairs {
		out[i] = model.MatchPair{
			SideA: p.SideA,
			SideB: pairs[order[i]].SideB,
		}
		if target, ok := LetterIndex(p.CorrectMatch); ok && target < n {
			out[i].CorrectMatch = IndexLetter(newPos[target])
		} else {
			out[i].CorrectMatch = p.CorrectMatch
		}
	}
	return out
}

// LetterIndex converts a Column-B letter ("A".."Z", case-insensitive) to its
// zero-based position.
func LetterIndex(letter string) (int, bool) {
	if len(letter) != 1 {
		return 0, false
	}
	c := letter[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	default:
		return 0, false
	}
}

// IndexLetter converts a zero-based Column-B position to its letter.
func IndexLetter(i int) string {
	return string(rune('A' + i))
}
