// Package scoring holds the pure correctness and aggregation logic shared
// by every surface that displays a score. It never performs I/O and never
// panics on malformed input: anything it cannot interpret counts as
// incorrect, so one bad question cannot corrupt the rest of a result.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/tranquocan24/online-exam-system/internal/model"
)

// IsAnswerCorrect decides whether a submitted answer is correct for the
// given question. An unset answer is always incorrect.
func IsAnswerCorrect(q model.Question, ans model.Answer) bool {
	if !ans.IsSet() {
		return false
	}

	switch q.Type {
	case model.QuestionMultiChoice:
		return indexSetsEqual(ans, q.CorrectAnswer)
	case model.QuestionFreeText:
		return textEqual(ans, q.CorrectAnswer)
	case model.QuestionSingleChoice:
		return scalarEqual(ans, q.CorrectAnswer)
	default:
		// Compatibility fallback: questions with a missing or unknown type
		// are compared with single-choice semantics.
		return scalarEqual(ans, q.CorrectAnswer)
	}
}

// CalculateScore aggregates a result into an integer percentage in [0, 100].
// An empty snapshot scores 0.
func CalculateScore(r *model.Result) int {
	correct, total := CalculateCorrectAnswers(r)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// CalculateCorrectAnswers walks the result's question snapshot in order and
// returns raw counts. CalculateScore is defined in terms of this traversal,
// so the two can never disagree.
func CalculateCorrectAnswers(r *model.Result) (correct, total int) {
	if r == nil {
		return 0, 0
	}

	total = len(r.Questions)
	for i, q := range r.Questions {
		ans := ResolveAnswer(r.Answers, q, i)
		if IsAnswerCorrect(q, ans) {
			correct++
		}
	}
	return correct, total
}

// ResolveAnswer looks up the stored answer for a question. Answer maps are
// keyed by question id, but snapshots written by older clients keyed them by
// position, so the lookup tries the id first and falls back to the
// positional key. First present key wins.
func ResolveAnswer(answers model.AnswerMap, q model.Question, position int) model.Answer {
	if len(answers) == 0 {
		return model.Answer{}
	}

	if a, ok := answers[string(q.ID)]; ok {
		return a
	}
	if a, ok := answers[strconv.Itoa(position)]; ok {
		return a
	}
	if a, ok := answers[strings.TrimSpace(string(q.ID))]; ok {
		return a
	}
	return model.Answer{}
}

// scalarEqual compares two answers as scalars: same kind, same value.
func scalarEqual(a, b model.Answer) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case model.AnswerIndex:
		return a.Index == b.Index
	case model.AnswerText:
		return a.Text == b.Text
	default:
		return false
	}
}

// indexSetsEqual compares two index sets order-independently and exactly.
// Subsets and supersets earn nothing.
func indexSetsEqual(a, b model.Answer) bool {
	if a.Kind != model.AnswerIndexSet || b.Kind != model.AnswerIndexSet {
		return false
	}

	as, bs := a.SortedIndices(), b.SortedIndices()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// textEqual compares free-text answers case-insensitively with surrounding
// whitespace stripped. No fuzzy matching, no numeric tolerance.
func textEqual(a, b model.Answer) bool {
	if a.Kind != model.AnswerText || b.Kind != model.AnswerText {
		return false
	}
	return normalizeText(a.Text) == normalizeText(b.Text)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
