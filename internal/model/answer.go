package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// AnswerKind discriminates the shapes an answer value can take.
type AnswerKind int

const (
	AnswerUnset AnswerKind = iota
	AnswerIndex
	AnswerIndexSet
	AnswerText
)

// Answer is a tagged union holding a student's answer to one question:
// a single option index, a set of option indices, free text, or unset.
// The zero value is unset.
type Answer struct {
	Kind    AnswerKind
	Index   int
	Indices []int
	Text    string
}

// IndexAnswer builds a single-choice answer.
func IndexAnswer(i int) Answer {
	return Answer{Kind: AnswerIndex, Index: i}
}

// IndexSetAnswer builds a multi-choice answer.
func IndexSetAnswer(indices ...int) Answer {
	return Answer{Kind: AnswerIndexSet, Indices: indices}
}

// TextAnswer builds a free-text answer.
func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

// IsSet reports whether the answer holds a value.
func (a Answer) IsSet() bool {
	return a.Kind != AnswerUnset
}

// SortedIndices returns a sorted copy of the index set. Used for
// order-independent comparison of multi-choice answers.
func (a Answer) SortedIndices() []int {
	out := make([]int, len(a.Indices))
	copy(out, a.Indices)
	sort.Ints(out)
	return out
}

// MarshalJSON encodes the answer in its wire-native shape:
// number, number array, string, or null when unset.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerIndex:
		return json.Marshal(a.Index)
	case AnswerIndexSet:
		if a.Indices == nil {
			return json.Marshal([]int{})
		}
		return json.Marshal(a.Indices)
	case AnswerText:
		return json.Marshal(a.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a number array, a string, or null.
// Anything else is treated as unset rather than an error, so one bad
// value never poisons a whole answer map.
func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = Answer{}

	// json.Unmarshal into an int is a no-op for null, which would turn an
	// unanswered slot into option 0. Null must stay unset.
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = IndexAnswer(n)
		return nil
	}

	var set []int
	if err := json.Unmarshal(data, &set); err == nil {
		*a = IndexSetAnswer(set...)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = TextAnswer(s)
		return nil
	}

	return nil
}

// AnswerMap maps a question key (question id, with a legacy positional-index
// fallback, see scoring.ResolveAnswer) to the student's current answer.
type AnswerMap map[string]Answer

// Clone returns a deep copy. The session snapshots its answer map before
// handing it to asynchronous autosave.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		if v.Indices != nil {
			v.Indices = append([]int(nil), v.Indices...)
		}
		out[k] = v
	}
	return out
}

// AnsweredCount returns how many entries hold a set answer.
func (m AnswerMap) AnsweredCount() int {
	n := 0
	for _, a := range m {
		if a.IsSet() {
			n++
		}
	}
	return n
}
