package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuestion wraps every authoring validation failure.
var ErrInvalidQuestion = errors.New("invalid question")

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionFreeText     QuestionType = "free_text"
)

// QuestionID is a stable question identifier. Imported exams key questions
// by string or by number, so the codec accepts both and normalizes to the
// string form.
type QuestionID string

func (id QuestionID) String() string { return string(id) }

// UnmarshalJSON accepts both `"q1"` and `12` as identifiers.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = QuestionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = QuestionID(n.String())
		return nil
	}

	return fmt.Errorf("invalid question id: %s", string(data))
}

// Question is one item in an exam.
type Question struct {
	ID            QuestionID   `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer Answer       `json:"correct_answer,omitempty"`
}

// Sanitized returns a copy with the correct answer stripped, safe to send
// to a student taking the exam.
func (q Question) Sanitized() Question {
	q.CorrectAnswer = Answer{}
	return q
}

// Validate checks the authoring invariants: choice questions need options,
// and every correct index must be within option bounds.
func (q Question) Validate() error {
	if strings.TrimSpace(string(q.ID)) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: question %s: prompt is required", ErrInvalidQuestion, q.ID)
	}

	switch q.Type {
	case QuestionSingleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %s: at least 2 options required", ErrInvalidQuestion, q.ID)
		}
		if q.CorrectAnswer.Kind != AnswerIndex {
			return fmt.Errorf("%w: question %s: correct answer must be an option index", ErrInvalidQuestion, q.ID)
		}
		if q.CorrectAnswer.Index < 0 || q.CorrectAnswer.Index >= len(q.Options) {
			return fmt.Errorf("%w: question %s: correct index out of bounds", ErrInvalidQuestion, q.ID)
		}
	case QuestionMultiChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %s: at least 2 options required", ErrInvalidQuestion, q.ID)
		}
		if q.CorrectAnswer.Kind != AnswerIndexSet || len(q.CorrectAnswer.Indices) == 0 {
			return fmt.Errorf("%w: question %s: correct answer must be a non-empty index set", ErrInvalidQuestion, q.ID)
		}
		for _, idx := range q.CorrectAnswer.Indices {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("%w: question %s: correct index %d out of bounds", ErrInvalidQuestion, q.ID, idx)
			}
		}
	case QuestionFreeText:
		if q.CorrectAnswer.Kind != AnswerText || strings.TrimSpace(q.CorrectAnswer.Text) == "" {
			return fmt.Errorf("%w: question %s: reference answer is required", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %s: unknown type %q", ErrInvalidQuestion, q.ID, q.Type)
	}

	return nil
}
