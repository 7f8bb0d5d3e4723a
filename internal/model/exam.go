package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity. The question list is ordered and treated
// as immutable once a session has loaded it.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	AuthorID        uuid.UUID  `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Sanitized returns a copy with correct answers stripped from every
// question, safe to serve to a student taking the exam.
func (e Exam) Sanitized() Exam {
	questions := make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		questions[i] = q.Sanitized()
	}
	e.Questions = questions
	return e
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []Question `json:"questions" binding:"omitempty"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Questions       []Question `json:"questions" binding:"omitempty"`
}
