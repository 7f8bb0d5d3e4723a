package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the persisted record of a completed attempt. It carries a
// denormalized snapshot of the exam's questions at submission time, so
// later scoring stays stable even if the exam is edited. Append-only:
// never mutated after creation.
type Result struct {
	ID               uuid.UUID  `json:"id"`
	ExamID           uuid.UUID  `json:"exam_id"`
	UserID           uuid.UUID  `json:"user_id"`
	UserName         string     `json:"user_name"`
	ExamTitle        string     `json:"exam_title"`
	Questions        []Question `json:"questions"`
	Answers          AnswerMap  `json:"answers"`
	Score            int        `json:"score"`
	CorrectCount     int        `json:"correct_count"`
	TotalCount       int        `json:"total_count"`
	TimeSpentSeconds int        `json:"time_spent"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	IsTimeUp         bool       `json:"is_time_up"`
}

// SubmitRequest is the payload for submitting a completed attempt.
// The user identity comes from the auth token, not the body.
type SubmitRequest struct {
	ExamID           uuid.UUID `json:"exam_id" binding:"required"`
	Answers          AnswerMap `json:"answers" binding:"required"`
	TimeSpentSeconds int       `json:"time_spent" binding:"min=0"`
	SubmittedAt      time.Time `json:"submitted_at" binding:"required"`
	IsTimeUp         bool      `json:"is_time_up"`
}

// SubmitResponse acknowledges a stored submission.
type SubmitResponse struct {
	ResultID uuid.UUID `json:"result_id"`
}

// ResultView pairs a result with the exam it was taken from, as served by
// the result detail endpoint.
type ResultView struct {
	Result *Result `json:"result"`
	Exam   *Exam   `json:"exam"`
}
