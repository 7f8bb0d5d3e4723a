package model

import (
	"time"

	"github.com/google/uuid"
)

// Progress is a best-effort snapshot of an in-flight attempt, written by
// the session's periodic autosave and read back when a student resumes.
type Progress struct {
	ExamID          uuid.UUID `json:"exam_id"`
	UserID          uuid.UUID `json:"user_id"`
	Answers         AnswerMap `json:"answers"`
	CurrentQuestion int       `json:"current_question"`
	TimeRemaining   int       `json:"time_remaining"`
	UpdatedAt       time.Time `json:"timestamp"`
}

// SaveProgressRequest is the autosave payload.
type SaveProgressRequest struct {
	ExamID          uuid.UUID `json:"exam_id" binding:"required"`
	Answers         AnswerMap `json:"answers" binding:"required"`
	CurrentQuestion int       `json:"current_question" binding:"min=0"`
	TimeRemaining   int       `json:"time_remaining" binding:"min=0"`
	Timestamp       time.Time `json:"timestamp"`
}
