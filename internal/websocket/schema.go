package websocket

import "github.com/tranquocan24/online-exam-system/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope carries every client message. The action selects which
// payload fields are meaningful.
type RequestEnvelope struct {
	Action          Action          `json:"action"`
	Answers         model.AnswerMap `json:"answers,omitempty"`
	CurrentQuestion int             `json:"current_question,omitempty"`
	TimeRemaining   int             `json:"time_remaining,omitempty"`
	TimeSpent       int             `json:"time_spent,omitempty"`
	IsTimeUp        bool            `json:"is_time_up,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSaved   Event = "saved"
	EventGraded  Event = "graded"
	EventWarning Event = "warning"
	EventPong    Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type GradedResponse struct {
	Event    Event  `json:"event"`
	Status   string `json:"status"`
	ResultID string `json:"result_id"`
	Score    int    `json:"score"`
}

type WarningResponse struct {
	Event         Event `json:"event"`
	TimeRemaining int   `json:"time_remaining"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
